package multipart

// selectorDecision tells the caller what to do with a classified part.
type selectorDecision struct {
	accept  bool
	field   *Field // nil when the selector has no per-field overrides for this part
}

// selectorEngine evaluates each part's field name and kind against the
// active Selector and UnknownFieldPolicy, and tracks per-field and
// global file/text counts against Limits (spec §4.4). The upstream Rust
// crate this package's design traces back to factors this out into its
// own selector module; that module was not present in the retrieved
// reference material, so this type is authored directly from the
// specification rather than ported from an example.
type selectorEngine struct {
	selector Selector
	policy   UnknownFieldPolicy
	limits   Limits

	fileCount  int
	fieldCount int
	perName    map[string]int
}

func newSelectorEngine(cfg *Config) *selectorEngine {
	return &selectorEngine{
		selector: cfg.Selector,
		policy:   cfg.UnknownFieldPolicy,
		limits:   cfg.Limits,
		perName:  make(map[string]int),
	}
}

// evaluate classifies one part's headers, enforces global and per-field
// count limits, and enforces the MIME allowlist for file parts. It
// returns a decision telling the caller whether to emit the part
// (accept) or silently drain it (ignore), or an error if the part
// violates a limit or the active policy.
func (s *selectorEngine) evaluate(headers *PartHeaders) (selectorDecision, error) {
	isFile := headers.isFile()
	name := headers.FieldName

	// Text parts are never gated by the file selector: "none",
	// "single", and "array" only ever declare which *file* fields are
	// wanted, so any text part they see bypasses that file selection
	// entirely, regardless of UnknownFieldPolicy, and is emitted,
	// counted only against the global/per-field text limits (the
	// original's next_part routes only file parts through the
	// selector; text parts always survive). Only "fields" mode, which
	// explicitly declares text fields by name, still gates text parts.
	if !isFile && s.selector.mode != selectorModeFields {
		return s.acceptAndCount(name, false, nil, "")
	}

	switch s.selector.mode {
	case selectorModeAny:
		return s.acceptAndCount(name, isFile, nil, headers.ContentType)

	case selectorModeNone:
		return s.rejectUnexpected(name, true)

	case selectorModeSingle:
		if name == s.selector.name {
			if s.perName[name] >= s.selector.maxCount {
				return selectorDecision{}, NewTooManyFilesError(name, s.selector.maxCount)
			}
			return s.acceptAndCount(name, true, nil, headers.ContentType)
		}
		return s.rejectOrIgnore(name, isFile)

	case selectorModeArray:
		if name != s.selector.name {
			return s.rejectOrIgnore(name, isFile)
		}
		if s.perName[name] >= s.selector.maxCount {
			return selectorDecision{}, NewTooManyFilesError(name, s.selector.maxCount)
		}
		return s.acceptAndCount(name, true, nil, headers.ContentType)

	case selectorModeFields:
		for i := range s.selector.fields {
			f := &s.selector.fields[i]
			if f.Name != name {
				continue
			}
			wantFile := f.Kind == FieldKindFile
			if wantFile != isFile {
				return s.rejectUnexpected(name, isFile)
			}
			if f.MaxCount > 0 && s.perName[name] >= f.MaxCount {
				if isFile {
					return selectorDecision{}, NewTooManyFilesError(name, f.MaxCount)
				}
				return selectorDecision{}, NewTooManyFieldsError(name, f.MaxCount)
			}
			return s.acceptAndCount(name, isFile, f, headers.ContentType)
		}
		return s.rejectOrIgnore(name, isFile)
	}

	return s.rejectOrIgnore(name, isFile)
}

func (s *selectorEngine) rejectOrIgnore(name string, isFile bool) (selectorDecision, error) {
	if s.policy == UnknownFieldReject {
		return s.rejectUnexpected(name, isFile)
	}
	return selectorDecision{accept: false}, nil
}

func (s *selectorEngine) rejectUnexpected(name string, isFile bool) (selectorDecision, error) {
	if isFile {
		return selectorDecision{}, NewUnexpectedFileError(name)
	}
	return selectorDecision{}, NewUnexpectedFieldError(name)
}

// acceptAndCount applies global count limits, the MIME allowlist (file
// parts only), bumps the relevant counters, and returns an accept
// decision.
func (s *selectorEngine) acceptAndCount(name string, isFile bool, field *Field, contentType string) (selectorDecision, error) {
	if isFile {
		if s.limits.MaxFiles > 0 && s.fileCount >= s.limits.MaxFiles {
			return selectorDecision{}, NewTooManyFilesError("", s.limits.MaxFiles)
		}
		patterns := s.limits.AllowedMIMETypes
		if field != nil && len(field.AllowedMIMETypes) > 0 {
			patterns = field.AllowedMIMETypes
		}
		if !isMIMEAllowed(contentType, patterns) {
			return selectorDecision{}, NewUnsupportedMediaTypeError(name, contentType)
		}
		s.fileCount++
	} else {
		if s.limits.MaxFields > 0 && s.fieldCount >= s.limits.MaxFields {
			return selectorDecision{}, NewTooManyFieldsError("", s.limits.MaxFields)
		}
		s.fieldCount++
	}
	s.perName[name]++
	return selectorDecision{accept: true, field: field}, nil
}
