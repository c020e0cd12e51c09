package multipart

// FieldKind distinguishes a declared field's expected part kind.
type FieldKind int

const (
	FieldKindFile FieldKind = iota
	FieldKindText
)

// Field declares one expected form field: its name, kind, how many
// parts under that name are permitted, and any field-specific
// overrides of the global limits (spec §4.4).
type Field struct {
	Name             string
	Kind             FieldKind
	MaxCount         int
	AllowedMIMETypes []string
	MaxSize          uint64
}

type selectorMode int

const (
	selectorModeAny selectorMode = iota
	selectorModeNone
	selectorModeSingle
	selectorModeArray
	selectorModeFields
)

// Selector declares which field names this parse accepts and how many
// parts each may contribute (spec §4.4). Build one with SelectorAny,
// SelectorNone, SelectorSingle, SelectorArray, or SelectorFields.
type Selector struct {
	mode     selectorMode
	name     string
	maxCount int
	fields   []Field
}

// SelectorAny accepts every field name the stream presents, subject
// only to the global limits.
func SelectorAny() Selector {
	return Selector{mode: selectorModeAny}
}

// SelectorNone accepts no file parts; every file part is rejected with
// UnexpectedFile, whatever the UnknownFieldPolicy. Text parts are never gated by the
// selector and are always emitted, counted only against the global
// field limits.
func SelectorNone() Selector {
	return Selector{mode: selectorModeNone}
}

// SelectorSingle accepts exactly one file part under name.
func SelectorSingle(name string) Selector {
	return Selector{mode: selectorModeSingle, name: name, maxCount: 1}
}

// SelectorArray accepts up to maxCount file parts under name.
func SelectorArray(name string, maxCount int) Selector {
	return Selector{mode: selectorModeArray, name: name, maxCount: maxCount}
}

// SelectorFields accepts exactly the declared fields, file or text,
// each with its own per-field limits.
func SelectorFields(fields ...Field) Selector {
	return Selector{mode: selectorModeFields, fields: fields}
}

// UnknownFieldPolicy controls what happens when a part's field name is
// not recognized by the active Selector.
type UnknownFieldPolicy int

const (
	// UnknownFieldIgnore silently drains and discards parts the
	// selector does not recognize. This is the default (spec §4.4
	// open question: resolved to Ignore).
	UnknownFieldIgnore UnknownFieldPolicy = iota

	// UnknownFieldReject fails the parse with UnexpectedField or
	// UnexpectedFile on the first unrecognized part.
	UnknownFieldReject
)

// Config is the fully resolved configuration for a parse, built via
// New with functional Options (spec §6).
type Config struct {
	Selector           Selector
	UnknownFieldPolicy UnknownFieldPolicy
	Limits             Limits
	chunkSize          int
}

const defaultMaxHeaderBytes = 8 * 1024
const defaultChunkSize = 32 * 1024
const defaultMaxFieldSize = 1 * 1024 * 1024
const defaultMaxFields = 1000

// Option customizes a Config built by New.
type Option func(*Config)

// WithSelector sets which field names are accepted.
func WithSelector(selector Selector) Option {
	return func(c *Config) { c.Selector = selector }
}

// WithUnknownFieldPolicy sets the behavior for parts the selector does
// not recognize.
func WithUnknownFieldPolicy(policy UnknownFieldPolicy) Option {
	return func(c *Config) { c.UnknownFieldPolicy = policy }
}

// WithMaxFileSize bounds the size of any single file part.
func WithMaxFileSize(n uint64) Option {
	return func(c *Config) { c.Limits.MaxFileSize = n }
}

// WithMaxFieldSize bounds the size of any single text part.
func WithMaxFieldSize(n uint64) Option {
	return func(c *Config) { c.Limits.MaxFieldSize = n }
}

// WithMaxFiles bounds the total number of file parts across the parse.
func WithMaxFiles(n int) Option {
	return func(c *Config) { c.Limits.MaxFiles = n }
}

// WithMaxFields bounds the total number of text parts across the parse.
func WithMaxFields(n int) Option {
	return func(c *Config) { c.Limits.MaxFields = n }
}

// WithMaxBodySize bounds the total raw byte count read from the
// upstream ChunkSource.
func WithMaxBodySize(n uint64) Option {
	return func(c *Config) { c.Limits.MaxBodySize = n }
}

// WithMaxHeaderBytes bounds the size of a single part's header block.
func WithMaxHeaderBytes(n int) Option {
	return func(c *Config) { c.Limits.MaxHeaderBytes = n }
}

// WithAllowedMIMETypes sets the global MIME allowlist, supporting
// "type/*" wildcard entries.
func WithAllowedMIMETypes(patterns ...string) Option {
	return func(c *Config) { c.Limits.AllowedMIMETypes = patterns }
}

// withChunkSize is unexported and only sets Config.chunkSize; nothing in
// this package reads that field, and NewReaderSource takes its chunk
// size as its own argument.
func withChunkSize(n int) Option {
	return func(c *Config) { c.chunkSize = n }
}

// newConfig applies opts over the documented defaults and validates
// the result, mirroring the builder validation pass in the original
// Selector/Limits design (spec §4.4, §6).
func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		Selector:           SelectorAny(),
		UnknownFieldPolicy: UnknownFieldIgnore,
		chunkSize:          defaultChunkSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Limits.MaxHeaderBytes <= 0 {
		cfg.Limits.MaxHeaderBytes = defaultMaxHeaderBytes
	}
	if cfg.Limits.MaxFieldSize <= 0 {
		cfg.Limits.MaxFieldSize = defaultMaxFieldSize
	}
	if cfg.Limits.MaxFields <= 0 {
		cfg.Limits.MaxFields = defaultMaxFields
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Selector.mode == selectorModeSingle && cfg.Selector.name == "" {
		return NewConfigError("selector field name cannot be empty")
	}
	if cfg.Selector.mode == selectorModeArray {
		if cfg.Selector.name == "" {
			return NewConfigError("selector field name cannot be empty")
		}
		if cfg.Selector.maxCount <= 0 {
			return NewConfigError("selector array max count must be positive")
		}
	}
	if cfg.Selector.mode == selectorModeFields {
		if len(cfg.Selector.fields) == 0 {
			return NewConfigError("selector fields list cannot be empty")
		}
		seen := make(map[string]bool, len(cfg.Selector.fields))
		for _, f := range cfg.Selector.fields {
			if f.Name == "" {
				return NewConfigError("selector field name cannot be empty")
			}
			if seen[f.Name] {
				return NewConfigError("duplicate field name in selector: " + f.Name)
			}
			seen[f.Name] = true
			if f.MaxCount < 0 {
				return NewConfigError("field max count cannot be negative: " + f.Name)
			}
		}
	}
	if cfg.Limits.MaxBodySize > 0 {
		if cfg.Limits.MaxFileSize > cfg.Limits.MaxBodySize {
			return NewConfigError("max file size cannot exceed max body size")
		}
		if cfg.Limits.MaxFieldSize > cfg.Limits.MaxBodySize {
			return NewConfigError("max field size cannot exceed max body size")
		}
	}
	return nil
}
