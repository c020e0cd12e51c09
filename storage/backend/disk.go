package backend

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sargsarmen/multer/storage"
)

// FilenameStrategy selects how Disk chooses the final on-disk name for
// an accepted file part (spec §4.8).
type FilenameStrategy int

const (
	// FilenameKeep uses the sanitized original filename, falling back
	// to a random name when none was presented.
	FilenameKeep FilenameStrategy = iota

	// FilenameRandom always generates a UUIDv4 basename, preserving the
	// original extension if one is present.
	FilenameRandom

	// FilenameCustom delegates to a caller-supplied function; its
	// result is sanitized afterward like any other strategy.
	FilenameCustom
)

// FilterFunc decides whether an accepted part should actually be
// persisted. A false result marks the stored file as Skipped rather
// than aborting the part.
type FilterFunc func(meta storage.PartMeta) bool

// DiskOption customizes a Disk backend built by NewDisk.
type DiskOption func(*Disk)

// WithFilenameStrategy sets how final filenames are chosen. fn is only
// consulted when strategy is FilenameCustom.
func WithFilenameStrategy(strategy FilenameStrategy, fn func(original string) string) DiskOption {
	return func(d *Disk) {
		d.strategy = strategy
		d.customName = fn
	}
}

// WithFilter sets a predicate run at Begin time to decide whether a
// part should be written to disk at all.
func WithFilter(fn FilterFunc) DiskOption {
	return func(d *Disk) { d.filter = fn }
}

// WithFsync enables calling File.Sync before the tempfile is placed
// under its final name.
func WithFsync(enabled bool) DiskOption {
	return func(d *Disk) { d.fsync = enabled }
}

// DiskStoredFile is the Disk backend's storage.StoredFile payload,
// adding the final on-disk path and whether the filter skipped it.
type DiskStoredFile struct {
	storage.StoredFile
	Path    string
	Skipped bool
}

// Disk streams accepted parts to a temporary file in root, then
// exclusively places them on Finish (spec §4.8). root must already
// exist and be writable.
type Disk struct {
	root       string
	strategy   FilenameStrategy
	customName func(original string) string
	filter     FilterFunc
	fsync      bool

	mu        sync.Mutex
	sessions  map[string]*diskSession
}

type diskSession struct {
	meta        storage.PartMeta
	tempPath    string
	finalPath   string
	file        *os.File
	skipped     bool
	bytesWritten uint64
}

// NewDisk constructs a Disk backend rooted at dir. dir must exist.
func NewDisk(dir string, opts ...DiskOption) (*Disk, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &storage.Error{Backend: "disk", Cause: err}
	}
	if !info.IsDir() {
		return nil, &storage.Error{Backend: "disk", Cause: errNotADirectory}
	}

	d := &Disk{
		root:     dir,
		strategy: FilenameKeep,
		sessions: make(map[string]*diskSession),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Disk) Begin(meta storage.PartMeta) (storage.Handle, error) {
	skip := d.filter != nil && !d.filter(meta)

	handle := uuid.NewString()
	sess := &diskSession{meta: meta, skipped: skip}

	if skip {
		d.mu.Lock()
		d.sessions[handle] = sess
		d.mu.Unlock()
		return handle, nil
	}

	finalName := d.chooseFilename(meta)
	finalPath := d.resolveCollision(finalName)
	tempPath := finalPath + ".partial." + randomSuffix()

	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &storage.Error{Backend: "disk", Cause: err}
	}

	sess.tempPath = tempPath
	sess.finalPath = finalPath
	sess.file = f

	d.mu.Lock()
	d.sessions[handle] = sess
	d.mu.Unlock()

	return handle, nil
}

func (d *Disk) Write(handle storage.Handle, chunk []byte) error {
	sess, err := d.lookup(handle)
	if err != nil {
		return err
	}
	if sess.skipped {
		return nil
	}
	n, err := sess.file.Write(chunk)
	sess.bytesWritten += uint64(n)
	if err != nil {
		return &storage.Error{Backend: "disk", Cause: err}
	}
	return nil
}

func (d *Disk) Finish(handle storage.Handle) (DiskStoredFile, error) {
	sess, err := d.lookup(handle)
	if err != nil {
		return DiskStoredFile{}, err
	}
	d.forget(handle)

	if sess.skipped {
		return DiskStoredFile{
			StoredFile: storage.StoredFile{
				FieldName:        sess.meta.FieldName,
				OriginalFileName: sess.meta.OriginalFileName,
				ContentType:      sess.meta.ContentType,
			},
			Skipped: true,
		}, nil
	}

	if d.fsync {
		if err := sess.file.Sync(); err != nil {
			_ = sess.file.Close()
			_ = os.Remove(sess.tempPath)
			return DiskStoredFile{}, &storage.Error{Backend: "disk", Cause: err}
		}
	}
	if err := sess.file.Close(); err != nil {
		_ = os.Remove(sess.tempPath)
		return DiskStoredFile{}, &storage.Error{Backend: "disk", Cause: err}
	}

	finalPath, err := d.placeFinal(sess.tempPath, sess.finalPath)
	if err != nil {
		_ = os.Remove(sess.tempPath)
		return DiskStoredFile{}, &storage.Error{Backend: "disk", Cause: err}
	}

	return DiskStoredFile{
		StoredFile: storage.StoredFile{
			FieldName:        sess.meta.FieldName,
			OriginalFileName: sess.meta.OriginalFileName,
			ContentType:      sess.meta.ContentType,
			Size:             sess.bytesWritten,
			StorageKey:       filepath.Base(finalPath),
		},
		Path: finalPath,
	}, nil
}

// placeFinal moves tempPath into its final resting place with
// O_CREAT|O_EXCL semantics: os.Rename would silently clobber a file
// created after resolveCollision's check ran, so placement instead
// hard-links tempPath to the candidate name and only then removes the
// temp file, advancing to the next "(n)" suffix whenever Link reports
// the candidate already exists. The link/unlink pair is what gives the
// exclusive-create guarantee that Rename alone does not.
func (d *Disk) placeFinal(tempPath, wantPath string) (string, error) {
	for n := 1; ; n++ {
		candidate := suffixedName(wantPath, n)
		err := os.Link(tempPath, candidate)
		if err == nil {
			_ = os.Remove(tempPath)
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
	}
}

func (d *Disk) Abort(handle storage.Handle, cause error) error {
	key, ok := handle.(string)
	if !ok {
		return nil
	}
	d.mu.Lock()
	sess, ok := d.sessions[key]
	delete(d.sessions, key)
	d.mu.Unlock()
	if !ok || sess.skipped || sess.file == nil {
		return nil
	}

	_ = sess.file.Close()
	if err := os.Remove(sess.tempPath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", sess.tempPath).Msg("disk backend: failed to remove tempfile during abort")
	}
	return nil
}

func (d *Disk) lookup(handle storage.Handle) (*diskSession, error) {
	key, ok := handle.(string)
	if !ok {
		return nil, &storage.Error{Backend: "disk", Cause: errUnknownHandle}
	}
	d.mu.Lock()
	sess, ok := d.sessions[key]
	d.mu.Unlock()
	if !ok {
		return nil, &storage.Error{Backend: "disk", Cause: errUnknownHandle}
	}
	return sess, nil
}

func (d *Disk) forget(handle storage.Handle) {
	key, ok := handle.(string)
	if !ok {
		return
	}
	d.mu.Lock()
	delete(d.sessions, key)
	d.mu.Unlock()
}

func (d *Disk) chooseFilename(meta storage.PartMeta) string {
	original := ""
	if meta.OriginalFileName != nil {
		original = *meta.OriginalFileName
	}

	switch d.strategy {
	case FilenameRandom:
		ext := filepath.Ext(sanitizeFilename(original))
		return uuid.NewString() + ext
	case FilenameCustom:
		var chosen string
		if d.customName != nil {
			chosen = d.customName(original)
		}
		return sanitizeFilename(chosen)
	default:
		if original == "" {
			return randomFilename()
		}
		return sanitizeFilename(original)
	}
}

// resolveCollision picks a likely-free candidate name at Begin time so
// finalPath reads sensibly even before the part has finished streaming;
// it is a fast-path guess only — placeFinal is what actually enforces
// exclusivity against names that appear between this check and Finish.
func (d *Disk) resolveCollision(name string) string {
	return withCollisionSuffix(filepath.Join(d.root, name), func(candidate string) bool {
		_, err := os.Stat(candidate)
		return err == nil
	})
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
