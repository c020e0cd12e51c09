package backend

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sargsarmen/multer/storage"
)

// Memory is an in-process storage.Engine that buffers each accepted
// part's bytes and keys the finished result by a freshly generated
// UUIDv4. It mirrors the map-of-byte-slices-guarded-by-RWMutex shape
// used for the in-memory backend elsewhere in this dependency stack,
// scaled to the Begin/Write/Finish/Abort contract.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte

	sessions sync.Map // Handle -> *memorySession
}

type memorySession struct {
	meta storage.PartMeta
	buf  []byte
}

// NewMemory constructs an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Begin(meta storage.PartMeta) (storage.Handle, error) {
	key := uuid.NewString()
	m.sessions.Store(key, &memorySession{meta: meta})
	return key, nil
}

func (m *Memory) Write(handle storage.Handle, chunk []byte) error {
	key := handle.(string)
	v, ok := m.sessions.Load(key)
	if !ok {
		return &storage.Error{Backend: "memory", Cause: errUnknownHandle}
	}
	sess := v.(*memorySession)
	sess.buf = append(sess.buf, chunk...)
	return nil
}

func (m *Memory) Finish(handle storage.Handle) (storage.StoredFile, error) {
	key := handle.(string)
	v, ok := m.sessions.LoadAndDelete(key)
	if !ok {
		return storage.StoredFile{}, &storage.Error{Backend: "memory", Cause: errUnknownHandle}
	}
	sess := v.(*memorySession)

	m.mu.Lock()
	m.files[key] = sess.buf
	m.mu.Unlock()

	return storage.StoredFile{
		FieldName:        sess.meta.FieldName,
		OriginalFileName: sess.meta.OriginalFileName,
		ContentType:      sess.meta.ContentType,
		Size:             uint64(len(sess.buf)),
		StorageKey:       key,
	}, nil
}

func (m *Memory) Abort(handle storage.Handle, cause error) error {
	key, ok := handle.(string)
	if !ok {
		return nil
	}
	m.sessions.Delete(key)
	return nil
}

// Get retrieves the bytes stored under key, if any.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.files[key]
	return b, ok
}

// Delete removes a previously finished file, freeing its bytes.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
}
