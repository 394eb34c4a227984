package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store for tests and local experiments.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data         []byte
	etag         string
	lastModified time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, Info{}, ErrNotFound
	}
	return append([]byte(nil), obj.data...), m.info(key, obj), nil
}

func (m *Memory) Head(_ context.Context, key string) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return Info{}, ErrNotFound
	}
	return m.info(key, obj), nil
}

func (m *Memory) Put(_ context.Context, key string, data []byte, opts PutOptions) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if opts.ExpectedETag != "" {
		cur, ok := m.objects[key]
		if !ok || cur.etag != opts.ExpectedETag {
			return Info{}, ErrPreconditionFailed
		}
	}
	obj := memObject{
		data:         append([]byte(nil), data...),
		etag:         contentETag(data),
		lastModified: time.Now().UTC(),
	}
	m.objects[key] = obj
	return m.info(key, obj), nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var infos []Info
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, m.info(key, obj))
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) info(key string, obj memObject) Info {
	return Info{Key: key, Size: int64(len(obj.data)), ETag: obj.etag, LastModified: obj.lastModified}
}

// contentETag derives a deterministic ETag from object content.
func contentETag(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}
