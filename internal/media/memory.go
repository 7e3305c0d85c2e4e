package media

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRelay keeps uploaded objects in process memory. It backs local development and tests.
type MemoryRelay struct {
	cfg Config
	now func() time.Time

	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryRelay creates an empty in-memory relay.
func NewMemoryRelay(cfg Config) *MemoryRelay {
	return &MemoryRelay{cfg: cfg, now: time.Now, objects: make(map[string]Object)}
}

func (r *MemoryRelay) Upload(ctx context.Context, obj Object) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	publicID := PublicIDFor(obj, r.now())
	stored := obj
	stored.PublicID = publicID
	stored.Data = append([]byte(nil), obj.Data...)

	r.mu.Lock()
	r.objects[publicID] = stored
	r.mu.Unlock()

	return Result{
		URL:         fmt.Sprintf("memory://%s/%s", r.cfg.Folder(obj.Kind), publicID),
		PublicID:    publicID,
		Size:        int64(len(obj.Data)),
		ContentType: obj.ContentType,
	}, nil
}

func (r *MemoryRelay) Delete(_ context.Context, publicID string, _ Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objects[publicID]; !ok {
		return fmt.Errorf("object %q not found", publicID)
	}
	delete(r.objects, publicID)
	return nil
}

// Get returns a stored object by public id.
func (r *MemoryRelay) Get(publicID string) (Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[publicID]
	return obj, ok
}

// Len reports how many objects are stored.
func (r *MemoryRelay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
