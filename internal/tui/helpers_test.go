package tui

import (
	"sync"

	"github.com/diogo/zai/internal/models"
)

type fakeRecorder struct {
	mu sync.Mutex
	n  int
}

func (r *fakeRecorder) RecordMessage(models.Role, string, string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	return nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}
