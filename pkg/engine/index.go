package engine

import (
	"sync"
	"sync/atomic"

	"github.com/arbiterhq/arbiter/pkg/models"
)

// activeExecution is the in-memory handle for one in-flight run. The
// cancellation flag is cooperative: checked between steps, never preempting
// an in-flight call.
type activeExecution struct {
	execution *models.WorkflowExecution
	cancelled atomic.Bool
}

// activeIndex tracks in-flight executions. Entries are added when a run
// starts and removed on terminal transition; durable state lives in the
// execution store.
type activeIndex struct {
	mu      sync.Mutex
	entries map[string]*activeExecution
}

func newActiveIndex() *activeIndex {
	return &activeIndex{entries: make(map[string]*activeExecution)}
}

func (idx *activeIndex) add(execution *models.WorkflowExecution) *activeExecution {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry := &activeExecution{execution: execution}
	idx.entries[execution.ID] = entry

	return entry
}

func (idx *activeIndex) remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.entries, id)
}

func (idx *activeIndex) cancel(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry, ok := idx.entries[id]
	if !ok {
		return false
	}

	entry.cancelled.Store(true)

	return true
}

func (idx *activeIndex) get(id string) (*activeExecution, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry, ok := idx.entries[id]

	return entry, ok
}
