// Package file implements persistence on the local file system. Every
// document is one JSON file under <root>/<collection>/<id>.json.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arbiterhq/arbiter/pkg/persistence"
)

// Persistence implements persistence.Persistence using the file system.
type Persistence struct {
	root string

	workflows   *workflowRepository
	executions  *executionRepository
	sessions    *sessionRepository
	batches     *batchRepository
	escalations *escalationRepository
	approvals   *approvalRepository
}

// NewPersistence creates a file-backed store rooted at the given path.
// A "file://" prefix is stripped so database URLs work unchanged.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		workflows:   &workflowRepository{store: newStore(cleanRoot, "workflows")},
		executions:  &executionRepository{store: newStore(cleanRoot, "executions")},
		sessions:    &sessionRepository{store: newStore(cleanRoot, "sessions")},
		batches:     &batchRepository{store: newStore(cleanRoot, "batches")},
		escalations: &escalationRepository{store: newStore(cleanRoot, "escalations")},
		approvals:   &approvalRepository{store: newStore(cleanRoot, "approvals")},
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository     { return p.workflows }
func (p *Persistence) Executions() persistence.ExecutionRepository   { return p.executions }
func (p *Persistence) Sessions() persistence.SessionRepository       { return p.sessions }
func (p *Persistence) Batches() persistence.BatchRepository          { return p.batches }
func (p *Persistence) Escalations() persistence.EscalationRepository { return p.escalations }
func (p *Persistence) Approvals() persistence.ApprovalRepository     { return p.approvals }

func (p *Persistence) HealthCheck(_ context.Context) error {
	err := os.MkdirAll(p.root, 0o755)
	if err != nil {
		return fmt.Errorf("persistence root %s is not writable: %w", p.root, err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// store serializes access to one collection directory. The mutex guards the
// per-document read-modify-write cycle within this process.
type store struct {
	dir string
	mu  sync.Mutex
}

func newStore(root, collection string) *store {
	return &store{dir: filepath.Join(root, collection)}
}

func (s *store) write(id string, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.MkdirAll(s.dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create collection dir %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", id, err)
	}

	path := filepath.Join(s.dir, id+".json")

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", path, err)
	}

	return nil
}

func (s *store) read(id string, doc any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, id+".json")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	err = json.Unmarshal(data, doc)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal document %s: %w", path, err)
	}

	return true, nil
}

func (s *store) ids() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := os.DirFS(s.dir)

	files, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", s.dir, err)
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}

func (s *store) delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, id+".json")

	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}

	return nil
}
