package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	appErr "github.com/vexeradubbing/applybot/internal/errors"
	"github.com/vexeradubbing/applybot/internal/model"
)

// MemoryStorage keeps everything in process memory. It backs tests and
// the json backend, which layers file persistence on top of it.
type MemoryStorage struct {
	mu      sync.Mutex
	apps    map[string]model.Application
	refs    map[string]map[int64]model.MessageRef
	counter int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		apps: make(map[string]model.Application),
		refs: make(map[string]map[int64]model.MessageRef),
	}
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStorage) NextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return model.FormatID(m.counter), nil
}

func (m *MemoryStorage) Create(ctx context.Context, app *model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[app.ID]; ok {
		return appErr.NewConflict("application %s already exists", app.ID)
	}
	m.apps[app.ID] = *app
	return nil
}

func (m *MemoryStorage) FindByID(ctx context.Context, id string) (model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return model.Application{}, appErr.NewNotFound("application %s", id)
	}
	return app, nil
}

func (m *MemoryStorage) FindByStatus(ctx context.Context, status model.Status) ([]model.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var apps []model.Application
	for _, app := range m.apps {
		if app.Status == status {
			apps = append(apps, app)
		}
	}
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].CreatedAt.After(apps[j].CreatedAt)
	})
	return apps, nil
}

func (m *MemoryStorage) UpdateStatus(ctx context.Context, id string, status model.Status, actor string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return appErr.NewNotFound("application %s", id)
	}
	if !model.CanTransition(app.Status, status) {
		return appErr.NewConflict("transition %s -> %s not allowed for %s", app.Status, status, id)
	}
	app.Status = status
	if app.Decided() {
		app.ProcessedBy = actor
		processedAt := at
		app.ProcessedAt = &processedAt
	}
	m.apps[id] = app
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apps[id]; !ok {
		return appErr.NewNotFound("application %s", id)
	}
	delete(m.apps, id)
	delete(m.refs, id)
	return nil
}

func (m *MemoryStorage) Counts(ctx context.Context) (map[model.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.Status]int)
	for _, app := range m.apps {
		counts[app.Status]++
	}
	return counts, nil
}

func (m *MemoryStorage) SaveRef(ctx context.Context, ref model.MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byRecipient, ok := m.refs[ref.ApplicationID]
	if !ok {
		byRecipient = make(map[int64]model.MessageRef)
		m.refs[ref.ApplicationID] = byRecipient
	}
	byRecipient[ref.RecipientID] = ref
	return nil
}

func (m *MemoryStorage) RefsByApplication(ctx context.Context, appID string) ([]model.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byRecipient := m.refs[appID]
	refs := make([]model.MessageRef, 0, len(byRecipient))
	for _, ref := range byRecipient {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].RecipientID < refs[j].RecipientID
	})
	return refs, nil
}

// snapshot returns a copy of all applications and the counter, for the
// json backend to persist.
func (m *MemoryStorage) snapshot() ([]model.Application, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apps := make([]model.Application, 0, len(m.apps))
	for _, app := range m.apps {
		apps = append(apps, app)
	}
	return apps, m.counter
}

// restore replaces in-memory state, for the json backend to load.
func (m *MemoryStorage) restore(apps []model.Application, counter int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps = make(map[string]model.Application, len(apps))
	for _, app := range apps {
		m.apps[app.ID] = app
	}
	m.counter = counter
}
