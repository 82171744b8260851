package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/vexeradubbing/applybot/internal/model"
)

// document is the on-disk layout: one JSON object with a bucket per
// status and the ID counter. Records not yet promoted to pending live
// in the pending bucket; each record carries its own status field.
type document struct {
	Pending  map[string]model.Application `json:"pending"`
	Approved map[string]model.Application `json:"approved"`
	Rejected map[string]model.Application `json:"rejected"`
	Counter  int64                        `json:"counter"`
}

// JSONStorage persists applications write-through to a single JSON
// file. Message refs are held in memory only; the file layout predates
// ref tracking and is kept compatible.
type JSONStorage struct {
	*MemoryStorage
	path string
}

func NewJSONStorage(path string) (*JSONStorage, error) {
	s := &JSONStorage{
		MemoryStorage: NewMemoryStorage(),
		path:          path,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStorage) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read db file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse db file: %w", err)
	}

	var apps []model.Application
	for _, bucket := range []map[string]model.Application{doc.Pending, doc.Approved, doc.Rejected} {
		for _, app := range bucket {
			apps = append(apps, app)
		}
	}
	s.restore(apps, doc.Counter)
	return nil
}

func (s *JSONStorage) persist() error {
	apps, counter := s.snapshot()
	doc := document{
		Pending:  make(map[string]model.Application),
		Approved: make(map[string]model.Application),
		Rejected: make(map[string]model.Application),
		Counter:  counter,
	}
	for _, app := range apps {
		switch app.Status {
		case model.StatusApproved:
			doc.Approved[app.ID] = app
		case model.StatusRejected:
			doc.Rejected[app.ID] = app
		default:
			doc.Pending[app.ID] = app
		}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal db: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write db file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace db file: %w", err)
	}
	return nil
}

func (s *JSONStorage) Create(ctx context.Context, app *model.Application) error {
	if err := s.MemoryStorage.Create(ctx, app); err != nil {
		return err
	}
	return s.persist()
}

func (s *JSONStorage) UpdateStatus(ctx context.Context, id string, status model.Status, actor string, at time.Time) error {
	if err := s.MemoryStorage.UpdateStatus(ctx, id, status, actor, at); err != nil {
		return err
	}
	return s.persist()
}

func (s *JSONStorage) Delete(ctx context.Context, id string) error {
	if err := s.MemoryStorage.Delete(ctx, id); err != nil {
		return err
	}
	return s.persist()
}

func (s *JSONStorage) NextID(ctx context.Context) (string, error) {
	id, err := s.MemoryStorage.NextID(ctx)
	if err != nil {
		return "", err
	}
	if err := s.persist(); err != nil {
		return "", err
	}
	return id, nil
}
