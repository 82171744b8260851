package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	appErr "github.com/vexeradubbing/applybot/internal/errors"
	"github.com/vexeradubbing/applybot/internal/model"
)

const counterName = "applications"

// applicationData is the payload part of a record, serialized into the
// application_data column.
type applicationData struct {
	Name            string `json:"name"`
	Contact         string `json:"contact"`
	Role            string `json:"role"`
	Experience      string `json:"experience,omitempty"`
	Samples         string `json:"samples,omitempty"`
	Motivation      string `json:"motivation"`
	RawText         string `json:"raw_text,omitempty"`
	ApplicantChatID int64  `json:"applicant_chat_id,omitempty"`
}

// DB is the subset of pgxpool.Pool the storage uses. Tests substitute
// a mock pool for it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type PostgresStorage struct {
	db DB
}

func NewPostgresStorage(db DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// EnsureSchema creates the tables if they do not exist yet.
func (ps *PostgresStorage) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS applications (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			application_data JSONB NOT NULL,
			telegram_username TEXT NOT NULL DEFAULT 'N/A',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			processed_by TEXT,
			processed_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS messages (
			application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
			chat_id BIGINT NOT NULL,
			message_id INT NOT NULL,
			PRIMARY KEY (application_id, chat_id)
		);
		CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value BIGINT NOT NULL
		);
	`
	if _, err := ps.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.db.Ping(ctx)
}

func (ps *PostgresStorage) NextID(ctx context.Context) (string, error) {
	// Single upsert keeps read-increment-write atomic on the DB side.
	const query = `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`

	var value int64
	if err := ps.db.QueryRow(ctx, query, counterName).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to advance counter: %w", err)
	}
	return model.FormatID(value), nil
}

func (ps *PostgresStorage) Create(ctx context.Context, app *model.Application) error {
	data, err := json.Marshal(applicationData{
		Name:            app.Name,
		Contact:         app.Contact,
		Role:            app.Role,
		Experience:      app.Experience,
		Samples:         app.Samples,
		Motivation:      app.Motivation,
		RawText:         app.RawText,
		ApplicantChatID: app.ApplicantChatID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal application data: %w", err)
	}

	const query = `
		INSERT INTO applications (id, status, application_data, telegram_username, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`

	_, err = ps.db.Exec(ctx, query, app.ID, app.Status, data, app.ContactHandle, app.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save application: %w", err)
	}
	return nil
}

const applicationColumns = `
	id, status, application_data, telegram_username, created_at, processed_by, processed_at
`

func scanApplication(row pgx.Row) (model.Application, error) {
	var (
		app         model.Application
		data        []byte
		processedBy *string
	)
	if err := row.Scan(&app.ID, &app.Status, &data, &app.ContactHandle,
		&app.CreatedAt, &processedBy, &app.ProcessedAt); err != nil {
		return model.Application{}, err
	}

	var payload applicationData
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.Application{}, fmt.Errorf("failed to parse application data: %w", err)
	}
	app.Name = payload.Name
	app.Contact = payload.Contact
	app.Role = payload.Role
	app.Experience = payload.Experience
	app.Samples = payload.Samples
	app.Motivation = payload.Motivation
	app.RawText = payload.RawText
	app.ApplicantChatID = payload.ApplicantChatID
	if processedBy != nil {
		app.ProcessedBy = *processedBy
	}
	return app, nil
}

func (ps *PostgresStorage) FindByID(ctx context.Context, id string) (model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(ps.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Application{}, appErr.NewNotFound("application %s", id)
		}
		return model.Application{}, fmt.Errorf("find by id failed: %w", err)
	}
	return app, nil
}

func (ps *PostgresStorage) FindByStatus(ctx context.Context, status model.Status) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE status = $1 ORDER BY created_at DESC`

	rows, err := ps.db.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return apps, nil
}

func (ps *PostgresStorage) UpdateStatus(ctx context.Context, id string, status model.Status, actor string, at time.Time) error {
	tx, err := ps.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current model.Status
	err = tx.QueryRow(ctx, `SELECT status FROM applications WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appErr.NewNotFound("application %s", id)
		}
		return fmt.Errorf("failed to read status: %w", err)
	}

	if !model.CanTransition(current, status) {
		return appErr.NewConflict("transition %s -> %s not allowed for %s", current, status, id)
	}

	if status == model.StatusApproved || status == model.StatusRejected {
		_, err = tx.Exec(ctx, `
			UPDATE applications
			SET status = $1, processed_by = $2, processed_at = $3, updated_at = $3
			WHERE id = $4
		`, status, actor, at, id)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE applications
			SET status = $1, updated_at = $2
			WHERE id = $3
		`, status, at, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	return tx.Commit(ctx)
}

func (ps *PostgresStorage) Delete(ctx context.Context, id string) error {
	// messages rows go with the application via ON DELETE CASCADE.
	cmdTag, err := ps.db.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return appErr.NewNotFound("application %s", id)
	}
	return nil
}

func (ps *PostgresStorage) Counts(ctx context.Context) (map[model.Status]int, error) {
	rows, err := ps.db.Query(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count query failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var (
			status model.Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (ps *PostgresStorage) SaveRef(ctx context.Context, ref model.MessageRef) error {
	const query = `
		INSERT INTO messages (application_id, chat_id, message_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (application_id, chat_id) DO UPDATE SET message_id = EXCLUDED.message_id
	`

	_, err := ps.db.Exec(ctx, query, ref.ApplicationID, ref.RecipientID, ref.MessageID)
	if err != nil {
		return fmt.Errorf("failed to save message ref: %w", err)
	}
	return nil
}

func (ps *PostgresStorage) RefsByApplication(ctx context.Context, appID string) ([]model.MessageRef, error) {
	rows, err := ps.db.Query(ctx, `
		SELECT application_id, chat_id, message_id
		FROM messages
		WHERE application_id = $1
		ORDER BY chat_id
	`, appID)
	if err != nil {
		return nil, fmt.Errorf("ref query failed: %w", err)
	}
	defer rows.Close()

	var refs []model.MessageRef
	for rows.Next() {
		var ref model.MessageRef
		if err := rows.Scan(&ref.ApplicationID, &ref.RecipientID, &ref.MessageID); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
