package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ai-doctor/internal/knowledge"
)

// Repository archives conversations and their diagnosis reports. The
// archive is best-effort: turns never fail on archive errors and the
// process runs without one when no database is configured.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
}

type postgresRepo struct {
	db *sql.DB
}

// NewRepository builds a Postgres-backed archive.
func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	query := `SELECT id, messages, symptoms, reports, created_at, updated_at FROM conversations WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var c Conversation
	var messagesJSON, symptomsJSON, reportsJSON []byte

	err := row.Scan(
		&c.ID,
		&messagesJSON,
		&symptomsJSON,
		&reportsJSON,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation %s: %w", id, knowledge.ErrNotFound)
		}
		return nil, err
	}

	if len(messagesJSON) > 0 {
		if err := json.Unmarshal(messagesJSON, &c.Messages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
		}
	}
	if len(symptomsJSON) > 0 {
		if err := json.Unmarshal(symptomsJSON, &c.AccumulatedSymptoms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal symptoms: %w", err)
		}
	}
	if len(reportsJSON) > 0 {
		if err := json.Unmarshal(reportsJSON, &c.DiagnosisHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reports: %w", err)
		}
	}

	return &c, nil
}

func (r *postgresRepo) Save(ctx context.Context, c *Conversation) error {
	messagesJSON, err := json.Marshal(c.Messages)
	if err != nil {
		return err
	}
	symptomsJSON, err := json.Marshal(c.AccumulatedSymptoms)
	if err != nil {
		return err
	}
	reportsJSON, err := json.Marshal(c.DiagnosisHistory)
	if err != nil {
		return err
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()

	query := `
		INSERT INTO conversations (id, messages, symptoms, reports, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			messages = $2,
			symptoms = $3,
			reports = $4,
			updated_at = $6
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, messagesJSON, symptomsJSON, reportsJSON, c.CreatedAt, c.UpdatedAt)
	return err
}
