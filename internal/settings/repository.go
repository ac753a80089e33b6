package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository defines the interface for settings data access
type Repository interface {
	GetSettings(ctx context.Context, userID string) (*UserSettings, error)
	UpsertSettings(ctx context.Context, settings *UserSettings) error

	GetConnectionStatus(ctx context.Context, userID string) (*ConnectionStatus, error)
	UpsertConnectionStatus(ctx context.Context, status *ConnectionStatus) error
}

const schema = `
CREATE TABLE IF NOT EXISTS user_settings (
	user_id         TEXT PRIMARY KEY,
	company_name    TEXT NOT NULL,
	brand_tone      TEXT NOT NULL,
	timezone        TEXT NOT NULL DEFAULT 'UTC',
	language        TEXT NOT NULL DEFAULT 'en',
	email_signature TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS crm_connections (
	user_id       TEXT PRIMARY KEY,
	connected     BOOLEAN NOT NULL DEFAULT FALSE,
	account_email TEXT NOT NULL DEFAULT '',
	connected_at  TIMESTAMPTZ,
	updated_at    TIMESTAMPTZ NOT NULL
);
`

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the settings tables when missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create settings schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSettings(ctx context.Context, userID string) (*UserSettings, error) {
	query := `
		SELECT user_id, company_name, brand_tone, timezone, language, email_signature,
			   created_at, updated_at
		FROM user_settings
		WHERE user_id = $1
	`

	var s UserSettings
	if err := r.db.GetContext(ctx, &s, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return &s, nil
}

func (r *PostgresRepository) UpsertSettings(ctx context.Context, s *UserSettings) error {
	query := `
		INSERT INTO user_settings (
			user_id, company_name, brand_tone, timezone, language, email_signature,
			created_at, updated_at
		) VALUES (
			:user_id, :company_name, :brand_tone, :timezone, :language, :email_signature,
			:created_at, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			brand_tone = EXCLUDED.brand_tone,
			timezone = EXCLUDED.timezone,
			language = EXCLUDED.language,
			email_signature = EXCLUDED.email_signature,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetConnectionStatus(ctx context.Context, userID string) (*ConnectionStatus, error) {
	query := `
		SELECT user_id, connected, account_email, connected_at, updated_at
		FROM crm_connections
		WHERE user_id = $1
	`

	var status ConnectionStatus
	if err := r.db.GetContext(ctx, &status, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get connection status: %w", err)
	}

	return &status, nil
}

func (r *PostgresRepository) UpsertConnectionStatus(ctx context.Context, status *ConnectionStatus) error {
	query := `
		INSERT INTO crm_connections (user_id, connected, account_email, connected_at, updated_at)
		VALUES (:user_id, :connected, :account_email, :connected_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			connected = EXCLUDED.connected,
			account_email = EXCLUDED.account_email,
			connected_at = EXCLUDED.connected_at,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, status); err != nil {
		return fmt.Errorf("failed to upsert connection status: %w", err)
	}

	return nil
}
