package configstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/papaburgs/voidinvestor/internal/db"
)

// SQL keeps values in the config table of any database db.Connect opens.
type SQL struct {
	db *sqlx.DB
}

var _ Store = (*SQL)(nil)

// NewSQL wraps an open database and makes sure the config table exists.
func NewSQL(ctx context.Context, conn *sqlx.DB) (*SQL, error) {
	if err := db.InitSchema(ctx, conn); err != nil {
		return nil, err
	}
	return &SQL{db: conn}, nil
}

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) GetString(ctx context.Context, section, key string) (string, error) {
	if err := validate(section, key); err != nil {
		return "", err
	}
	var value string
	q := s.db.Rebind(`SELECT value FROM config WHERE section = ? AND name = ?`)
	err := s.db.GetContext(ctx, &value, q, section, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound(section, key)
	}
	if err != nil {
		return "", fmt.Errorf("read %s.%s: %w", section, key, err)
	}
	return value, nil
}

func (s *SQL) SetString(ctx context.Context, section, key, value string) error {
	if err := validate(section, key); err != nil {
		return err
	}
	q := s.db.Rebind(`INSERT INTO config (section, name, value, updated) VALUES (?, ?, ?, ?)
		ON CONFLICT (section, name) DO UPDATE SET value = excluded.value, updated = excluded.updated`)
	if _, err := s.db.ExecContext(ctx, q, section, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("write %s.%s: %w", section, key, err)
	}
	return nil
}
