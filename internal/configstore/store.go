// Package configstore holds small string values keyed by section and key,
// such as the api token and base url. Writes are persisted before they
// return.
package configstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a section or key does not exist.
var ErrNotFound = errors.New("config value not found")

type Store interface {
	GetString(ctx context.Context, section, key string) (string, error)
	SetString(ctx context.Context, section, key, value string) error
}

func notFound(section, key string) error {
	return fmt.Errorf("%s.%s: %w", section, key, ErrNotFound)
}

func validate(section, key string) error {
	if section == "" || key == "" {
		return fmt.Errorf("section and key are required, got %q.%q", section, key)
	}
	return nil
}
