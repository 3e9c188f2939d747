// Package prefs persists small user and operator flags in Redis.
package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	keyBillingTestMode = "flags:billing:test_mode"
	keySidebarPrefix   = "prefs:sidebar:"
)

// Store reads and writes flag values. All flags are stored as "1"/"0".
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// BillingTestMode reports whether billing runs against test credentials.
// An unset flag means test mode; the default is written back so the first
// read settles the stored value.
func (s *Store) BillingTestMode(ctx context.Context) (bool, error) {
	val, err := s.rdb.Get(ctx, keyBillingTestMode).Result()
	if errors.Is(err, redis.Nil) {
		if err := s.SetBillingTestMode(ctx, true); err != nil {
			return true, err
		}
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("prefs: read billing mode: %w", err)
	}
	return val == "1", nil
}

// SetBillingTestMode persists the billing mode flag.
func (s *Store) SetBillingTestMode(ctx context.Context, testMode bool) error {
	if err := s.rdb.Set(ctx, keyBillingTestMode, boolValue(testMode), 0).Err(); err != nil {
		return fmt.Errorf("prefs: write billing mode: %w", err)
	}
	return nil
}

// SidebarCollapsed reports the user's persisted sidebar state. Unset means
// expanded.
func (s *Store) SidebarCollapsed(ctx context.Context, userID string) (bool, error) {
	val, err := s.rdb.Get(ctx, keySidebarPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("prefs: read sidebar state: %w", err)
	}
	return val == "1", nil
}

// SetSidebarCollapsed persists the user's sidebar state.
func (s *Store) SetSidebarCollapsed(ctx context.Context, userID string, collapsed bool) error {
	if err := s.rdb.Set(ctx, keySidebarPrefix+userID, boolValue(collapsed), 0).Err(); err != nil {
		return fmt.Errorf("prefs: write sidebar state: %w", err)
	}
	return nil
}

func boolValue(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
