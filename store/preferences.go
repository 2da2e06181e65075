// store/preferences.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ViniZap4/notes-server/domain"
)

// Preference keys.
const (
	PrefSortKey   = "sort_by"
	PrefSortOrder = "sort_order"
	PrefViewMode  = "view_mode"
)

// GetPreference returns the stored value and whether the key exists.
func (s *Store) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.queryRow(ctx, "SELECT pref_value FROM preferences WHERE pref_key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(mapErr(err), domain.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get preference %s: %w", key, mapErr(err))
	}
	return value, true, nil
}

// SetPreference stores value under key, replacing any previous value.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	if _, err := s.exec(ctx, s.dialect.upsertPref, key, value); err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}
