// Package storage provides the string-keyed persistent store used for the
// auth token, cached driver data and route snapshots. Callers treat storage
// failures as soft: log, degrade to absent, keep going.
package storage

import (
	"context"
	"errors"
)

// Well-known storage keys.
const (
	KeyAuthToken    = "auth_token"
	KeyUserData     = "user_data"
	KeyDriverID     = "driver_id"
	KeyCurrentRoute = "current_route"
	KeyRouteHistory = "route_history"
	KeyAppSettings  = "app_settings"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a string-keyed key-value store. Values are opaque strings;
// callers serialize their own JSON.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
