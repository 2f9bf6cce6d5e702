package repository

import (
	"time"
)

// Cache keys invalidated by CRUD writes and vote commits.
const (
	CacheKeyCategories = "cache:categories"
	CacheKeyResults    = "cache:results"
	CacheKeyDashboard  = "cache:dashboard"
)

// CacheRepository defines cache operations backed by Redis.
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
	Increment(key string) (int64, error)
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	Exists(key string) (bool, error)
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
	// InvalidateKeys drops the given keys after a successful write. It is the
	// side-effecting hook CRUD paths call; a miss is not an error.
	InvalidateKeys(keys ...string) error
}
