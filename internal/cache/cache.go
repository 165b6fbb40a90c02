// Package cache memoizes upstream catalog responses in SQLite or Redis.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	_ "modernc.org/sqlite"
)

const (
	// DefaultCacheTTL is the default time-to-live for cached entries (1 day)
	DefaultCacheTTL = 24 * time.Hour
	// NegativeCacheTTL is the TTL for empty resolver answers (1 hour)
	NegativeCacheTTL = time.Hour
)

// ErrCacheDisabled is returned by GetGlobalCache when cache.backend is "none".
var ErrCacheDisabled = errors.New("cache disabled")

// FetchFunc represents a function that fetches data from an external source
type FetchFunc[T any] func() (T, error)

// Store is a keyed blob store partitioned by table name.
type Store interface {
	// Get returns the cached data if present and younger than ttl.
	Get(tableName, key string, ttl time.Duration) (string, bool, error)
	// Set stores data; a positive ttl overrides the lookup TTL for this entry.
	Set(tableName, key, data string, ttl time.Duration) error
	// InvalidateSource drops every entry of a table and returns how many went.
	InvalidateSource(tableName string) (int64, error)
	Close() error
}

// CacheDB manages the SQLite database connection for caching
type CacheDB struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

var _ Store = (*CacheDB)(nil)

var (
	globalCache     Store
	globalCacheErr  error
	globalCacheOnce sync.Once
)

// ResetGlobalCache closes the current global cache and resets the singleton
// so the next call to GetGlobalCache will create a new instance.
// This is primarily for testing purposes.
func ResetGlobalCache() error {
	if globalCache != nil {
		if err := globalCache.Close(); err != nil {
			return err
		}
	}
	globalCache = nil
	globalCacheErr = nil
	globalCacheOnce = sync.Once{}
	return nil
}

// SetGlobalCache installs store as the process-wide cache.
func SetGlobalCache(store Store) {
	globalCacheOnce = sync.Once{}
	globalCacheOnce.Do(func() {
		globalCache = store
		globalCacheErr = nil
	})
}

// GetGlobalCache returns the singleton cache store selected by cache.backend
func GetGlobalCache() (Store, error) {
	globalCacheOnce.Do(func() {
		globalCache, globalCacheErr = openBackend()
	})
	if globalCacheErr != nil {
		return nil, globalCacheErr
	}
	return globalCache, nil
}

func openBackend() (Store, error) {
	backend := strings.ToLower(viper.GetString("cache.backend"))
	switch backend {
	case "none", "off", "disabled":
		return nil, ErrCacheDisabled
	case "redis":
		addr := viper.GetString("cache.redis_addr")
		if addr == "" {
			addr = "localhost:6379"
		}
		return NewRedisStore(addr, viper.GetString("cache.redis_password"), viper.GetInt("cache.redis_db"))
	case "", "sqlite":
		dbPath := viper.GetString("cache.dbfile")
		if dbPath == "" {
			dbPath = "./cache.db"
		}
		db, err := NewCacheDB(dbPath)
		if err != nil {
			return nil, err
		}
		for _, schema := range AllCacheSchemas {
			if err := db.CreateTable(schema); err != nil {
				closeErr := db.Close()
				return nil, errors.Join(fmt.Errorf("failed to create cache table: %w", err), closeErr)
			}
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// NewCacheDB creates a new CacheDB instance and opens the database connection
func NewCacheDB(dbPath string) (*CacheDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to cache database: %w", err), closeErr)
	}

	return &CacheDB{
		db:   db,
		path: dbPath,
	}, nil
}

// CreateTable creates a table using the provided schema
func (c *CacheDB) CreateTable(schema string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *CacheDB) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InvalidateSource deletes all entries from the specified cache table
func (c *CacheDB) InvalidateSource(tableName string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := validateTableName(tableName); err != nil {
		return 0, err
	}

	result, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s", tableName))
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	slog.Debug("Cache table cleared", "table", tableName, "rows_deleted", rowsAffected)
	return rowsAffected, nil
}

// validateTableName checks if the table name is in the whitelist
// to prevent SQL injection attacks
func validateTableName(tableName string) error {
	if !ValidCacheTableNames[tableName] {
		return fmt.Errorf("invalid cache table name: %s", tableName)
	}
	return nil
}

// Get retrieves a cached value from the specified table
// Returns the cached data, whether it was from cache, and any error
func (c *CacheDB) Get(tableName, key string, ttl time.Duration) (string, bool, error) {
	if err := validateTableName(tableName); err != nil {
		return "", false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT data, cached_at, ttl_seconds
		FROM %s
		WHERE cache_key = ?
	`, tableName)

	var data string
	var cachedAt time.Time
	var ttlSeconds int64
	err := c.db.QueryRow(query, key).Scan(&data, &cachedAt, &ttlSeconds)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cache: %w", err)
	}

	// Entries written with a shorter TTL expire earlier
	if entryTTL := time.Duration(ttlSeconds) * time.Second; entryTTL > 0 && entryTTL < ttl {
		ttl = entryTTL
	}

	age := time.Now().UTC().Sub(cachedAt)
	if age > ttl {
		slog.Debug("Cache expired", "table", tableName, "key", key, "age", age)
		return "", false, nil
	}

	return data, true, nil
}

// Set stores a value in the cache
func (c *CacheDB) Set(tableName, key, data string, ttl time.Duration) error {
	if err := validateTableName(tableName); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (cache_key, data, cached_at, ttl_seconds)
		VALUES (?, ?, ?, ?)
	`, tableName)

	_, err := c.db.Exec(query, key, data, time.Now().UTC(), int64(ttl/time.Second))
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// ClearExpired removes expired cache entries from the specified table
func (c *CacheDB) ClearExpired(tableName string, ttl time.Duration) error {
	if err := validateTableName(tableName); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().UTC().Add(-ttl)
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE cached_at < ?
	`, tableName)

	result, err := c.db.Exec(query, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clear expired cache: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		slog.Info("Cleared expired cache entries", "table", tableName, "count", rows)
	}

	return nil
}

// GetOrFetch retrieves data from cache or fetches it using the provided function
// T is the type of data being cached
// tableName is the cache table to use (e.g., "discovery_cache", "openurl_cache")
// cacheKey is the unique identifier for this cache entry
// fetchFunc is called if the data is not found in cache or if the cache has expired
func GetOrFetch[T any](tableName, cacheKey string, fetchFunc FetchFunc[T]) (T, bool, error) {
	return GetOrFetchWithTTL(tableName, cacheKey, fetchFunc, nil)
}

// GetOrFetchWithTTL retrieves data from cache or fetches it using the provided function, with a custom TTL.
// The ttlSelector function is called after fetching to determine which TTL to use for caching.
// Fetch errors are returned and never cached.
func GetOrFetchWithTTL[T any](tableName, cacheKey string, fetchFunc FetchFunc[T], ttlSelector func(T) time.Duration) (T, bool, error) {
	var zero T

	store, err := GetGlobalCache()
	if err != nil {
		if errors.Is(err, ErrCacheDisabled) {
			slog.Debug("Cache disabled, fetching directly", "table", tableName)
		} else {
			slog.Warn("Failed to initialize cache, fetching directly", "error", err)
		}
		data, fetchErr := fetchFunc()
		return data, false, fetchErr
	}

	ttl := configuredTTL()

	cached, fromCache, err := store.Get(tableName, cacheKey, ttl)
	if err != nil {
		slog.Warn("Cache lookup failed", "table", tableName, "key", cacheKey, "error", err)
	}
	if err == nil && fromCache {
		var result T
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			slog.Debug("Cache hit", "table", tableName, "key", cacheKey)
			return result, true, nil
		}
		slog.Warn("Failed to unmarshal cached data, will refetch", "table", tableName, "key", cacheKey, "error", err)
	}

	slog.Debug("Cache miss, fetching data", "table", tableName, "key", cacheKey)
	data, err := fetchFunc()
	if err != nil {
		return zero, false, fmt.Errorf("failed to fetch data: %w", err)
	}

	var entryTTL time.Duration
	if ttlSelector != nil {
		entryTTL = ttlSelector(data)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to marshal data for caching", "table", tableName, "key", cacheKey, "error", err)
		return data, false, nil
	}
	if err := store.Set(tableName, cacheKey, string(jsonData), entryTTL); err != nil {
		// Caching failure shouldn't stop the request
		slog.Warn("Failed to cache data", "table", tableName, "key", cacheKey, "error", err)
	} else {
		slog.Debug("Data cached successfully", "table", tableName, "key", cacheKey, "ttl", entryTTL)
	}

	return data, false, nil
}

// SelectNegativeCacheTTL returns a standard TTL selector for negative caching.
// Empty answers are kept for NegativeCacheTTL, everything else for the
// configured TTL.
func SelectNegativeCacheTTL[T any](isEmpty func(T) bool) func(T) time.Duration {
	return func(result T) time.Duration {
		if isEmpty(result) {
			return NegativeCacheTTL
		}
		return 0
	}
}

func configuredTTL() time.Duration {
	ttlStr := viper.GetString("cache.ttl")
	if ttlStr == "" {
		return DefaultCacheTTL
	}
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil || ttl <= 0 {
		slog.Warn("Invalid cache TTL, using default", "ttl", ttlStr, "error", err)
		return DefaultCacheTTL
	}
	return ttl
}
