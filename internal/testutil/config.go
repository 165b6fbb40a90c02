package testutil

import (
	"testing"

	"github.com/spf13/viper"
)

// Test credentials installed by SetTestConfig.
const (
	TestWSKey       = "test-wskey"
	TestAccessToken = "test-access-token"
)

// ResetConfig resets viper now and again when the test completes.
func ResetConfig(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
}

// SetTestConfig resets viper and installs credentials plus a disabled cache,
// so nothing under test reaches a real backend by accident.
func SetTestConfig(t *testing.T) {
	t.Helper()

	ResetConfig(t)
	viper.Set("catalog.wskey", TestWSKey)
	viper.Set("catalog.access_token", TestAccessToken)
	viper.Set("cache.backend", "none")
}

// SetViperValue sets a viper configuration value and restores the previous
// value on cleanup. Viper has no Unset, so a key that was unset stays set.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)
	viper.Set(key, value)

	t.Cleanup(func() {
		if hadValue {
			viper.Set(key, oldValue)
		}
	})
}

// SetupTestCache points the SQLite cache backend at the sandbox and returns
// the database path. Callers reset the cache singleton themselves.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("cache", "test-cache.db")
	env.WriteFile("cache/.keep", nil)

	SetViperValue(t, "cache.backend", "sqlite")
	SetViperValue(t, "cache.dbfile", dbPath)
	SetViperValue(t, "cache.ttl", "24h")

	return dbPath
}

// SetupDatasetteDB enables the datasette export into the sandbox and returns
// the database path.
func SetupDatasetteDB(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("test.db")
	SetViperValue(t, "datasette.enabled", true)
	SetViperValue(t, "datasette.dbfile", dbPath)

	return dbPath
}
