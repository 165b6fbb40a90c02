// Package cmdutil holds helpers shared by the CLI commands.
package cmdutil

import (
	"fmt"
	"log/slog"

	"github.com/lepinkainen/catalink/internal/datastore"
	"github.com/spf13/viper"
)

const defaultDatabaseName = "catalink"

// newStore is swapped in tests.
var newStore = func() (datastore.Store, error) {
	switch mode := viper.GetString("datasette.mode"); mode {
	case "", "local":
		dbPath := viper.GetString("datasette.dbfile")
		if dbPath == "" {
			dbPath = "./catalink.db"
		}
		return datastore.NewSQLiteStore(dbPath), nil
	case "remote":
		remoteURL := viper.GetString("datasette.remote_url")
		if remoteURL == "" {
			return nil, fmt.Errorf("datasette.remote_url is required in remote mode")
		}
		return datastore.NewDatasetteClient(remoteURL, viper.GetString("datasette.api_token")), nil
	default:
		return nil, fmt.Errorf("unknown datasette mode %q (want local or remote)", mode)
	}
}

// WriteToDatastore exports items through mapper when datasette.enabled is
// set. description names the items in log lines.
func WriteToDatastore[T any](items []T, schema, table, description string, mapper func(T) map[string]any) error {
	if !viper.GetBool("datasette.enabled") {
		return nil
	}

	store, err := newStore()
	if err != nil {
		return err
	}
	if err := store.Connect(); err != nil {
		return fmt.Errorf("failed to connect to datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close datastore", "error", err)
		}
	}()

	if err := store.CreateTable(schema); err != nil {
		return err
	}

	records := make([]map[string]any, len(items))
	for i, item := range items {
		records[i] = mapper(item)
	}

	database := viper.GetString("datasette.database")
	if database == "" {
		database = defaultDatabaseName
	}
	if err := store.BatchInsert(database, table, records); err != nil {
		return fmt.Errorf("failed to write %s: %w", description, err)
	}

	slog.Info("Wrote to datastore", "what", description, "count", len(records), "table", table)
	return nil
}
