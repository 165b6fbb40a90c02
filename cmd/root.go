package cmd

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/lepinkainen/catalink/internal/cache"
	"github.com/lepinkainen/catalink/internal/config"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

// stdout receives command output; tests swap it.
var stdout io.Writer = os.Stdout

// CLI represents the complete command structure for the catalink application
type CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging"`

	// Datasette flags
	Datasette   bool   `help:"Export search results to SQLite for Datasette"`
	DatasetteDB string `help:"Path to the Datasette SQLite database file"`

	// Cache flags
	CacheBackend string `help:"Cache backend: sqlite, redis or none"`
	CacheDBFile  string `help:"Path to cache SQLite database file"`
	CacheTTL     string `help:"Cache time-to-live duration (e.g. 24h)"`

	Search   SearchCmd   `cmd:"" help:"Search the catalog and print one link per result"`
	Resolve  ResolveCmd  `cmd:"" help:"Resolve a single citation to a link"`
	Classify ClassifyCmd `cmd:"" help:"Classify raw type identifiers into an item format"`
	Serve    ServeCmd    `cmd:"" help:"Serve searches over HTTP"`
	Cache    CacheCmd    `cmd:"" help:"Manage the response cache"`
}

// CacheCmd groups the cache subcommands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Drop every cached response of a source"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(false)
	initConfig()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("catalink"),
		kong.Description("Search a WorldCat-style catalog and resolve one link per result."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	err := ctx.Run()
	if closeErr := cache.ResetGlobalCache(); closeErr != nil {
		slog.Warn("Failed to close cache", "error", closeErr)
	}
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	config.SetDefaults()
	config.BindEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			slog.Debug("Config file not found, using defaults")
			return
		}
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}
}

// updateGlobalConfig lets explicitly given flags override the config file.
func updateGlobalConfig(cli *CLI) {
	if cli.Verbose {
		initLogging(true)
	}

	if cli.Datasette {
		viper.Set("datasette.enabled", true)
	}
	if cli.DatasetteDB != "" {
		viper.Set("datasette.dbfile", cli.DatasetteDB)
	}

	if cli.CacheBackend != "" {
		viper.Set("cache.backend", cli.CacheBackend)
	}
	if cli.CacheDBFile != "" {
		viper.Set("cache.dbfile", cli.CacheDBFile)
	}
	if cli.CacheTTL != "" {
		viper.Set("cache.ttl", cli.CacheTTL)
	}
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
