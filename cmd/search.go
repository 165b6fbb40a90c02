package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/catalink/internal/cmdutil"
	"github.com/lepinkainen/catalink/internal/config"
	"github.com/lepinkainen/catalink/internal/datastore"
	"github.com/lepinkainen/catalink/internal/fileutil"
	"github.com/lepinkainen/catalink/internal/search"
	"github.com/lepinkainen/catalink/internal/tui"
	"github.com/spf13/viper"
)

var selectResult = tui.Select

// SearchCmd represents the search command
type SearchCmd struct {
	Query       []string `arg:"" help:"Search terms"`
	Articles    bool     `short:"a" help:"Search articles and chapters (same as --strategy article)"`
	Strategy    string   `help:"Search strategy: catalog or article (defaults to search.strategy in config)"`
	Start       int      `help:"Index of the first result" default:"0"`
	PerPage     int      `short:"n" help:"Number of results to show" default:"10"`
	Format      string   `short:"f" help:"Output format" enum:"text,json,yaml" default:"text"`
	Output      string   `short:"o" help:"Also write the results to a .json or .yaml file"`
	Overwrite   bool     `help:"Overwrite an existing output file"`
	Interactive bool     `short:"i" help:"Pick a result interactively and print its link"`
}

func (s *SearchCmd) strategy() (search.Strategy, error) {
	if s.Articles {
		return search.Article, nil
	}
	name := s.Strategy
	if name == "" {
		name = viper.GetString("search.strategy")
	}
	return search.ParseStrategy(name)
}

func (s *SearchCmd) Run() error {
	strategy, err := s.strategy()
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	searcher, err := newSearcher(cfg, strategy, nil)
	if err != nil {
		return err
	}

	query := strings.Join(s.Query, " ")
	resp, err := searcher.Search(context.Background(), search.Request{
		Query:   query,
		Start:   s.Start,
		PerPage: s.PerPage,
	})
	if err != nil {
		return err
	}

	rows := datastore.ResultRows(resp.Query, resp.Strategy, s.Start, resp.Results, time.Now())
	if err := cmdutil.WriteToDatastore(rows, datastore.SearchResultsSchema, datastore.SearchResultsTable, "search results", datastore.ResultRow.Map); err != nil {
		slog.Warn("Datasette export failed", "error", err)
	}

	if s.Output != "" {
		if _, err := fileutil.WriteDataFile(resp, s.Output, s.Overwrite); err != nil {
			return err
		}
	}

	if s.Interactive {
		sel, err := selectResult(resp.Query, resp.Total, resp.Results)
		if err != nil {
			return err
		}
		if sel.Action == tui.ActionSelected && sel.Selection != nil {
			_, err = fmt.Fprintln(stdout, sel.Selection.Link)
			return err
		}
		return nil
	}

	return cmdutil.Render(stdout, resp, s.Format)
}
