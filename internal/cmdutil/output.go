package cmdutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lepinkainen/catalink/internal/search"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Render.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// Render writes resp to w in format.
func Render(w io.Writer, resp *search.Response, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()
	case "", FormatText:
		return renderText(w, resp)
	default:
		return fmt.Errorf("unknown output format %q (want json, yaml or text)", format)
	}
}

func renderText(w io.Writer, resp *search.Response) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d results for %q (%s)\n", resp.Total, resp.Query, resp.Strategy)
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "%2d. [%s] %s\n", i+1, r.Format, r.Title)
		if by := byline(r.Author, r.Date); by != "" {
			fmt.Fprintf(&b, "    %s\n", by)
		}
		fmt.Fprintf(&b, "    %s\n", r.Link)
	}
	if resp.LoadedLink != "" {
		fmt.Fprintf(&b, "All results: %s\n", resp.LoadedLink)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func byline(author, date string) string {
	switch {
	case author != "" && date != "":
		return author + ", " + date
	case author != "":
		return author
	default:
		return date
	}
}
