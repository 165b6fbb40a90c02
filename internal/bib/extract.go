package bib

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/lepinkainen/catalink/internal/errors"
)

// Field names reported by ExtractArticle.
const (
	FieldISSN      = "issn"
	FieldVolume    = "volume"
	FieldIssue     = "issue"
	FieldStartPage = "start_page"
	FieldDate      = "date_published"
)

// ArticleExtraction is the per-field outcome of reading an article sub-graph.
// Missing lists fields that were absent or malformed; Problems keeps the
// malformed ones for logging.
type ArticleExtraction struct {
	Metadata ArticleMetadata
	Missing  []string
	Problems []*apperrors.ExtractionError
}

// Complete reports whether every field was extracted.
func (a ArticleExtraction) Complete() bool {
	return len(a.Missing) == 0
}

// ExtractArticle reads the nested article relations of a discovery bib:
//
//	article.isPartOf -> PublicationIssue{issueNumber}
//	issue.isPartOf   -> PublicationVolume{volumeNumber}
//	volume.isPartOf  -> Periodical{issn}
//
// plus pageStart and datePublished on the article itself. A missing or
// mistyped hop marks the dependent fields absent; it never fails.
func ExtractArticle(node map[string]any) ArticleExtraction {
	var out ArticleExtraction

	take := func(field string, value string, err *apperrors.ExtractionError) string {
		if err != nil && !seen(out.Problems, err) {
			out.Problems = append(out.Problems, err)
		}
		if value == "" {
			out.Missing = append(out.Missing, field)
		}
		return value
	}

	issue, issueErr := child(node, "isPartOf")
	volume, volumeErr := child(issue, "isPartOf")
	periodical, periodicalErr := child(volume, "isPartOf")

	issn, err := scalar(periodical, "issn")
	out.Metadata.ISSN = take(FieldISSN, issn, firstErr(issueErr, volumeErr, periodicalErr, err))

	volNum, err := scalar(volume, "volumeNumber")
	out.Metadata.Volume = take(FieldVolume, volNum, firstErr(issueErr, volumeErr, err))

	issueNum, err := scalar(issue, "issueNumber")
	out.Metadata.Issue = take(FieldIssue, issueNum, firstErr(issueErr, err))

	page, err := scalar(node, "pageStart")
	out.Metadata.StartPage = take(FieldStartPage, page, err)

	date, err := scalar(node, "datePublished")
	out.Metadata.DatePublished = take(FieldDate, date, err)

	return out
}

// child follows one relation. A nil parent yields a nil child without error
// so that only the first broken hop is reported.
func child(parent map[string]any, key string) (map[string]any, *apperrors.ExtractionError) {
	if parent == nil {
		return nil, nil
	}
	raw, ok := parent[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case []any:
		// Multi-valued relations: take the first object.
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				return m, nil
			}
		}
		return nil, apperrors.NewExtractionError(key, "no object in relation list")
	default:
		return nil, apperrors.NewExtractionError(key, fmt.Sprintf("unexpected type %T", raw))
	}
}

// scalar reads a string-ish leaf. Numbers are formatted without exponent;
// single-element lists are unwrapped.
func scalar(node map[string]any, key string) (string, *apperrors.ExtractionError) {
	if node == nil {
		return "", nil
	}
	raw, ok := node[key]
	if !ok || raw == nil {
		return "", nil
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []any:
		if len(v) == 0 {
			return "", nil
		}
		if s, ok := v[0].(string); ok {
			return strings.TrimSpace(s), nil
		}
		return "", apperrors.NewExtractionError(key, fmt.Sprintf("unexpected list element %T", v[0]))
	default:
		return "", apperrors.NewExtractionError(key, fmt.Sprintf("unexpected type %T", raw))
	}
}

func seen(list []*apperrors.ExtractionError, err *apperrors.ExtractionError) bool {
	for _, e := range list {
		if e == err {
			return true
		}
	}
	return false
}

func firstErr(errs ...*apperrors.ExtractionError) *apperrors.ExtractionError {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
