// Package openurl builds the subset of OpenURL 1.0 key/value requests needed
// to resolve a journal article citation.
package openurl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lepinkainen/catalink/internal/bib"
	apperrors "github.com/lepinkainen/catalink/internal/errors"
)

// Query keys written by Build.
const (
	KeyISSN   = "rft.issn"
	KeyVolume = "rft.volume"
	KeyIssue  = "rft.issue"
	KeySPage  = "rft.spage"
	KeyDate   = "rft.date"
)

// Profile selects which citation fields must be present.
type Profile string

const (
	// ProfileStrict requires issn, volume, issue, start page and date.
	ProfileStrict Profile = "strict"
	// ProfileLenient drops the issue requirement.
	ProfileLenient Profile = "lenient"
)

// ParseProfile converts a config value to a Profile. Empty means strict.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProfileStrict:
		return ProfileStrict, nil
	case ProfileLenient:
		return ProfileLenient, nil
	default:
		return "", fmt.Errorf("unknown openurl profile %q (want strict or lenient)", s)
	}
}

// Required returns the metadata field names the profile requires.
func (p Profile) Required() []string {
	if p == ProfileLenient {
		return []string{bib.FieldISSN, bib.FieldVolume, bib.FieldStartPage, bib.FieldDate}
	}
	return []string{bib.FieldISSN, bib.FieldVolume, bib.FieldIssue, bib.FieldStartPage, bib.FieldDate}
}

// Builder assembles resolver requests against one endpoint.
type Builder struct {
	Endpoint string
	Profile  Profile
	// Extra is merged into every request, e.g. the wskey.
	Extra url.Values
}

// Request is a built, resolvable OpenURL request.
type Request struct {
	u *url.URL
}

// String returns the full request URL.
func (r *Request) String() string {
	return r.u.String()
}

// Query returns a copy of the request's query parameters.
func (r *Request) Query() url.Values {
	return r.u.Query()
}

// Redacted returns the request URL with the given parameter removed, for use
// as a cache key or in logs.
func (r *Request) Redacted(param string) string {
	clone := *r.u
	q := clone.Query()
	q.Del(param)
	clone.RawQuery = q.Encode()
	return clone.String()
}

// Build validates meta against the profile and serializes it onto the
// endpoint. Missing fields yield a *errors.ValidationError.
func (b Builder) Build(meta bib.ArticleMetadata) (*Request, error) {
	fields := map[string]string{
		bib.FieldISSN:      strings.TrimSpace(meta.ISSN),
		bib.FieldVolume:    strings.TrimSpace(meta.Volume),
		bib.FieldIssue:     strings.TrimSpace(meta.Issue),
		bib.FieldStartPage: strings.TrimSpace(meta.StartPage),
		bib.FieldDate:      strings.TrimSpace(meta.DatePublished),
	}

	profile := b.Profile
	if profile == "" {
		profile = ProfileStrict
	}

	var missing []string
	for _, name := range profile.Required() {
		if fields[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError(missing...)
	}

	u, err := url.Parse(b.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse openurl endpoint: %w", err)
	}

	q := u.Query()
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set(KeyISSN, fields[bib.FieldISSN])
	set(KeyVolume, fields[bib.FieldVolume])
	set(KeyIssue, fields[bib.FieldIssue])
	set(KeySPage, fields[bib.FieldStartPage])
	set(KeyDate, fields[bib.FieldDate])
	for key, values := range b.Extra {
		q.Del(key)
		for _, v := range values {
			q.Add(key, v)
		}
	}

	// Encode sorts by key, which keeps repeated builds byte-identical.
	u.RawQuery = q.Encode()
	return &Request{u: u}, nil
}
