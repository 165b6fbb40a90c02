package openurl

import "net/url"

// CitationFinderURL rewrites req for the citation finder landing page: the
// original query minus authParam, on host and path, always over https.
func CitationFinderURL(req *Request, host, path, authParam string) string {
	q := req.Query()
	if authParam != "" {
		q.Del(authParam)
	}
	u := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     path,
		RawQuery: q.Encode(),
	}
	return u.String()
}
