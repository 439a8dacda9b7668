package httpx

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// pageParams reads ?limit and ?offset. Missing or malformed values fall back to
// the defaults; limit is clamped to [1, maxPageLimit] and offset to >= 0.
func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	intOr := func(key string, def int) int {
		if n, err := strconv.Atoi(q.Get(key)); err == nil {
			return n
		}
		return def
	}
	return min(max(intOr("limit", defaultPageLimit), 1), maxPageLimit), max(intOr("offset", 0), 0)
}

// optionalQuery returns the trimmed value of key, or nil when it is blank.
func optionalQuery(r *http.Request, key string) *string {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		return &v
	}
	return nil
}

// optionalBoolQuery is optionalQuery for booleans; unparsable counts as absent.
func optionalBoolQuery(r *http.Request, key string) *bool {
	v := optionalQuery(r, key)
	if v == nil {
		return nil
	}
	if b, err := strconv.ParseBool(*v); err == nil {
		return &b
	}
	return nil
}
