package handler

import (
	"fmt"
	"net/http"
	"strings"
)

// DatasetETag returns a weak ETag for a view of the dataset applied at
// sequence seq. Format: W/"<view>-<seq>"
func DatasetETag(view string, seq uint64) string {
	return fmt.Sprintf(`W/"%s-%d"`, view, seq)
}

// CheckIfNoneMatch reports whether the If-None-Match header names etag,
// in which case the client copy is current. Comparison is weak.
func CheckIfNoneMatch(r *http.Request, etag string) bool {
	header := r.Header.Get("If-None-Match")
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}

// serveCached sets the ETag header and answers 304 when the client already
// holds the current view. It returns true when the response is complete.
func serveCached(w http.ResponseWriter, r *http.Request, view string, seq uint64) bool {
	etag := DatasetETag(view, seq)
	w.Header().Set("ETag", etag)
	if CheckIfNoneMatch(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}
