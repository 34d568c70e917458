package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/malbeclabs/salesdash/api/metrics"
	"github.com/malbeclabs/salesdash/dashboard/pkg/filter"
)

// ETag identifies a response by snapshot, endpoint and dropdown state. The
// dataset never changes after load, so equal tags always mean equal bodies.
func ETag(snapshot, endpoint string, c filter.Criteria) string {
	d := xxhash.New()
	// Every part is length prefixed and every list counted, so distinct
	// states never encode to the same bytes.
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = d.WriteString(strconv.Itoa(len(p)))
			_, _ = d.WriteString(":")
			_, _ = d.WriteString(p)
		}
	}
	write(snapshot, endpoint, c.Type, c.Product, c.Customer)
	write(strconv.Itoa(len(c.Brands)))
	write(c.Brands...)
	write(strconv.Itoa(len(c.Stores)))
	write(c.Stores...)
	return fmt.Sprintf(`"%016x"`, d.Sum64())
}

// notModified sets the ETag header and answers 304 when the client already
// holds the response.
func (h *Handlers) notModified(w http.ResponseWriter, r *http.Request, endpoint string, c filter.Criteria) bool {
	tag := ETag(h.data.ID(), endpoint, c)
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if matchETag(r.Header.Get("If-None-Match"), tag) {
		metrics.NotModifiedTotal.Inc()
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func matchETag(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}
