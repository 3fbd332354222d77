package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"stockroom/internal/domain"
	"stockroom/internal/storage"
)

// Query parameter helpers shared by the handlers. Bad values fall back to
// defaults instead of erroring; the storage layer clamps them again anyway.

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parsePageRequest(r *http.Request) storage.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return storage.PageRequest{Page: page, Limit: limit}
}

func parseSortOrder(r *http.Request) storage.SortOrder {
	if r.URL.Query().Get("sort_order") == "asc" {
		return storage.SortAsc
	}
	return storage.SortDesc
}

// parseDateRange reads from/to as RFC3339 timestamps or plain dates. A bare
// "to" date is widened to the end of that day so the range is inclusive.
func parseDateRange(r *http.Request) domain.DateRange {
	var rng domain.DateRange
	if from := r.URL.Query().Get("from"); from != "" {
		rng.From = parseTimeParam(from, false)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		rng.To = parseTimeParam(to, true)
	}
	return rng
}

func parseTimeParam(value string, endOfDay bool) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}
