package http

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	syncx "github.com/mind-engage/college-erp/internal/sync"
)

// GET /events?after=0&limit=100
// Attempt completion feed for downstream consumers (gradebooks, analytics).
func ListEventsHandler(events *syncx.EventRepo, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		list, err := events.Since(r.Context(), after, limit)
		if err != nil {
			respondErr(w, log, err)
			return
		}
		if list == nil {
			list = []syncx.Event{}
		}
		respondJSON(w, http.StatusOK, list)
	}
}
