package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/notify"
	"github.com/mind-engage/college-erp/internal/rbac"
)

// Inbox is the per-user notification store.
type Inbox interface {
	ListForRecipient(ctx context.Context, recipientID string, limit, offset int) ([]notify.Message, int, error)
	MarkRead(ctx context.Context, recipientID, id string) (bool, error)
}

// GET /notifications?limit=50&offset=0
func ListNotificationsHandler(inbox Inbox, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pagingFrom(r)
		list, total, err := inbox.ListForRecipient(r.Context(), rbac.SubjectFromContext(r.Context()), limit, offset)
		if err != nil {
			respondErr(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, page[notify.Message]{Items: list, Limit: limit, Offset: offset, Total: total})
	}
}

// POST /notifications/{id}/read
func MarkNotificationReadHandler(inbox Inbox, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, err := inbox.MarkRead(r.Context(), rbac.SubjectFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			respondErr(w, log, err)
			return
		}
		if !ok {
			respondError(w, http.StatusNotFound, "not_found", "notification not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
