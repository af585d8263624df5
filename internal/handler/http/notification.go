package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mlimwengu/CourseHubGo/internal/repository"
	"github.com/mlimwengu/CourseHubGo/internal/service"
	"github.com/mlimwengu/CourseHubGo/pkg/httputil"
	"github.com/mlimwengu/CourseHubGo/pkg/pagination"
)

// NotificationHandler handles HTTP requests for notification feeds.
type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a new notification HTTP handler.
func NewNotificationHandler(notifications *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
	}
}

// notificationFeed is the JSON response for a notification list.
type notificationFeed struct {
	Data        any `json:"data"`
	TotalCount  int `json:"total_count"`
	UnreadCount int `json:"unread_count"`
	Page        int `json:"page"`
	PerPage     int `json:"per_page"`
}

// ListNotifications handles GET /api/v1/users/{id}/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := repository.NotificationFilter{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Page:       params.Page,
		PerPage:    params.PerPage,
	}

	notifications, total, unread, err := h.notifications.ListNotifications(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, notificationFeed{
		Data:        notifications,
		TotalCount:  total,
		UnreadCount: unread,
		Page:        params.Page,
		PerPage:     params.PerPage,
	})
}

// MarkNotificationRead handles PUT /api/v1/users/{id}/notifications/{notificationID}/read
func (h *NotificationHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	err := h.notifications.MarkNotificationRead(r.Context(), chi.URLParam(r, "notificationID"), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
