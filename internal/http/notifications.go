package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/auth"
)

type NotificationsController struct {
	store NotificationStore
}

func NewNotificationsController(store NotificationStore) *NotificationsController {
	return &NotificationsController{store: store}
}

// List returns the current user's notifications
// GET /api/notifications?unread=true&page=1&page_size=20
func (nc *NotificationsController) List(c *gin.Context) {
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	page, pageSize := parsePage(c, 20, 100)

	list, total, err := nc.store.List(auth.GetUserID(c), unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		respondInternalError(c, err, "list notifications")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(list, total, page, pageSize))
}

// UnreadCount returns how many notifications are unread
// GET /api/notifications/unread-count
func (nc *NotificationsController) UnreadCount(c *gin.Context) {
	count, err := nc.store.UnreadCount(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "unread count")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkRead marks one notification as read
// POST /api/notifications/:id/read
func (nc *NotificationsController) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := nc.store.MarkRead(auth.GetUserID(c), id); err != nil {
		respondServiceError(c, err, "mark notification read")
		return
	}
	respondSuccess(c, "notification marked as read")
}

// MarkAllRead marks every notification of the user as read
// POST /api/notifications/read-all
func (nc *NotificationsController) MarkAllRead(c *gin.Context) {
	updated, err := nc.store.MarkAllRead(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "mark all notifications read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
