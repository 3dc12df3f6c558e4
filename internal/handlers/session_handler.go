package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aulacast/backend/internal/broadcast"
	"github.com/aulacast/backend/internal/models"
)

type SessionHandler struct {
	service *broadcast.Service
}

func NewSessionHandler(service *broadcast.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

func operatorID(c *gin.Context) string {
	v, _ := c.Get("operator_id")
	id, _ := v.(string)
	return id
}

// Sync pulls the operator's upcoming broadcasts from the platform and
// reconciles them into the local catalog.
func (h *SessionHandler) Sync(c *gin.Context) {
	count, err := h.service.SyncUpcoming(c.Request.Context(), operatorID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"synced":  count,
	})
}

// List returns recent sessions, newest first.
func (h *SessionHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}

	sessions, err := h.service.ListSessions(limit)
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetActive returns the single session currently scheduled or live.
func (h *SessionHandler) GetActive(c *gin.Context) {
	session, err := h.service.GetActiveSession()
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// Create provisions a stream and a bound broadcast on the platform, then
// records the pair locally.
func (h *SessionHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	session, err := h.service.CreateSession(c.Request.Context(), operatorID(c), req.Title, req.Description, req.ScheduledStartTime)
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"session": session,
	})
}

// Start transitions a scheduled session live on the platform and locally.
func (h *SessionHandler) Start(c *gin.Context) {
	session, err := h.service.StartSession(c.Request.Context(), operatorID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// End completes a live session and queues its recording for finalization.
func (h *SessionHandler) End(c *gin.Context) {
	session, err := h.service.EndSession(c.Request.Context(), operatorID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// Status re-reads the remote lifecycle state and reconciles the local record.
func (h *SessionHandler) Status(c *gin.Context) {
	session, err := h.service.CheckStatus(c.Request.Context(), operatorID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// Update edits the descriptive fields of a session record.
func (h *SessionHandler) Update(c *gin.Context) {
	var req models.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	session, err := h.service.UpdateDetails(c.Param("id"), req.Title, req.Description, req.ScheduledStartTime)
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// Override replaces whatever is active with a session backed by an existing
// remote video, demoting the previous records.
func (h *SessionHandler) Override(c *gin.Context) {
	var req models.OverrideSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	session, err := h.service.OverrideSession(c.Request.Context(), operatorID(c), req.RemoteVideoID, req.Title, req.Description)
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"session": session,
	})
}

// ListRecordings returns finalized recordings, newest first.
func (h *SessionHandler) ListRecordings(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}

	recordings, err := h.service.ListRecordings(limit)
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"recordings": recordings,
		"count":      len(recordings),
	})
}

// SaveCredentials stores the operator's platform OAuth tokens.
func (h *SessionHandler) SaveCredentials(c *gin.Context) {
	var req models.SaveCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if err := h.service.SaveCredentials(operatorID(c), req.AccessToken, req.RefreshToken, req.ExpiresAt); err != nil {
		ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Credentials saved",
	})
}
