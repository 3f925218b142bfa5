package handlers

import (
	"net/http"

	gp "gameserver_panel"

	"github.com/gin-gonic/gin"
)

const statusOK = "ok"

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Query server status
// @Description  Sends {"action":"status"} to the control API.
// @Tags         server
// @Produce      json
// @Success      200  {object}  gameserver_panel.ServerStatus
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/server/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.Status(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeServiceError(c, "server_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Last seen status
// @Description  The most recent status this session received, without calling the control API.
// @Tags         server
// @Produce      json
// @Success      200  {object}  models.StatusSnapshot
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/server/last [get]
// @Security     BearerAuth
func (h *Handler) getLastStatus(c *gin.Context) {
	snap, err := h.services.LastStatus(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeServiceError(c, "server_last_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Submit action
// @Description  start and stop begin polling until the server reports ON or OFF; any running poll is cancelled first.
// @Tags         server
// @Accept       json
// @Produce      json
// @Param        body  body      gameserver_panel.ActionRequest  true  "Action"
// @Success      200   {object}  service.DispatchResult
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/v1/server/action [post]
// @Security     BearerAuth
func (h *Handler) postAction(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	action, err := gp.ParseAction(req.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.services.Dispatch(c.Request.Context(), sessionID(c), action)
	if err != nil {
		h.writeServiceError(c, "server_action_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Poll state
// @Tags         server
// @Produce      json
// @Success      200  {object}  service.PollState
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/server/poll [get]
// @Security     BearerAuth
func (h *Handler) getPoll(c *gin.Context) {
	ps, err := h.services.PollState(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeServiceError(c, "server_poll_failed", err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

// @Summary      Cancel poll
// @Tags         server
// @Produce      json
// @Success      200  {object}  service.PollState
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/server/poll/cancel [post]
// @Security     BearerAuth
func (h *Handler) cancelPoll(c *gin.Context) {
	ctx := c.Request.Context()
	sid := sessionID(c)
	if err := h.services.CancelPoll(ctx, sid); err != nil {
		h.writeServiceError(c, "server_poll_cancel_failed", err)
		return
	}
	ps, err := h.services.PollState(ctx, sid)
	if err != nil {
		h.writeServiceError(c, "server_poll_failed", err)
		return
	}
	c.JSON(http.StatusOK, ps)
}
