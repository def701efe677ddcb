package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"landfilter/internal/app"
	"landfilter/internal/model"
)

// Commander runs filter commands against a page session
type Commander interface {
	HandleCommand(ctx context.Context, req model.CommandRequest) model.CommandResponse
}

// CommandHandler exposes the command surface over HTTP
type CommandHandler struct {
	commander Commander
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(commander Commander) *CommandHandler {
	return &CommandHandler{
		commander: commander,
	}
}

// Command handles POST /api/v1/command
func (h *CommandHandler) Command(c *gin.Context) {
	var req model.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.CommandResponse{
			Success: false,
			Message: "Invalid request: " + err.Error(),
		})
		return
	}

	resp := h.commander.HandleCommand(c.Request.Context(), req)
	if app.IsUnknownAction(req.Action) {
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Filters handles GET /api/v1/filters
func (h *CommandHandler) Filters(c *gin.Context) {
	h.run(c, model.ActionListFilters)
}

// Status handles GET /api/v1/status
func (h *CommandHandler) Status(c *gin.Context) {
	h.run(c, model.ActionCheckFilterStatus)
}

func (h *CommandHandler) run(c *gin.Context, action string) {
	resp := h.commander.HandleCommand(c.Request.Context(), model.CommandRequest{Action: action})
	c.JSON(http.StatusOK, resp)
}

// Register mounts the command routes on r
func (h *CommandHandler) Register(r gin.IRoutes) {
	r.POST("/command", h.Command)
	r.GET("/filters", h.Filters)
	r.GET("/status", h.Status)
}
