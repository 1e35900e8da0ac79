package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rankrunner/rankrunner/internal/apperrors"
	"github.com/rankrunner/rankrunner/internal/logger"
	"github.com/rankrunner/rankrunner/internal/service"
)

type LeaderboardHandler struct {
	leaderboardService service.LeaderboardService
	logger             *logger.Logger
}

func NewLeaderboardHandler(leaderboardService service.LeaderboardService, log *logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
		logger:             log.With("component", "LeaderboardHandler"),
	}
}

func (h *LeaderboardHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Healthz)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/users", h.ListUsers)
		v1.POST("/users", h.AddUser)
		v1.POST("/users/:id/claim", h.ClaimPoints)
		v1.GET("/history", h.GetHistory)
		v1.GET("/podium", h.GetPodium)
	}
}

type AddUserRequest struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *LeaderboardHandler) ListUsers(c *gin.Context) {
	users, err := h.leaderboardService.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *LeaderboardHandler) AddUser(c *gin.Context) {
	var req AddUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    apperrors.CodeInvalidInput,
			Message: "request body must be JSON with a name field",
		})
		return
	}

	user, err := h.leaderboardService.AddUser(c.Request.Context(), req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *LeaderboardHandler) ClaimPoints(c *gin.Context) {
	userID := c.Param("id")

	result, err := h.leaderboardService.ClaimPoints(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *LeaderboardHandler) GetHistory(c *gin.Context) {
	entries, err := h.leaderboardService.GetHistory(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *LeaderboardHandler) GetPodium(c *gin.Context) {
	podium, err := h.leaderboardService.GetPodium(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"podium": podium})
}

func (h *LeaderboardHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *LeaderboardHandler) respondError(c *gin.Context, err error) {
	status := apperrors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "error", err, "path", c.FullPath())
	}

	c.JSON(status, errorResponse{
		Code:    apperrors.Code(err),
		Message: errorMessage(err),
	})
}

// errorMessage keeps wrapped storage details out of API responses.
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}

	switch apperrors.Code(err) {
	case apperrors.CodeNotFound:
		return "not found"
	case apperrors.CodeInvalidInput:
		return "invalid input"
	default:
		return "internal server error"
	}
}
