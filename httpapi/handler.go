package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flowstate/coderunner/playground"
)

const onlineMessage = "All languages run online - no installation required!"

// executeRequest is the body of POST /execute
type executeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Input    string `json:"input"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler serves the playground contract over HTTP
type Handler struct {
	logger  *zap.Logger
	service *playground.Service
}

// NewHandler creates a new Handler
func NewHandler(logger *zap.Logger, service *playground.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Execute runs one submission. Execution failures are reported in the
// response body with status 200; only malformed requests get a 4xx.
func (h *Handler) Execute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	resp, err := h.service.Execute(c.Request.Context(), req.Code, req.Language, req.Input)
	switch {
	case errors.Is(err, playground.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Code and language are required"})
		return
	case err != nil:
		h.logger.Warn("execution slot not acquired", zap.String("language", req.Language), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	h.logger.Info("execution complete",
		zap.String("language", resp.Language),
		zap.String("status", resp.Status),
		zap.String("execution_time", resp.ExecutionTime))

	c.JSON(http.StatusOK, resp)
}

// Languages lists the catalog of the active backend
func (h *Handler) Languages(c *gin.Context) {
	langs := h.service.ListSupportedLanguages()
	body := gin.H{
		"success":   true,
		"languages": langs,
		"count":     len(langs),
		"online":    h.service.Online(),
	}
	if h.service.Online() {
		body["message"] = onlineMessage
	}
	c.JSON(http.StatusOK, body)
}

// Health reports backend availability. The status code is 200 either way so
// that dashboards can read the details of an unavailable backend.
func (h *Handler) Health(c *gin.Context) {
	health := h.service.CheckHealth(c.Request.Context())

	status := "unavailable"
	if health.Available {
		status = "healthy"
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   health.Available,
		"status":    status,
		"available": health.Available,
		"backend":   health.Backend,
		"message":   health.Message,
		"details":   health.Details,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Templates returns the starter programs of one language
func (h *Handler) Templates(c *gin.Context) {
	language := c.Param("language")

	templates, err := h.service.Templates(language)
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Templates not found for language: " + language})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"language":  language,
		"templates": templates,
	})
}
