package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobintake/internal/api/middleware"
	"jobintake/internal/intake"
)

// ApplicationHandler 负责处理申请相关的 API 请求。
type ApplicationHandler struct {
	service *intake.Service
	gate    *intake.FileGate
	logger  *slog.Logger
	// debug 为 true 时 500 响应附带内部错误详情
	debug bool
}

// NewApplicationHandler 构造 ApplicationHandler。
func NewApplicationHandler(service *intake.Service, gate *intake.FileGate, logger *slog.Logger, debug bool) *ApplicationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplicationHandler{service: service, gate: gate, logger: logger, debug: debug}
}

// SubmitApplication 处理 multipart 表单提交，成功返回 201 与申请编号。
func (h *ApplicationHandler) SubmitApplication(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "invalid multipart form")
		return
	}

	ctx := c.Request.Context()
	files, err := h.gate.Accept(ctx, form)
	if err != nil {
		h.writeError(c, err, "Failed to submit application")
		return
	}

	app, err := h.service.Submit(ctx, form.Value, files, middleware.GetRequestID(c))
	if err != nil {
		h.writeError(c, err, "Failed to submit application")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":           "Application submitted successfully! Check your email for confirmation.",
		"applicationId":     app.ID,
		"applicationNumber": app.ApplicationNumber,
		"application": gin.H{
			"name":        fmt.Sprintf("%s %s", app.FirstName, app.LastName),
			"position":    app.Position,
			"email":       app.Email,
			"submittedAt": app.SubmittedAt,
		},
	})
}

// GetApplications 返回过滤分页后的申请列表。
func (h *ApplicationHandler) GetApplications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.service.List(c.Request.Context(), intake.ListParams{
		Status:   c.Query("status"),
		Position: c.Query("position"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.internalError(c, "Failed to fetch applications", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetApplicationByID 按内部 ID 返回单条申请。
func (h *ApplicationHandler) GetApplicationByID(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		NotFound(c, "Application not found")
		return
	}

	app, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, intake.ErrNotFound) {
			NotFound(c, "Application not found")
			return
		}
		h.internalError(c, "Failed to fetch application", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"application": app})
}

type updateStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// UpdateStatus 流转申请状态并更新备注。
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		NotFound(c, "Application not found")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	app, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status, req.Notes, middleware.GetRequestID(c))
	if err != nil {
		switch {
		case errors.Is(err, intake.ErrInvalidStatus):
			BadRequest(c, "Invalid status")
		case errors.Is(err, intake.ErrNotFound):
			NotFound(c, "Application not found")
		default:
			h.internalError(c, "Failed to update application status", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Application status updated successfully",
		"application": app,
	})
}

// DeleteApplication 删除申请及其存储的文件。
func (h *ApplicationHandler) DeleteApplication(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		NotFound(c, "Application not found")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, intake.ErrNotFound) {
			NotFound(c, "Application not found")
			return
		}
		h.internalError(c, "Failed to delete application", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application deleted successfully"})
}

// GetStatistics 返回总量、状态分布与热门职位统计。
func (h *ApplicationHandler) GetStatistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to fetch statistics", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// writeError 将提交管线的错误映射为 HTTP 响应。
func (h *ApplicationHandler) writeError(c *gin.Context, err error, fallback string) {
	var ve *intake.ValidationError
	var tle *intake.FileTooLargeError
	switch {
	case errors.As(err, &ve):
		BadRequest(c, ve.Error())
	case errors.As(err, &tle):
		BadRequest(c, tle.Error())
	default:
		h.internalError(c, fallback, err)
	}
}

func (h *ApplicationHandler) internalError(c *gin.Context, msg string, err error) {
	middleware.LoggerFromContext(c).Error(msg, slog.String("error", err.Error()))
	if h.debug {
		c.JSON(http.StatusInternalServerError, gin.H{"message": msg, "error": err.Error()})
		return
	}
	Internal(c, msg)
}

func parseID(param string) (uint, bool) {
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
