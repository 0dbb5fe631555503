package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/models"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/repository"
	"github.com/wenwu/saas-platform/botdeploy-service/internal/service"
)

type Handler struct {
	deployService *service.DeployService
	keyRepo       *repository.DeployKeyRepository
	botRepo       *repository.BotRepository
	logRepo       *repository.ActionLogRepository
}

func NewHandler(deployService *service.DeployService, keyRepo *repository.DeployKeyRepository, botRepo *repository.BotRepository, logRepo *repository.ActionLogRepository) *Handler {
	return &Handler{
		deployService: deployService,
		keyRepo:       keyRepo,
		botRepo:       botRepo,
		logRepo:       logRepo,
	}
}

// ==================== User API Handlers ====================

// Deploy triggers a new bot deployment for the authenticated user
func (h *Handler) Deploy(c *gin.Context) {
	var req models.DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.UserID = c.GetString("userID")

	resp, err := h.deployService.Deploy(c.Request.Context(), &req)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Reason})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListMyBots lists the authenticated user's bots
func (h *Handler) ListMyBots(c *gin.Context) {
	bots, err := h.deployService.ListBots(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bots": bots})
}

// DeleteMyBot deletes one of the authenticated user's bots
func (h *Handler) DeleteMyBot(c *gin.Context) {
	appName := c.Param("app_name")
	if appName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_name required"})
		return
	}

	resp, err := h.deployService.DeleteBot(c.Request.Context(), c.GetString("userID"), appName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RestartMyBot restarts one of the authenticated user's bots
func (h *Handler) RestartMyBot(c *gin.Context) {
	appName := c.Param("app_name")
	if appName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_name required"})
		return
	}

	resp, err := h.deployService.RestartBot(c.Request.Context(), c.GetString("userID"), appName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateMySession replaces the session token of one of the
// authenticated user's bots and restarts it
func (h *Handler) UpdateMySession(c *gin.Context) {
	appName := c.Param("app_name")
	if appName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_name required"})
		return
	}

	var req models.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.deployService.UpdateSession(c.Request.Context(), c.GetString("userID"), appName, req.SessionToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetTrialStatus reports free-trial eligibility
func (h *Handler) GetTrialStatus(c *gin.Context) {
	resp, err := h.deployService.TrialStatus(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ==================== Callback API Handlers ====================

// ConnectionSignal ingests health reports for freshly deployed
// instances from the health-reporting collaborator
func (h *Handler) ConnectionSignal(c *gin.Context) {
	var cb models.ConnectionCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if cb.Outcome != models.ConnectionOutcomeHealthy && cb.Outcome != models.ConnectionOutcomeInvalidSession {
		c.JSON(http.StatusBadRequest, gin.H{"error": "outcome must be healthy or invalid-session"})
		return
	}

	delivered := h.deployService.SignalConnection(cb.AppName, cb.Outcome, cb.Detail)
	c.JSON(http.StatusOK, gin.H{"success": true, "delivered": delivered})
}

// ==================== Internal Admin API Handlers ====================

// CreateDeployKey mints a new limited-use deploy key
func (h *Handler) CreateDeployKey(c *gin.Context) {
	var req models.CreateDeployKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UsesLeft <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uses_left must be positive"})
		return
	}

	key := &models.DeployKey{
		Key:       uuid.New().String(),
		UsesLeft:  req.UsesLeft,
		GrantedBy: req.GrantedBy,
		Note:      req.Note,
	}
	if err := h.keyRepo.Create(c.Request.Context(), key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.CreateDeployKeyResponse{Key: key.Key, UsesLeft: key.UsesLeft})
}

// ListDeployKeys lists recently minted deploy keys
func (h *Handler) ListDeployKeys(c *gin.Context) {
	keys, err := h.keyRepo.List(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// GetDeployKey looks up a single deploy key (admin)
func (h *Handler) GetDeployKey(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key required"})
		return
	}

	k, err := h.keyRepo.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "deploy key not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, k)
}

// ListUserBots lists any user's bots (admin)
func (h *Handler) ListUserBots(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	bots, err := h.botRepo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bots": bots})
}

// GetAppInfo returns live platform details for an app (admin)
func (h *Handler) GetAppInfo(c *gin.Context) {
	appName := c.Param("app_name")
	if appName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_name required"})
		return
	}

	info, err := h.deployService.AppInfo(c.Request.Context(), appName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "app not found on the platform"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetBotLogs returns the action trail for an app (admin)
func (h *Handler) GetBotLogs(c *gin.Context) {
	appName := c.Param("app_name")
	if appName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_name required"})
		return
	}

	logs, err := h.logRepo.GetByAppName(c.Request.Context(), appName, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
