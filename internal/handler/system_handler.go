package handler

import (
	"net/http"

	"github.com/ashwinyue/next-augment/internal/config"
	"github.com/ashwinyue/next-augment/internal/model"
	"github.com/ashwinyue/next-augment/internal/service/llm"
	"github.com/gin-gonic/gin"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	cfg    *config.Config
	client *http.Client // 健康检查使用，nil 时用默认客户端
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(cfg *config.Config, client *http.Client) *SystemHandler {
	return &SystemHandler{cfg: cfg, client: client}
}

// ModeInfo 模式信息
type ModeInfo struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ListModes 列出生成模式
// GET /api/v1/modes
func (h *SystemHandler) ListModes(c *gin.Context) {
	modes := make([]ModeInfo, 0, len(model.AllModes))
	for _, m := range model.AllModes {
		modes = append(modes, ModeInfo{Value: string(m), Label: m.Label()})
	}
	Success(c, modes)
}

// HealthCheckRequest 端点健康检查请求，字段留空时使用配置中的值
type HealthCheckRequest struct {
	ModelName string `json:"model_name"`
	APIKey    string `json:"api_key"`
	BaseURL   string `json:"base_url"`
}

// HealthCheck 检查模型端点是否可用
// POST /api/v1/health-check
func (h *SystemHandler) HealthCheck(c *gin.Context) {
	var req HealthCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.ModelName == "" {
		req.ModelName = h.cfg.LLM.ModelName
	}
	if req.APIKey == "" {
		req.APIKey = h.cfg.LLM.APIKey
	}
	if req.BaseURL == "" {
		req.BaseURL = h.cfg.LLM.BaseURL
	}
	if req.ModelName == "" {
		BadRequest(c, "model_name is required")
		return
	}

	Success(c, llm.Ping(c.Request.Context(), h.client, req.BaseURL, req.APIKey, req.ModelName))
}
