package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PingTimeout 健康检查超时
const PingTimeout = 5 * time.Second

// HealthStatus 端点健康检查结果
type HealthStatus struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}

// Ping 向 chat/completions 发送一个 1 token 的请求，检查端点与凭据是否可用
// client 为 nil 时使用带 5 秒超时的默认客户端
func Ping(ctx context.Context, client *http.Client, baseURL, apiKey, modelName string) HealthStatus {
	if client == nil {
		client = &http.Client{Timeout: PingTimeout}
	}

	body, _ := json.Marshal(map[string]interface{}{
		"model":       modelName,
		"messages":    []map[string]string{{"role": "user", "content": "ping"}},
		"max_tokens":  1,
		"temperature": 0,
	})

	url := strings.TrimRight(baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return HealthStatus{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return HealthStatus{Message: err.Error()}
	}
	defer resp.Body.Close()

	reason := http.StatusText(resp.StatusCode)
	if reason == "" {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 60))
		reason = strings.TrimSpace(string(snippet))
	}
	return HealthStatus{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("%d %s", resp.StatusCode, reason),
	}
}
