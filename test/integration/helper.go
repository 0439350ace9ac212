package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dpang/order-server/pkg/jwt"
)

// 教学说明：测试辅助工具
// 集成测试需要一个已启动的订单服务以及它的三个下游（商品/积分/用户），
// 默认跳过；设置ORDER_SERVER_URL后针对真实环境运行

const (
	// Timeout HTTP请求超时时间
	Timeout = 10 * time.Second

	// defaultJWTSecret 与config.yaml默认值一致，可用ORDER_SERVER_JWT_SECRET覆盖
	defaultJWTSecret = "your-secret-key-change-in-production"
)

// BaseURL 返回被测服务的API基础URL，未配置时跳过测试
func BaseURL(t *testing.T) string {
	t.Helper()
	base := os.Getenv("ORDER_SERVER_URL")
	if base == "" {
		t.Skip("未设置ORDER_SERVER_URL，跳过集成测试")
	}
	return base + "/api/v1"
}

// Response 统一响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// IssueToken 为指定用户签发测试Token
// 秘钥必须与被测服务一致（默认配置或ORDER_SERVER_JWT_SECRET）
func IssueToken(t *testing.T, userID uint, role string) string {
	t.Helper()

	secret := os.Getenv("ORDER_SERVER_JWT_SECRET")
	if secret == "" {
		secret = defaultJWTSecret
	}

	manager := jwt.NewManager(secret, time.Hour, 24*time.Hour)
	pair, err := manager.GenerateToken(userID, role)
	require.NoError(t, err, "签发测试Token失败")
	return pair.AccessToken
}

// doJSON 发送请求并解析JSON响应
func doJSON(t *testing.T, method, url string, data interface{}, token string) *Response {
	t.Helper()

	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		require.NoError(t, err, "JSON序列化失败")
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err, "创建HTTP请求失败")

	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: Timeout}
	resp, err := client.Do(req)
	require.NoError(t, err, "发送HTTP请求失败")
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "读取响应体失败")

	var result Response
	err = json.Unmarshal(raw, &result)
	require.NoError(t, err, "解析JSON响应失败: %s", string(raw))

	return &result
}

// PostJSON 发送POST请求并解析JSON响应
func PostJSON(t *testing.T, url string, data interface{}, token string) *Response {
	return doJSON(t, "POST", url, data, token)
}

// PutJSON 发送PUT请求并解析JSON响应
func PutJSON(t *testing.T, url string, data interface{}, token string) *Response {
	return doJSON(t, "PUT", url, data, token)
}

// GetJSON 发送GET请求并解析JSON响应
func GetJSON(t *testing.T, url string, token string) *Response {
	return doJSON(t, "GET", url, nil, token)
}
