// Package publish 对接外部空间的发布接口.
package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Client 调用空间网关发布一批图片. 网关收 base64 图片,
// 返回动态的 tid.
type Client struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewClient creates a feed client against the configured gateway.
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

type publishRequest struct {
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

type publishResponse struct {
	TID     string `json:"tid"`
	Message string `json:"message"`
}

// Publish 一次性发布一批图片, 返回平台侧的 tid.
// 任何一步失败整批都算失败.
func (c *Client) Publish(ctx context.Context, imagePaths []string) (string, error) {
	images := make([]string, 0, len(imagePaths))
	for _, path := range imagePaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("读取图片 %s 失败: %w", path, err)
		}
		images = append(images, base64.StdEncoding.EncodeToString(raw))
	}

	body, err := json.Marshal(publishRequest{Images: images})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求空间网关失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("空间网关返回 %s", resp.Status)
	}

	var out publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("解析网关响应失败: %w", err)
	}
	if out.TID == "" {
		return "", fmt.Errorf("空间网关未返回 tid: %s", out.Message)
	}
	return out.TID, nil
}
