// Package whisper 提供whisper语音识别服务客户端
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Config whisper客户端配置
type Config struct {
	ServerURL  string // whisper服务器地址（完整URL）
	Model      string // 模型大小(tiny/base/small/medium/large)
	SampleRate int    // PCM采样率
}

// Client whisper识别客户端，实现 models.ASREngine
type Client struct {
	config Config
	client *http.Client
}

// TranscribeResponse 识别响应
type TranscribeResponse struct {
	Text string `json:"text"` // 识别文本
}

// NewClient 创建新的whisper客户端
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		// 识别耗时由模型推理决定，客户端不设超时（见会话层的背压设计）
		client: &http.Client{},
	}
}

// Transcribe 同步转写一段完整的PCM音频
func (c *Client) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	url := fmt.Sprintf("%s/transcribe?model=%s&sample_rate=%d",
		c.config.ServerURL, c.config.Model, c.config.SampleRate)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(pcm))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "audio/L16")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("服务器返回错误: %s", string(body))
	}

	var response TranscribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("解析响应失败: %v", err)
	}

	return strings.TrimSpace(response.Text), nil
}
