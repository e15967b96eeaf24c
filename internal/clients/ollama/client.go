// Package ollama 提供Ollama大模型客户端
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"socratic_bot/internal/models"
)

// SocraticSystemPrompt 苏格拉底式对话系统提示词
const SocraticSystemPrompt = `You are a Socratic tutor helping a student defend their essay through critical questioning.

Your role:
- Ask probing questions to challenge assumptions and claims
- Request specific evidence and reasoning
- Highlight potential logical inconsistencies or gaps
- Guide the student to think deeper without giving direct answers
- Be respectful but intellectually rigorous
- Keep responses conversational and under 50 words
- Focus on one question or challenge at a time

Remember: Your goal is to strengthen their argument by making them defend it thoroughly.`

// Config Ollama客户端配置
type Config struct {
	Host        string  // Ollama服务器地址（完整URL）
	Model       string  // 使用的模型名称
	Temperature float64 // 温度参数
	TopP        float64 // Top-p采样
	MaxTokens   int     // 最大生成token数
}

// Client Ollama客户端
type Client struct {
	config Config
	client *http.Client
}

// GenerateRequest 生成请求参数
type GenerateRequest struct {
	Model   string  `json:"model"`             // 模型名称
	Prompt  string  `json:"prompt"`            // 提示词
	Stream  bool    `json:"stream"`            // 是否流式输出
	Options Options `json:"options,omitempty"` // 可选参数
}

// Options 生成选项
type Options struct {
	Temperature float64 `json:"temperature,omitempty"` // 温度参数
	TopP        float64 `json:"top_p,omitempty"`       // Top-p采样
	MaxTokens   int     `json:"max_tokens,omitempty"`  // 最大生成token数
}

// GenerateResponse 生成响应
type GenerateResponse struct {
	Model     string `json:"model"`      // 模型名称
	CreatedAt string `json:"created_at"` // 创建时间
	Response  string `json:"response"`   // 生成的文本
	Done      bool   `json:"done"`       // 是否完成
}

// NewClient 创建新的Ollama客户端
func NewClient(config Config) *Client {
	return &Client{
		config: config,
		client: &http.Client{},
	}
}

// CheckConnection 检查Ollama服务器是否可达
func (c *Client) CheckConnection() bool {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("%s/api/tags", c.config.Host))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// options 从配置构建生成选项
func (c *Client) options() Options {
	return Options{
		Temperature: c.config.Temperature,
		TopP:        c.config.TopP,
		MaxTokens:   c.config.MaxTokens,
	}
}

// Generate 生成文本
func (c *Client) Generate(ctx context.Context, prompt string) (*GenerateResponse, error) {
	resp, err := c.post(ctx, GenerateRequest{
		Model:   c.config.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: c.options(),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var response GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("解析响应失败: %v", err)
	}
	response.Response = strings.TrimSpace(response.Response)

	return &response, nil
}

// GenerateStream 流式生成文本，每个增量片段回调一次
func (c *Client) GenerateStream(ctx context.Context, prompt string, callback func(chunk string) error) error {
	resp, err := c.post(ctx, GenerateRequest{
		Model:   c.config.Model,
		Prompt:  prompt,
		Stream:  true,
		Options: c.options(),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 逐行读取NDJSON响应
	decoder := json.NewDecoder(resp.Body)
	for decoder.More() {
		var response GenerateResponse
		if err := decoder.Decode(&response); err != nil {
			return fmt.Errorf("解析响应失败: %v", err)
		}

		if response.Response != "" {
			if err := callback(response.Response); err != nil {
				return err
			}
		}

		if response.Done {
			break
		}
	}

	return nil
}

// post 发送生成请求
func (c *Client) post(ctx context.Context, reqBody GenerateRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %v", err)
	}

	url := fmt.Sprintf("%s/api/generate", c.config.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("服务器返回错误: %s", string(body))
	}

	return resp, nil
}

// InitializeContext 根据文稿内容生成开场白
func (c *Client) InitializeContext(ctx context.Context, essayContext string) (string, error) {
	prompt := fmt.Sprintf(`The student has submitted an essay. Here are the first 500 words:

---
%s
---

Generate a brief welcoming message (under 40 words) that:
1. Acknowledges you've reviewed their essay
2. Asks them to explain their main thesis or central argument in their own words

Be encouraging but set an intellectually rigorous tone.`, essayContext)

	resp, err := c.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// BuildSocraticPrompt 构建苏格拉底式回复的提示词
func BuildSocraticPrompt(studentInput, essayContext string, history []models.ConversationTurn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(string(turn.Speaker)), turn.Text))
	}
	historyText := strings.Join(lines, "\n")
	if historyText == "" {
		historyText = "(No prior conversation)"
	}

	return fmt.Sprintf(`%s

Essay Context (first 500 words):
%s

Recent Conversation:
%s

Student's latest statement:
"%s"

Your Socratic response:`, SocraticSystemPrompt, essayContext, historyText, studentInput)
}

// SocraticStream 流式生成苏格拉底式回复。
// 传输层中途失败时不中断序列，而是以一个 [Error: ...] 片段收尾。
func (c *Client) SocraticStream(ctx context.Context, studentInput, essayContext string, history []models.ConversationTurn, callback func(chunk string) error) error {
	prompt := BuildSocraticPrompt(studentInput, essayContext, history)

	if err := c.GenerateStream(ctx, prompt, callback); err != nil {
		// 回调自身的错误（如连接断开）需要向上传递
		if ctx.Err() != nil {
			return err
		}
		return callback(fmt.Sprintf("[Error: %v]", err))
	}
	return nil
}
