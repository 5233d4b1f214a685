package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/olivia-docs/backend/internal/domain/rag"
	"github.com/olivia-docs/backend/internal/infrastructure/config"
	"github.com/olivia-docs/backend/internal/infrastructure/log"
)

// 确保 Client 实现了 rag.Generator 接口
var _ rag.Generator = (*Client)(nil)

// Client LLM Chat 客户端，兼容 OpenAI chat completions 接口
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

// ChatRequest Chat API 请求
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	Temperature *float32  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Message Chat 消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse Chat API 响应
type ChatResponse struct {
	ID      string `json:"id,omitempty"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// streamResponse 流式响应的单个数据帧
type streamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewClient 创建 LLM 客户端
func NewClient(cfg *config.LLMConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	timeout := cfg.LLMTimeout()
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	return &Client{
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.NewModuleLogger("llm", "client"),
	}
}

// Generate 阻塞式生成完整回答
func (c *Client) Generate(ctx context.Context, genReq rag.GenerateRequest) (string, error) {
	resp, err := c.doChat(ctx, genReq, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode LLM response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("LLM API returned no choices")
	}

	c.logger.Debug("LLM generation completed",
		"model", c.model,
		"tokens", chatResp.Usage.TotalTokens,
	)

	return chatResp.Choices[0].Message.Content, nil
}

// GenerateStream 流式生成回答
// 返回的 channel 在生成结束或出错后关闭，错误通过最后一个 chunk 传递
func (c *Client) GenerateStream(ctx context.Context, genReq rag.GenerateRequest) (<-chan rag.StreamChunk, error) {
	resp, err := c.doChat(ctx, genReq, true)
	if err != nil {
		return nil, err
	}

	out := make(chan rag.StreamChunk)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}

			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "[DONE]" {
				return
			}

			var frame streamResponse
			if err := json.Unmarshal([]byte(payload), &frame); err != nil {
				c.logger.Warn("Skipping malformed stream frame", "error", err)
				continue
			}
			if len(frame.Choices) == 0 {
				continue
			}

			content := frame.Choices[0].Delta.Content
			if content == "" {
				continue
			}

			select {
			case out <- rag.StreamChunk{Content: content}:
			case <-ctx.Done():
				out <- rag.StreamChunk{Err: ctx.Err()}
				return
			}
		}

		if err := scanner.Err(); err != nil {
			out <- rag.StreamChunk{Err: fmt.Errorf("stream read failed: %w", err)}
		}
	}()

	return out, nil
}

// doChat 发送 chat completions 请求
func (c *Client) doChat(ctx context.Context, genReq rag.GenerateRequest, stream bool) (*http.Response, error) {
	// 请求温度直接生效，默认温度为 0（确定性输出，利于答案缓存）
	temperature := genReq.Temperature
	maxTokens := c.maxTokens
	if genReq.MaxTokens > 0 {
		maxTokens = genReq.MaxTokens
	}

	reqBody := ChatRequest{
		Messages: []Message{
			{Role: "user", Content: genReq.Prompt},
		},
		Model:       c.model,
		Temperature: &temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	c.logger.Debug("Sending LLM request",
		"url", url,
		"model", c.model,
		"stream", stream,
		"temperature", temperature,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("LLM API request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponseBody(resp)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("LLM API returned status %d: %s", resp.StatusCode, body)
	}

	return resp, nil
}

// TestConnection 测试 LLM API 连接
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Generate(ctx, rag.GenerateRequest{
		Prompt:    "This is a connectivity test. Reply with the single word: OK",
		MaxTokens: 8,
	})
	if err != nil {
		return fmt.Errorf("LLM connection test failed: %w", err)
	}

	c.logger.Info("LLM connection test successful",
		"model", c.model,
	)
	return nil
}

// readResponseBody 读取响应体
func readResponseBody(resp *http.Response) (string, error) {
	if resp.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
