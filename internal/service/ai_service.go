package service

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"heartwise_backend/internal/config"
	"heartwise_backend/pkg/monitoring"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// AIService 调用 OpenAI 兼容的 chat completions 接口。
// 配置可被 configwatcher 热更新。
type AIService struct {
	mu     sync.RWMutex
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// UpdateConfig 配置文件变更后替换接入参数
func (s *AIService) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
}

func (s *AIService) snapshot() config.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
	Stream   bool            `json:"stream,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
		Delta   AIChatMessage `json:"delta"` // 流式响应
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const defaultSystemPrompt = "你是一位温和而专业的亲密关系教练，帮助用户觉察沟通模式、表达需求、修复冲突。" +
	"回答要具体、贴近用户描述的情境，避免空泛的说教；不提供医疗或法律建议，" +
	"遇到严重心理危机时引导用户寻求专业帮助。"

func buildMessages(prompt, context string, history []AIChatMessage) []AIChatMessage {
	systemContent := defaultSystemPrompt
	if context != "" {
		systemContent = fmt.Sprintf("%s\n\n请结合以下背景信息回答：\n\n%s", defaultSystemPrompt, context)
	}

	messages := []AIChatMessage{{Role: "system", Content: systemContent}}
	for _, h := range history {
		messages = append(messages, AIChatMessage{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, AIChatMessage{Role: "user", Content: prompt})
	return messages
}

func (s *AIService) Chat(prompt string, context string, history []AIChatMessage) (string, error) {
	cfg := s.snapshot()

	reqBody := ChatCompletionRequest{
		Model:    cfg.Model,
		Messages: buildMessages(prompt, context, history),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		monitoring.AICallCounter.WithLabelValues("chat", "error").Inc()
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		monitoring.AICallCounter.WithLabelValues("chat", "error").Inc()
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		monitoring.AICallCounter.WithLabelValues("chat", "error").Inc()
		return "", err
	}

	if len(result.Choices) > 0 {
		monitoring.AICallCounter.WithLabelValues("chat", "ok").Inc()
		return result.Choices[0].Message.Content, nil
	}

	monitoring.AICallCounter.WithLabelValues("chat", "error").Inc()
	return "", fmt.Errorf("AI returned no choices")
}

// ChatStream 流式返回回答片段，SSE 逐行解析
func (s *AIService) ChatStream(prompt string, context string, history []AIChatMessage) (<-chan string, <-chan error) {
	out := make(chan string)
	errChan := make(chan error, 1)

	cfg := s.snapshot()

	reqBody := ChatCompletionRequest{
		Model:    cfg.Model,
		Messages: buildMessages(prompt, context, history),
		Stream:   true,
	}
	jsonData, _ := json.Marshal(reqBody)

	go func() {
		defer close(out)
		defer close(errChan)

		req, err := http.NewRequest("POST", cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
		if err != nil {
			errChan <- err
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

		resp, err := s.client.Do(req)
		if err != nil {
			monitoring.AICallCounter.WithLabelValues("chat_stream", "error").Inc()
			errChan <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			monitoring.AICallCounter.WithLabelValues("chat_stream", "error").Inc()
			errChan <- fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					errChan <- err
				}
				break
			}

			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}

			var streamResp ChatCompletionResponse
			if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
				continue
			}

			if len(streamResp.Choices) > 0 {
				content := streamResp.Choices[0].Delta.Content
				if content != "" {
					out <- content
				}
			}
		}
		monitoring.AICallCounter.WithLabelValues("chat_stream", "ok").Inc()
	}()

	return out, errChan
}
