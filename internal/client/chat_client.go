package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ChatClient calls the chat gateway used for user progress messages
// and operator alerts. Message failures (deleted chat, message too
// old) are expected and must never abort a deployment.
type ChatClient struct {
	baseURL        string
	botToken       string
	operatorChatID int64
	httpClient     *http.Client
}

// NewChatClient creates a new chat client
func NewChatClient(baseURL, botToken string, operatorChatID int64) *ChatClient {
	return &ChatClient{
		baseURL:        baseURL,
		botToken:       botToken,
		operatorChatID: operatorChatID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	MessageID int64  `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

type editMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

// SendMessage posts a new message and returns its id
func (c *ChatClient) SendMessage(ctx context.Context, chatID int64, text string) (int64, error) {
	var resp sendMessageResponse
	err := c.post(ctx, "/bot/sendMessage", &sendMessageRequest{ChatID: chatID, Text: text}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

// EditMessageText replaces the text of an existing message in place
func (c *ChatClient) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	return c.post(ctx, "/bot/editMessageText", &editMessageRequest{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	}, nil)
}

// NotifyOperator sends a fire-and-forget alert to the operator chat.
// Failures are logged only; nothing awaits this.
func (c *ChatClient) NotifyOperator(ctx context.Context, text string) {
	if c.operatorChatID == 0 {
		return
	}
	if _, err := c.SendMessage(ctx, c.operatorChatID, text); err != nil {
		log.Printf("[ChatClient] Failed to notify operator: %v", err)
	}
}

func (c *ChatClient) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Bot-Token", c.botToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
		}
	}

	return nil
}
