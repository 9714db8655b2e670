// Package telegram posts QC progress to a Telegram chat.
//
// This package handles:
//   - Sending text notifications (save confirmations, photo check alerts)
//   - Uploading rendered progress reports with sendPhoto
//
// A nil *Client is valid and silently skips every send, so callers never
// branch on whether Telegram is configured.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/api"

	"go.uber.org/zap"
)

// DefaultAPIBase is the Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// Client represents a Telegram bot client.
//
// Fields:
//   - BotToken: Bot API token from @BotFather
//   - ChatID: Target chat for notifications
//   - DebugMode: If true, log instead of calling the API
//   - APIBase: Bot API root, overridable for tests
type Client struct {
	BotToken  string
	ChatID    string
	DebugMode bool
	APIBase   string

	httpClient *http.Client
	logger     *zap.Logger
}

// Message is the sendMessage payload.
type Message struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// NewClient returns a client, or nil when the token or chat ID is missing.
func NewClient(botToken, chatID string, debugMode bool, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	if botToken == "" || chatID == "" {
		logger.Warn("⚠️  TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set. Telegram notifications disabled.",
			zap.Bool("token_set", botToken != ""),
			zap.Bool("chat_set", chatID != ""))
		return nil
	}

	logger.Info("✓ Telegram configured successfully")
	if debugMode {
		logger.Info("🐛 DEBUG MODE ENABLED - API calls will be simulated")
	}

	return &Client{
		BotToken:   botToken,
		ChatID:     chatID,
		DebugMode:  debugMode,
		APIBase:    DefaultAPIBase,
		httpClient: api.GetHTTPClient(),
		logger:     logger,
	}
}

func (c *Client) endpoint(method string) string {
	base := c.APIBase
	if base == "" {
		base = DefaultAPIBase
	}
	return fmt.Sprintf("%s/bot%s/%s", base, c.BotToken, method)
}

func (c *Client) client() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return api.GetHTTPClient()
}

// do posts body to a Bot API method and checks the ok flag.
func (c *Client) do(ctx context.Context, method, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result apiResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	if !result.OK {
		return fmt.Errorf("Telegram API error: %s", result.Description)
	}
	return nil
}

// SendMessage sends an HTML-formatted text message.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if c == nil {
		return nil
	}
	if c.DebugMode {
		c.logger.Info("🐛 [DEBUG] Would send message", zap.String("text", text))
		return nil
	}

	payload, err := json.Marshal(Message{
		ChatID:                c.ChatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := c.do(ctx, "sendMessage", "application/json", bytes.NewReader(payload)); err != nil {
		return err
	}
	c.logger.Info("📨 Message sent to Telegram")
	return nil
}

// SendReport uploads a PNG report with a caption via sendPhoto.
func (c *Client) SendReport(ctx context.Context, caption string, png []byte) error {
	if c == nil {
		return nil
	}
	if c.DebugMode {
		c.logger.Info("🐛 [DEBUG] Would send report",
			zap.String("caption", caption),
			zap.Int("bytes", len(png)))
		return nil
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", c.ChatID); err != nil {
		return err
	}
	if err := w.WriteField("caption", caption); err != nil {
		return err
	}
	part, err := w.CreateFormFile("photo", "qc_report.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(png); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	if err := c.do(ctx, "sendPhoto", w.FormDataContentType(), &body); err != nil {
		return err
	}
	c.logger.Info("🖼️  Report sent to Telegram", zap.Int("bytes", len(png)))
	return nil
}
