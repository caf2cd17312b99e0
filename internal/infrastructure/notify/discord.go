package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

const (
	colorSuccess = 0x2ecc71
	colorPartial = 0xf1c40f
	colorError   = 0xe74c3c
)

type embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type webhookMessage struct {
	Embeds []embed `json:"embeds"`
}

// DiscordClient posts execution outcomes to a Discord webhook. It is the
// optional usecase.Notifier implementation; construct it only when a
// webhook URL is configured.
type DiscordClient struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

func NewDiscordClient(webhookURL string, logger *zap.Logger) *DiscordClient {
	return &DiscordClient{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *DiscordClient) ExecutionCompleted(intent *domain.OrderIntent, result *domain.ExecutionResult) {
	color := colorSuccess
	switch result.Status {
	case domain.StatusPartial:
		color = colorPartial
	case domain.StatusError:
		color = colorError
	}

	description := fmt.Sprintf("**Exchange**: %s\n**Symbol**: %s\n**Side**: %s\n**Type**: %s\n**Quantity**: %s",
		intent.Exchange, intent.Symbol, intent.Side, intent.OrderType, intent.Quantity)
	if result.Message != "" {
		description += "\n" + result.Message
	}

	msg := webhookMessage{
		Embeds: []embed{{
			Title:       fmt.Sprintf("Signal %s: %s", result.Status, intent.Symbol),
			Description: description,
			Color:       color,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	}

	if err := c.send(msg); err != nil {
		c.logger.Error("Discord notification failed", zap.Error(err))
	}
}

func (c *DiscordClient) send(msg webhookMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	resp, err := c.client.Post(c.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
