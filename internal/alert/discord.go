package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DiscordChannel posts alerts to a Discord webhook as plain content
// messages.
type DiscordChannel struct {
	webhookURL string
	username   string
	client     *http.Client
}

func NewDiscordChannel(webhookURL string) *DiscordChannel {
	return &DiscordChannel{
		webhookURL: webhookURL,
		username:   "Trading Bot",
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *DiscordChannel) Name() string {
	return "discord"
}

func (d *DiscordChannel) Send(ctx context.Context, alert AlertPayload) error {
	if d.webhookURL == "" {
		return nil
	}

	content := d.render(alert)

	payload := map[string]interface{}{
		"content":  content,
		"username": d.username,
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.webhookURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord webhook failed with status: %d", resp.StatusCode)
	}

	return nil
}

func (d *DiscordChannel) render(alert AlertPayload) string {
	icon := "ℹ️"
	switch alert.Level {
	case Warning:
		icon = "⚠️"
	case Error:
		icon = "❌"
	case Critical:
		icon = "🚨"
	}

	content := fmt.Sprintf("%s **%s**\n%s", icon, alert.Title, alert.Message)
	for k, v := range alert.Fields {
		content += fmt.Sprintf("\n• **%s**: %s", k, v)
	}

	// Discord rejects messages over 2000 characters.
	if len(content) > 2000 {
		content = content[:1997] + "..."
	}
	return content
}
