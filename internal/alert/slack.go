package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// SlackChannel posts alerts to a Slack incoming webhook as a single
// colored attachment.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
}

func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackChannel) Name() string {
	return "slack"
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color   string       `json:"color"`
	Pretext string       `json:"pretext"`
	Text    string       `json:"text"`
	Fields  []slackField `json:"fields,omitempty"`
	Ts      int64        `json:"ts"`
	Footer  string       `json:"footer"`
}

type slackMessage struct {
	Attachments []slackAttachment `json:"attachments"`
}

func (s *SlackChannel) Send(ctx context.Context, alert AlertPayload) error {
	if s.webhookURL == "" {
		return nil
	}

	jsonBody, err := json.Marshal(s.render(alert))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.webhookURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack webhook failed with status: %d", resp.StatusCode)
	}

	return nil
}

func (s *SlackChannel) render(alert AlertPayload) slackMessage {
	color := "#36a64f" // green
	switch alert.Level {
	case Warning:
		color = "#ffcc00"
	case Error:
		color = "#ff0000"
	case Critical:
		color = "#8b0000"
	}

	// Sort field names so repeated alerts render identically.
	names := make([]string, 0, len(alert.Fields))
	for k := range alert.Fields {
		names = append(names, k)
	}
	sort.Strings(names)

	fields := make([]slackField, 0, len(names))
	for _, k := range names {
		fields = append(fields, slackField{Title: k, Value: alert.Fields[k], Short: true})
	}

	return slackMessage{
		Attachments: []slackAttachment{
			{
				Color:   color,
				Pretext: fmt.Sprintf("[%s] %s", alert.Level, alert.Title),
				Text:    alert.Message,
				Fields:  fields,
				Ts:      alert.Timestamp.Unix(),
				Footer:  "Trade Bot",
			},
		},
	}
}
