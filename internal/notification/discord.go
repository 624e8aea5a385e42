package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forest-guardian/landcover-cli/internal/errkind"
	"github.com/forest-guardian/landcover-cli/internal/properties"
	"github.com/sirupsen/logrus"
)

const (
	colorRed   = 16711680
	colorGreen = 65280
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// Discord posts run outcomes to webhooks. An empty URL disables that channel.
type Discord struct {
	ErrorURL   string
	SuccessURL string
	client     *http.Client
	log        logrus.FieldLogger
}

// NewDiscord reads the webhook URLs from the environment.
func NewDiscord(log logrus.FieldLogger) *Discord {
	return NewDiscordWithURLs(properties.DiscordErrorNotificationUrl(), properties.DiscordSuccessNotificationUrl(), &http.Client{Timeout: 10 * time.Second}, log)
}

func NewDiscordWithURLs(errorURL, successURL string, client *http.Client, log logrus.FieldLogger) *Discord {
	if client == nil {
		client = http.DefaultClient
	}
	return &Discord{
		ErrorURL:   errorURL,
		SuccessURL: successURL,
		client:     client,
		log:        log.WithField("component", "notification"),
	}
}

func (d *Discord) Error(ctx context.Context, errorMessage string) error {
	return d.send(ctx, d.ErrorURL, DiscordEmbed{
		Title:       "🚨 Error Notification",
		Description: fmt.Sprintf("Land cover run failed.\n\nAn error occurred: %s", errorMessage),
		Color:       colorRed,
	})
}

func (d *Discord) Success(ctx context.Context, successMessage string) error {
	return d.send(ctx, d.SuccessURL, DiscordEmbed{
		Title:       "✅ Success Notification",
		Description: fmt.Sprintf("Land cover run finished.\n\n%s", successMessage),
		Color:       colorGreen,
	})
}

func (d *Discord) send(ctx context.Context, url string, embed DiscordEmbed) error {
	if url == "" {
		d.log.Debug("no webhook configured, skipping notification")
		return nil
	}

	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("%w: build notification request: %v", errkind.ErrConfig, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send Discord notification: %v", errkind.ErrIO, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: failed to send Discord notification, status code: %d", errkind.ErrIO, resp.StatusCode)
	}
	return nil
}
