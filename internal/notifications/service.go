package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cardscan/internal/config"
)

const userAgent = "Cardscan-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyCardResolved(ctx context.Context, name, cardID, marketPrice string) error
	NotifyNoMatch(ctx context.Context, scanID int64, imagePath string) error
	NotifyScanError(ctx context.Context, err error, context string) error
	NotifyBatchCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
		classes:  cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	classes  config.Notifications
}

func (n *ntfyService) NotifyCardResolved(ctx context.Context, name, cardID, marketPrice string) error {
	if !n.classes.Resolved {
		return nil
	}
	name = strings.TrimSpace(name)
	cardID = strings.TrimSpace(cardID)
	message := fmt.Sprintf("✅ Resolved: %s (%s)", name, cardID)
	if marketPrice = strings.TrimSpace(marketPrice); marketPrice != "" {
		message = fmt.Sprintf("%s\nMarket: $%s", message, marketPrice)
	}
	data := payload{
		title:   "Cardscan - Card Resolved",
		message: message,
		tags:    []string{"cardscan", "resolve", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyNoMatch(ctx context.Context, scanID int64, imagePath string) error {
	if !n.classes.NoMatch {
		return nil
	}
	imagePath = strings.TrimSpace(imagePath)
	message := fmt.Sprintf("Could not match scan %d\nManual review required", scanID)
	if imagePath != "" {
		message = fmt.Sprintf("Could not match scan %d\nImage: %s\nManual review required", scanID, imagePath)
	}
	data := payload{
		title:   "Cardscan - No Match",
		message: message,
		tags:    []string{"cardscan", "nomatch", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScanError(ctx context.Context, err error, contextLabel string) error {
	if !n.classes.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Cardscan - Error",
		message:  builder.String(),
		tags:     []string{"cardscan", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.classes.Batch {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var message string
	var title string
	if failed == 0 {
		title = "Cardscan - Batch Complete"
		message = fmt.Sprintf("Batch complete: %d scans processed in %s", processed, durationText)
	} else {
		title = "Cardscan - Batch Complete (with errors)"
		message = fmt.Sprintf("Batch complete: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"cardscan", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Cardscan - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"cardscan", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCardResolved(context.Context, string, string, string) error { return nil }
func (noopService) NotifyNoMatch(context.Context, int64, string) error               { return nil }
func (noopService) NotifyScanError(context.Context, error, string) error             { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, time.Duration) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }
