package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"threadcast/internal/batch"
	"threadcast/internal/config"
)

const userAgent = "threadcast/0.1.0"

// Service defines the notification surface exposed to the CLI and the batch
// orchestrator.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, root string, stats batch.Statistics) error
	NotifyRunFailed(ctx context.Context, root string, err error) error
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

	return &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		batchCompleted: cfg.Notifications.BatchCompleted,
		errors:         cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	batchCompleted bool
	errors         bool
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, root string, stats batch.Statistics) error {
	if !n.batchCompleted {
		return nil
	}
	wall := stats.TotalWallTime.Round(time.Second)
	if wall < 0 {
		wall = 0
	}

	title := "threadcast - Batch Complete"
	tags := []string{"threadcast", "batch", "completed"}
	priority := ""
	if stats.Failed > 0 {
		title = "threadcast - Batch Complete (with errors)"
		tags = append(tags, "warning")
		priority = "high"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d generated, %d skipped, %d failed in %s",
		displayRoot(root), stats.Succeeded, stats.Skipped, stats.Failed, wall)
	if stats.Abandoned > 0 {
		fmt.Fprintf(&b, " (%d abandoned)", stats.Abandoned)
	}
	if len(stats.SampleErrors) > 0 {
		first := stats.SampleErrors[0]
		fmt.Fprintf(&b, "\nFirst failure [%s] %s", first.Kind, filepath.Base(filepath.Dir(first.SourcePath)))
	}

	return n.send(ctx, payload{title: title, message: b.String(), tags: tags, priority: priority})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, root string, err error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Batch run failed")
	if root = strings.TrimSpace(root); root != "" {
		builder.WriteString(" for ")
		builder.WriteString(displayRoot(root))
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "threadcast - Error",
		message:  builder.String(),
		tags:     []string{"threadcast", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "threadcast - Test",
		message:  "Notification system test",
		tags:     []string{"threadcast", "test"},
		priority: "low",
	})
}

func displayRoot(root string) string {
	cleaned := filepath.Clean(root)
	if base := filepath.Base(cleaned); base != "." && base != string(filepath.Separator) {
		return base
	}
	return cleaned
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

func (noopService) NotifyBatchCompleted(context.Context, string, batch.Statistics) error { return nil }
func (noopService) NotifyRunFailed(context.Context, string, error) error                 { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
