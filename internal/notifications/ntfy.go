package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tubeferry/internal/store"
)

const userAgent = "tubeferry/0.1.0"

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

// ntfyNotifier pushes terminal download events to an ntfy topic.
type ntfyNotifier struct {
	endpoint  string
	client    *http.Client
	completed bool
	errors    bool
}

func (n *ntfyNotifier) Added(context.Context, string, store.Descriptor) error { return nil }
func (n *ntfyNotifier) Updated(context.Context, store.Descriptor) error       { return nil }
func (n *ntfyNotifier) Canceled(context.Context, string) error                { return nil }
func (n *ntfyNotifier) Cleared(context.Context, string) error                 { return nil }

func (n *ntfyNotifier) Completed(ctx context.Context, key string, desc store.Descriptor) error {
	title := strings.TrimSpace(desc.Title)
	if title == "" {
		title = key
	}
	if desc.Status == store.StatusFinished {
		if !n.completed {
			return nil
		}
		message := fmt.Sprintf("Downloaded: %s", title)
		if desc.Filename != "" {
			message = fmt.Sprintf("%s\nFile: %s", message, desc.Filename)
		}
		return n.send(ctx, payload{
			title:   "tubeferry - Download Complete",
			message: message,
			tags:    []string{"tubeferry", "download", "completed"},
		})
	}
	if !n.errors {
		return nil
	}
	reason := strings.TrimSpace(desc.Msg)
	if reason == "" {
		reason = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "tubeferry - Download Failed",
		message:  fmt.Sprintf("Failed: %s\n%s", title, reason),
		tags:     []string{"tubeferry", "download", "error"},
		priority: "high",
	})
}

func (n *ntfyNotifier) send(ctx context.Context, data payload) error {
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
