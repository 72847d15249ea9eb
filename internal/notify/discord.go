// Package notify posts textual match summaries to Discord webhooks.
// Delivery is best-effort: failures are logged and swallowed, they never
// affect the operation that triggered them.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evsite/tankleague/pkg/logger"
)

// Webhook kinds, each backed by its own configured URL.
const (
	KindSchedule = "schedule"
	KindResult   = "result"
	KindCalc     = "calc"
)

// DiscordSink executes Discord webhooks. A zero-value URL disables the
// corresponding kind silently.
type DiscordSink struct {
	urls   map[string]string
	client *http.Client
}

func NewDiscordSink(scheduleURL, resultURL, calcURL string) *DiscordSink {
	return &DiscordSink{
		urls: map[string]string{
			KindSchedule: scheduleURL,
			KindResult:   resultURL,
			KindCalc:     calcURL,
		},
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Content string `json:"content"`
}

type webhookResponse struct {
	ID string `json:"id"`
}

// Send posts a message and returns the created message ID for later
// edits. An empty ID with a nil-looking result means the kind is
// unconfigured or delivery failed; callers treat both the same.
func (s *DiscordSink) Send(kind, content string) string {
	url := s.urls[kind]
	if url == "" {
		return ""
	}

	body, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		logger.Warn("failed to encode webhook payload", "kind", kind, "error", err)
		return ""
	}

	// wait=true makes Discord return the created message object
	resp, err := s.client.Post(url+"?wait=true", "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Warn("webhook delivery failed", "kind", kind, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("webhook rejected", "kind", kind, "status", resp.StatusCode)
		return ""
	}

	var wr webhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		logger.Warn("failed to decode webhook response", "kind", kind, "error", err)
		return ""
	}
	return wr.ID
}

// Edit rewrites a previously sent webhook message in place.
func (s *DiscordSink) Edit(kind, messageID, content string) {
	url := s.urls[kind]
	if url == "" || messageID == "" {
		return
	}

	body, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		logger.Warn("failed to encode webhook payload", "kind", kind, "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPatch,
		fmt.Sprintf("%s/messages/%s", url, messageID), bytes.NewReader(body))
	if err != nil {
		logger.Warn("failed to build webhook edit request", "kind", kind, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn("webhook edit failed", "kind", kind, "error", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("webhook edit rejected", "kind", kind, "status", resp.StatusCode)
	}
}
