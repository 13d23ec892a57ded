// Package notify delivers operator notifications to a chat webhook, or to the
// log when no webhook is configured
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	perr "nocscan/internal/platform/errors"
	"nocscan/internal/platform/logger"
)

const (
	defaultTimeout = 10 * time.Second
	defaultUA      = "nocscan-notify"
	maxContent     = 2000
)

// Notifier is satisfied by Webhook and Log
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// New picks a webhook when url is set, the log otherwise
func New(url string, timeout time.Duration) Notifier {
	if strings.TrimSpace(url) == "" {
		return Log{log: logger.Named("notify")}
	}
	return NewWebhook(url, timeout)
}

// Webhook posts {"content": message} the way chat webhooks expect
type Webhook struct {
	url  string
	http *http.Client
	log  *logger.Logger
}

// NewWebhook builds a webhook notifier
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Webhook{
		url:  strings.TrimSpace(url),
		http: &http.Client{Timeout: timeout},
		log:  logger.Named("notify"),
	}
}

type payload struct {
	Content string `json:"content"`
}

// Notify posts one message; long messages are truncated to the webhook limit
func (w *Webhook) Notify(ctx context.Context, message string) error {
	message = truncate(message, maxContent)
	body, err := json.Marshal(payload{Content: message})
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode notification")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "notify new request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", defaultUA)

	resp, err := w.http.Do(req)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "notify post failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode >= 300 {
		return perr.Unavailablef("notify webhook returned %d", resp.StatusCode)
	}
	w.log.Debug().Int("status", resp.StatusCode).Msg("notification delivered")
	return nil
}

// truncate keeps the first n characters without splitting a rune
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Log writes notifications as warn lines
type Log struct {
	log *logger.Logger
}

// Notify never fails
func (l Log) Notify(_ context.Context, message string) error {
	lg := l.log
	if lg == nil {
		lg = logger.Named("notify")
	}
	lg.Warn().Str("message", message).Msg("notification")
	return nil
}
