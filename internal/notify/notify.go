// Package notify posts task completion webhooks to user-configured
// URLs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/es"
	"tubearchivist/internal/utils/logging"
)

// notificationsDocID is the ta_config doc holding the url map.
const notificationsDocID = "notifications"

// Notifier sends one JSON payload per configured URL. Failures are
// logged, never propagated into the task result.
type Notifier struct {
	conn   *es.Connection
	client *http.Client
}

// New builds a notifier with a bounded request timeout.
func New(conn *es.Connection) *Notifier {
	return &Notifier{
		conn:   conn,
		client: &http.Client{Timeout: consts.ReleaseCheckTimeout},
	}
}

// urlConfig maps task name to its webhook URLs.
type urlConfig struct {
	URLs map[string][]string `json:"urls"`
}

// URLs returns the webhook URLs configured for a task name.
func (n *Notifier) URLs(ctx context.Context, taskName string) ([]string, error) {
	var cfg urlConfig
	err := n.conn.GetDoc(ctx, consts.IndexConfig, notificationsDocID, &cfg)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg.URLs[taskName], nil
}

// AddURL registers a webhook URL for a task name.
func (n *Notifier) AddURL(ctx context.Context, taskName, url string) error {
	var cfg urlConfig
	err := n.conn.GetDoc(ctx, consts.IndexConfig, notificationsDocID, &cfg)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if cfg.URLs == nil {
		cfg.URLs = map[string][]string{}
	}
	for _, existing := range cfg.URLs[taskName] {
		if existing == url {
			return nil
		}
	}
	cfg.URLs[taskName] = append(cfg.URLs[taskName], url)
	return n.conn.IndexDoc(ctx, consts.IndexConfig, notificationsDocID, cfg)
}

// RemoveURL drops a webhook URL for a task name.
func (n *Notifier) RemoveURL(ctx context.Context, taskName, url string) error {
	var cfg urlConfig
	if err := n.conn.GetDoc(ctx, consts.IndexConfig, notificationsDocID, &cfg); err != nil {
		return err
	}
	kept := cfg.URLs[taskName][:0]
	for _, existing := range cfg.URLs[taskName] {
		if existing != url {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		delete(cfg.URLs, taskName)
	} else {
		cfg.URLs[taskName] = kept
	}
	return n.conn.IndexDoc(ctx, consts.IndexConfig, notificationsDocID, cfg)
}

// payload is the webhook body.
type payload struct {
	TaskID   string   `json:"task_id"`
	TaskName string   `json:"task_name"`
	Title    string   `json:"title"`
	Messages []string `json:"messages,omitempty"`
	SentAt   int64    `json:"sent_at"`
}

// Send posts the completion payload to every URL configured for the
// task. Per-URL failures are logged and counted, not returned.
func (n *Notifier) Send(ctx context.Context, taskName, taskID, title string, messages []string) {
	urls, err := n.URLs(ctx, taskName)
	if err != nil {
		logging.E("notify: loading urls for %s: %v", taskName, err)
		return
	}
	if len(urls) == 0 {
		return
	}

	body, err := json.Marshal(payload{
		TaskID:   taskID,
		TaskName: taskName,
		Title:    title,
		Messages: messages,
		SentAt:   time.Now().Unix(),
	})
	if err != nil {
		logging.E("notify: encoding payload: %v", err)
		return
	}

	failed := 0
	for _, url := range urls {
		if err := n.post(ctx, url, body); err != nil {
			logging.E("notify: %s: %v", url, err)
			failed++
		}
	}
	logging.I("notify: %s sent to %d urls, %d failed", taskName, len(urls)-failed, failed)
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
