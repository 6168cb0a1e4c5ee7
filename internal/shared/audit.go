package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Audit statuses.
const (
	AuditSuccess = "success"
	AuditFailed  = "failed"
	AuditDenied  = "denied"
)

// AuditStatuses lists the statuses in display order.
func AuditStatuses() []string {
	return []string{AuditSuccess, AuditFailed, AuditDenied}
}

// AuditEntry is one security-relevant event observed by the dashboard.
type AuditEntry struct {
	At       time.Time `json:"at"`
	Actor    string    `json:"actor"`
	Action   string    `json:"action"`
	Resource string    `json:"resource"`
	Status   string    `json:"status"`
	IP       string    `json:"ip"`
}

// AuditLogger keeps the most recent entries in a capped redis list.
type AuditLogger struct {
	client *redis.Client
	key    string
	limit  int64
}

// NewAuditLogger returns a new AuditLogger holding at most limit entries.
func NewAuditLogger(client *redis.Client, prefix string, limit int) *AuditLogger {
	if prefix == "" {
		prefix = "dashboard"
	}
	if limit <= 0 {
		limit = 500
	}
	return &AuditLogger{client: client, key: prefix + ":audit", limit: int64(limit)}
}

// Record stores the entry at the head of the list.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Resource == "" {
		return errors.New("audit entry requires action/resource")
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	if entry.Actor == "" {
		entry.Actor = "anonymous"
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, l.key, raw)
	pipe.LTrim(ctx, l.key, 0, l.limit-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n entries, newest first, keeping only those whose
// status matches when status is non-empty.
func (l *AuditLogger) Recent(ctx context.Context, n int, status string) ([]AuditEntry, error) {
	if l == nil {
		return nil, errors.New("audit logger not initialised")
	}
	rows, err := l.client.LRange(ctx, l.key, 0, l.limit-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]AuditEntry, 0, min(n, len(rows)))
	for _, row := range rows {
		if len(entries) == n {
			break
		}
		var entry AuditEntry
		if err := json.Unmarshal([]byte(row), &entry); err != nil {
			continue
		}
		if status != "" && entry.Status != status {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ClientIP returns the request's remote address without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
