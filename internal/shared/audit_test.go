package shared_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saas-dashboard/dashboard/internal/shared"
)

func newAudit(t *testing.T, limit int) *shared.AuditLogger {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewAuditLogger(client, "test", limit)
}

func TestAuditRecordAndRecent(t *testing.T) {
	audit := newAudit(t, 3)
	ctx := context.Background()

	for _, e := range []shared.AuditEntry{
		{Actor: "a", Action: "login", Resource: "session", Status: shared.AuditFailed},
		{Action: "access", Resource: "users", Status: shared.AuditDenied},
		{Actor: "b", Action: "login", Resource: "session", Status: shared.AuditSuccess},
		{Actor: "c", Action: "login", Resource: "session", Status: shared.AuditFailed},
	} {
		require.NoError(t, audit.Record(ctx, e))
	}

	all, err := audit.Recent(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, all, 3, "list is capped")
	assert.Equal(t, "c", all[0].Actor)
	assert.Equal(t, "anonymous", all[2].Actor)
	assert.False(t, all[0].At.IsZero())

	failed, err := audit.Recent(ctx, 10, shared.AuditFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "c", failed[0].Actor)

	one, err := audit.Recent(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestAuditRejectsIncompleteEntries(t *testing.T) {
	audit := newAudit(t, 10)
	assert.Error(t, audit.Record(context.Background(), shared.AuditEntry{Action: "login"}))

	var nilLogger *shared.AuditLogger
	assert.Error(t, nilLogger.Record(context.Background(), shared.AuditEntry{Action: "x", Resource: "y"}))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", shared.ClientIP(req))

	req.RemoteAddr = "10.1.2.3"
	assert.Equal(t, "10.1.2.3", shared.ClientIP(req))
}
