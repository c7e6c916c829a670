package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCheckRateLimit(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, count, _, err := c.CheckRateLimit(ctx, "rl:test", 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit returned error: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if count != int64(i) {
			t.Errorf("expected count %d, got %d", i, count)
		}
	}

	allowed, _, ttlMs, err := c.CheckRateLimit(ctx, "rl:test", 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit returned error: %v", err)
	}
	if allowed {
		t.Error("fourth request should be rate limited")
	}
	if ttlMs <= 0 {
		t.Errorf("expected a positive window TTL, got %d", ttlMs)
	}
}

func TestPresenceRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	status, err := c.GetPresence(ctx, 42)
	if err != nil {
		t.Fatalf("GetPresence returned error: %v", err)
	}
	if status != "" {
		t.Errorf("expected empty status before set, got %q", status)
	}

	if err := c.SetPresence(ctx, 42, "online"); err != nil {
		t.Fatalf("SetPresence returned error: %v", err)
	}
	status, err = c.GetPresence(ctx, 42)
	if err != nil {
		t.Fatalf("GetPresence returned error: %v", err)
	}
	if status != "online" {
		t.Errorf("expected online, got %q", status)
	}

	if err := c.DeletePresence(ctx, 42); err != nil {
		t.Fatalf("DeletePresence returned error: %v", err)
	}
	status, _ = c.GetPresence(ctx, 42)
	if status != "" {
		t.Errorf("expected empty status after delete, got %q", status)
	}
}
