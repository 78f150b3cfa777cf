package redis

import (
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// newTestRedis starts an in-memory server; both ends are closed when t ends.
func newTestRedis(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func newTestIdempotencyStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	client, mr := newTestRedis(t)
	return NewIdempotencyStore(client), mr
}

func newTestReportCache(t *testing.T) (*ReportCache, *miniredis.Miniredis) {
	t.Helper()
	client, mr := newTestRedis(t)
	return NewReportCache(client), mr
}

// assertStored checks the raw value kept under key.
func assertStored(t *testing.T, mr *miniredis.Miniredis, key, want string) {
	t.Helper()
	got, err := mr.Get(key)
	if err != nil {
		t.Fatalf("expected %s to be stored: %v", key, err)
	}
	if got != want {
		t.Fatalf("expected %s = %q, got %q", key, want, got)
	}
}
