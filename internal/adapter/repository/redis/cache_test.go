package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iho/txengine/internal/usecase"
)

func TestReportCacheSetAndGet(t *testing.T) {
	cache, mr := newTestReportCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "run-1", []byte(`{"accounts":[]}`), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	assertStored(t, mr, cache.prefix+"run-1", `{"accounts":[]}`)

	val, err := cache.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(val) != `{"accounts":[]}` {
		t.Fatalf("unexpected value %s", val)
	}
}

func TestReportCacheMissing(t *testing.T) {
	cache, _ := newTestReportCache(t)

	_, err := cache.Get(context.Background(), "nope")
	if !errors.Is(err, usecase.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestReportCacheExpires(t *testing.T) {
	cache, mr := newTestReportCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "run-2", []byte("x"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := cache.Get(ctx, "run-2"); !errors.Is(err, usecase.ErrReportNotFound) {
		t.Fatalf("expected expired report, got %v", err)
	}
}

func TestReportCacheServerDown(t *testing.T) {
	cache, mr := newTestReportCache(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "run-3")
	if err == nil || errors.Is(err, usecase.ErrReportNotFound) {
		t.Fatalf("expected a connection error, got %v", err)
	}
}
