// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTypedCache_SetGet(t *testing.T) {
	mem := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = mem.Close() }()
	tc := NewTypedCache[[]string](mem, time.Minute)
	ctx := context.Background()

	if _, ok := tc.Get(ctx, "missing"); ok {
		t.Error("expected miss")
	}
	if err := tc.Set(ctx, "cols", []string{"title", "description"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := tc.Get(ctx, "cols")
	if !ok || len(got) != 2 || got[1] != "description" {
		t.Errorf("Get = %v, %v", got, ok)
	}

	_ = tc.Delete(ctx, "cols")
	if _, ok := tc.Get(ctx, "cols"); ok {
		t.Error("expected miss after delete")
	}
}

func TestTypedCache_UndecodableIsMiss(t *testing.T) {
	mem := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = mem.Close() }()
	ctx := context.Background()
	_ = mem.Set(ctx, "cols", []byte("not json"), 0)

	tc := NewTypedCache[[]string](mem, time.Minute)
	if v, ok := tc.Get(ctx, "cols"); ok || v != nil {
		t.Errorf("Get = %v, %v; want miss", v, ok)
	}
}

func TestTypedCache_GetOrSet(t *testing.T) {
	mem := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = mem.Close() }()
	tc := NewTypedCache[[]string](mem, time.Minute)
	ctx := context.Background()

	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"title"}, nil
	}
	for range 3 {
		v, err := tc.GetOrSet(ctx, "cols", load, nil)
		if err != nil || len(v) != 1 {
			t.Fatalf("GetOrSet = %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestTypedCache_GetOrSetKeepFilter(t *testing.T) {
	mem := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = mem.Close() }()
	tc := NewTypedCache[[]string](mem, time.Minute)
	ctx := context.Background()

	calls := 0
	load := func() ([]string, error) {
		calls++
		return nil, nil
	}
	nonEmpty := func(v []string) bool { return len(v) > 0 }
	_, _ = tc.GetOrSet(ctx, "cols", load, nonEmpty)
	_, _ = tc.GetOrSet(ctx, "cols", load, nonEmpty)
	if calls != 2 {
		t.Errorf("empty result should not be cached, loader calls = %d", calls)
	}
}

func TestTypedCache_GetOrSetError(t *testing.T) {
	mem := NewMemoryCache(MemoryCacheOptions{})
	defer func() { _ = mem.Close() }()
	tc := NewTypedCache[[]string](mem, time.Minute)
	boom := errors.New("boom")

	_, err := tc.GetOrSet(context.Background(), "cols", func() ([]string, error) { return nil, boom }, nil)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if cached(mem, "cols") {
		t.Error("failed load must not be cached")
	}
}
