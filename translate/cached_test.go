package translate

import (
	"context"
	"path/filepath"
	"testing"

	"voxkey/cache"
)

type countingBackend struct {
	calls  int
	result string
	err    error
}

func (b *countingBackend) Translate(_ context.Context, text string) (string, error) {
	b.calls++
	return b.result, b.err
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCachedSecondCallSkipsBackend(t *testing.T) {
	inner := &countingBackend{result: "Hello world"}
	cached := NewCached(inner, newTestCache(t), "ollama", "gpt-oss:latest")

	for i := 0; i < 3; i++ {
		got, err := cached.Translate(context.Background(), "你好世界")
		if err != nil {
			t.Fatalf("Translate: %v", err)
		}
		if got != "Hello world" {
			t.Fatalf("got %q, want %q", got, "Hello world")
		}
	}
	if inner.calls != 1 {
		t.Fatalf("backend called %d times, want 1", inner.calls)
	}
}

func TestCachedEnglishInputShortCircuits(t *testing.T) {
	inner := &countingBackend{result: "should not be used"}
	cached := NewCached(inner, newTestCache(t), "ollama", "gpt-oss:latest")

	input := "The quick brown fox jumps over the lazy dog"
	got, err := cached.Translate(context.Background(), input)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != input {
		t.Fatalf("got %q, want input unchanged", got)
	}
	if inner.calls != 0 {
		t.Fatalf("backend called %d times, want 0", inner.calls)
	}
}

func TestCachedDistinctModelsDistinctEntries(t *testing.T) {
	c := newTestCache(t)
	a := &countingBackend{result: "from a"}
	b := &countingBackend{result: "from b"}
	cachedA := NewCached(a, c, "ollama", "model-a")
	cachedB := NewCached(b, c, "ollama", "model-b")

	gotA, _ := cachedA.Translate(context.Background(), "你好")
	gotB, _ := cachedB.Translate(context.Background(), "你好")
	if gotA != "from a" || gotB != "from b" {
		t.Fatalf("entries collided: %q %q", gotA, gotB)
	}
}

func TestCachedEmptyInput(t *testing.T) {
	inner := &countingBackend{}
	cached := NewCached(inner, newTestCache(t), "ollama", "m")

	got, err := cached.Translate(context.Background(), "")
	if err != nil || got != "" {
		t.Fatalf("got %q, %v", got, err)
	}
	if inner.calls != 0 {
		t.Fatalf("backend called for empty input")
	}
}
