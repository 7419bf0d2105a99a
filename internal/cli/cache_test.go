package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/gdsfill/pkg/cache"
)

func TestNewCache(t *testing.T) {
	c := New(io.Discard, LogInfo)
	ctx := context.Background()

	nc, err := c.newCache(ctx, cacheOpts{noCache: true, url: "redis://ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := nc.(*cache.NullCache); !ok {
		t.Errorf("newCache(noCache) = %T, want *cache.NullCache", nc)
	}

	dir := t.TempDir()
	fc, err := c.newCache(ctx, cacheOpts{url: dir})
	if err != nil {
		t.Fatal(err)
	}
	file, ok := fc.(*cache.FileCache)
	if !ok {
		t.Fatalf("newCache(dir) = %T, want *cache.FileCache", fc)
	}
	if file.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", file.Dir(), dir)
	}
}

func TestNewCacheDefaultDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	c := New(io.Discard, LogInfo)
	got, err := c.newCache(context.Background(), cacheOpts{})
	if err != nil {
		t.Fatal(err)
	}
	file, ok := got.(*cache.FileCache)
	if !ok {
		t.Fatalf("newCache() = %T, want *cache.FileCache", got)
	}
	if want := filepath.Join(xdg, appName); file.Dir() != want {
		t.Errorf("Dir() = %q, want %q", file.Dir(), want)
	}
}

func TestNewCacheUnreachableRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c := New(io.Discard, LogInfo)
	if _, err := c.newCache(ctx, cacheOpts{url: "redis://127.0.0.1:1/0"}); err == nil {
		t.Error("newCache() accepted an unreachable redis server")
	}
}

func TestCacheClearCommand(t *testing.T) {
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, k := range []string{"a", "b"} {
		if err := fc.Set(ctx, k, []byte(k), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"cache", "clear", "--dir", dir})
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	for _, k := range []string{"a", "b"} {
		if _, ok, _ := fc.Get(ctx, k); ok {
			t.Errorf("entry %q survived cache clear", k)
		}
	}
}

func TestCacheClearMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"cache", "clear", "--dir", dir})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("cache clear created a missing directory")
	}
}
