package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestOptions(t *testing.T) {
	opts, err := Options("")
	if err != nil || opts.Addr != "localhost:6379" {
		t.Fatalf("expected default addr, got %+v err=%v", opts, err)
	}

	opts, err = Options("redis://:pw@cache.internal:6380/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache.internal:6380" || opts.DB != 2 || opts.Password != "pw" {
		t.Fatalf("unexpected parsed options: %+v", opts)
	}
}

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	if err := InitRedis(context.Background(), mr.Addr()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Client == nil {
		t.Fatal("expected client to be set")
	}
	_ = Client.Close()
	Client = nil
}

func TestInitRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if err := InitRedis(context.Background(), addr); err == nil {
		t.Fatal("expected connection error")
	}
}
