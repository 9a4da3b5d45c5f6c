package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"securesim/internal/config"
)

func testConfig(addr string) config.APIConfig {
	return config.APIConfig{
		Addr:     addr,
		TradeRPS: 5,
		Engine: config.EngineConfig{
			TickEvery: 10 * time.Millisecond,
			Store:     config.StoreConfig{Backend: config.StoreMemory},
		},
	}
}

func TestRunStopsCleanlyOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- run(ctx, testConfig("127.0.0.1:0"), logger) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunReturnsWhenListenFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	done := make(chan error, 1)
	go func() { done <- run(context.Background(), testConfig(ln.Addr().String()), logger) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error for a busy address")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run hung after listen failure")
	}
}
