package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"relayguard/pkg/bus"
	"relayguard/pkg/channel"
	"relayguard/pkg/config"
	"relayguard/pkg/registry"
)

type blockingAdapter struct{ name string }

func (a blockingAdapter) Name() string { return a.name }

func (a blockingAdapter) Run(ctx context.Context, _ channel.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func noopHandler(context.Context, bus.InboundMessage) error { return nil }

func newTestService(t *testing.T) *Service {
	t.Helper()

	reg := registry.New(registry.NewFileStore(filepath.Join(t.TempDir(), "destinations.json")))
	cfg := &config.Config{}
	cfg.Telegram.Mode = config.ModePolling

	svc, err := NewService(cfg, blockingAdapter{name: "telegram"}, noopHandler, reg, nil)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	return svc
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService(nil, blockingAdapter{}, noopHandler, nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewService(&config.Config{}, nil, noopHandler, nil, nil); err == nil {
		t.Fatal("expected error for nil adapter")
	}
	if _, err := NewService(&config.Config{}, blockingAdapter{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestReadinessFollowsChannelState(t *testing.T) {
	svc := newTestService(t)

	if svc.isReady() {
		t.Fatal("service ready before channel started")
	}

	svc.setChannelState("telegram", channelState{Running: true})
	if !svc.isReady() {
		t.Fatal("service not ready with running channel")
	}

	svc.setChannelState("telegram", channelState{Running: false, Error: "closed"})
	if svc.isReady() {
		t.Fatal("service ready after channel stopped")
	}
}

func TestStatusReportsDestinationCount(t *testing.T) {
	svc := newTestService(t)

	ctx := context.Background()
	if _, err := svc.registry.Add(ctx, "-1"); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if _, err := svc.registry.Add(ctx, "-2"); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	status := svc.currentStatus("ok")
	if status.Destinations != 2 {
		t.Fatalf("status.Destinations = %d, want 2", status.Destinations)
	}
	if status.Mode != config.ModePolling {
		t.Fatalf("status.Mode = %q, want %q", status.Mode, config.ModePolling)
	}
}

func TestHealthEndpointShape(t *testing.T) {
	svc := newTestService(t)
	svc.setChannelState("telegram", channelState{Running: true})

	recorder := httptest.NewRecorder()
	svc.handleHealth(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("health status code = %d, want %d", recorder.Code, http.StatusOK)
	}

	var payload statusResponse
	if err := json.NewDecoder(recorder.Body).Decode(&payload); err != nil {
		t.Fatalf("decode health payload: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("payload.Status = %q, want %q", payload.Status, "ok")
	}
	if state, ok := payload.Channels["telegram"]; !ok || !state.Running {
		t.Fatalf("payload.Channels = %v, want running telegram channel", payload.Channels)
	}
}

func TestReadyEndpointNotReady(t *testing.T) {
	svc := newTestService(t)

	recorder := httptest.NewRecorder()
	svc.handleReady(recorder, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status code = %d, want %d", recorder.Code, http.StatusServiceUnavailable)
	}
}

func TestPingRecordsOutcome(t *testing.T) {
	svc := newTestService(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := server.Client()
	svc.ping(context.Background(), client, server.URL)

	svc.mu.RLock()
	okAt, lastErr := svc.pingLastOKAt, svc.pingLastErr
	svc.mu.RUnlock()

	if okAt.IsZero() {
		t.Fatal("expected ping success timestamp")
	}
	if lastErr != "" {
		t.Fatalf("pingLastErr = %q, want empty", lastErr)
	}

	server.Close()
	svc.ping(context.Background(), client, server.URL)

	svc.mu.RLock()
	lastErr = svc.pingLastErr
	svc.mu.RUnlock()

	if lastErr == "" {
		t.Fatal("expected ping failure to be recorded")
	}
}

func TestErrorString(t *testing.T) {
	if got := errorString(nil); got != "" {
		t.Fatalf("errorString(nil) = %q, want empty", got)
	}
	if got := errorString(errors.New("boom")); got != "boom" {
		t.Fatalf("errorString = %q, want %q", got, "boom")
	}
}
