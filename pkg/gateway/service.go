package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"relayguard/pkg/channel"
	"relayguard/pkg/config"
	"relayguard/pkg/registry"
)

const (
	defaultStatusHost       = "0.0.0.0"
	defaultStatusPort       = 10000
	keepaliveRequestTimeout = 10 * time.Second
)

// Service supervises the relay: it runs the transport adapter, exposes
// health and readiness endpoints, and keeps the external base URL warm with
// periodic self-pings.
type Service struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *registry.Registry
	adapter  channel.Adapter
	handler  channel.Handler

	mu            sync.RWMutex
	startedAt     time.Time
	pingLastOKAt  time.Time
	pingLastErr   string
	channelStates map[string]channelState
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Mode          string                  `json:"mode"`
	Destinations  int                     `json:"destinations"`
	PingLastOKAt  string                  `json:"ping_last_ok_at,omitempty"`
	PingLastErr   string                  `json:"ping_last_error,omitempty"`
	Channels      map[string]channelState `json:"channels"`
}

// NewService wires the adapter, pipeline handler, and registry into a runnable service.
func NewService(cfg *config.Config, adapter channel.Adapter, handler channel.Handler, reg *registry.Registry, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if adapter == nil {
		return nil, errors.New("channel adapter is required")
	}
	if handler == nil {
		return nil, errors.New("inbound handler is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		registry:      reg,
		adapter:       adapter,
		handler:       handler,
		channelStates: map[string]channelState{adapter.Name(): {}},
	}, nil
}

// Run blocks until the context is canceled or a component fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	serverErrors := make(chan error, 1)
	go s.runStatusServer(ctx, serverErrors)

	s.startKeepalive(ctx)

	errCh := make(chan error, 1)
	s.setChannelState(s.adapter.Name(), channelState{Running: true})
	go func() {
		err := s.adapter.Run(ctx, s.handler)
		s.setChannelState(s.adapter.Name(), channelState{Running: false, Error: errorString(err)})
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("run %s channel: %w", s.adapter.Name(), err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

// startKeepalive launches the periodic self-ping when a base URL is
// configured. The pinger shares no state with the pipeline; its failures
// are recorded for status reporting only.
func (s *Service) startKeepalive(ctx context.Context) {
	baseURL := strings.TrimSpace(s.cfg.Gateway.BaseURL)
	interval := time.Duration(s.cfg.Gateway.KeepaliveIntervalSeconds) * time.Second
	if baseURL == "" || interval <= 0 {
		return
	}

	client := &http.Client{Timeout: keepaliveRequestTimeout}
	s.log.Info("Keep-alive pinger started", "url", baseURL, "interval", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ping(ctx, client, baseURL)
			}
		}
	}()
}

func (s *Service) ping(ctx context.Context, client *http.Client, baseURL string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		s.recordPing(err)
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		s.recordPing(err)
		s.log.Debug("Keep-alive ping failed", "error", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		s.recordPing(fmt.Errorf("status %d", resp.StatusCode))
		return
	}

	s.recordPing(nil)
}

func (s *Service) recordPing(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.pingLastErr = err.Error()
		return
	}
	s.pingLastErr = ""
	s.pingLastOKAt = time.Now().UTC()
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultStatusHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultStatusPort
	}

	addr := host + ":" + strconv.Itoa(port)
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	destinations := 0
	if s.registry != nil {
		if snapshot, err := s.registry.Snapshot(context.Background()); err == nil {
			destinations = len(snapshot)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	pingLastOK := ""
	if !s.pingLastOKAt.IsZero() {
		pingLastOK = s.pingLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Mode:          s.cfg.Telegram.Mode,
		Destinations:  destinations,
		PingLastOKAt:  pingLastOK,
		PingLastErr:   s.pingLastErr,
		Channels:      channels,
	}
}

func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range s.channelStates {
		if state.Running {
			return true
		}
	}

	return false
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
