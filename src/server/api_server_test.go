package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"alpha-radar/src/config"
	"alpha-radar/src/helpers"
	"alpha-radar/src/logger"
	"alpha-radar/src/metrics"
	"alpha-radar/src/models"
	"alpha-radar/src/scanner"
	"alpha-radar/src/storage"

	"github.com/gorilla/websocket"
)

const testSecret = "test-secret"

type fakeScans struct {
	mu      sync.Mutex
	started []string
	stopped int
	busy    bool
}

func (f *fakeScans) Start(_ context.Context, tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return scanner.ErrScanInProgress
	}
	f.started = append(f.started, tag)
	return nil
}

func (f *fakeScans) Stop() {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
}

func (f *fakeScans) Status() models.MScanStatus {
	return models.MScanStatus{ScanID: "scan-1", State: models.ScanIdle}
}

type fakeHistory struct{}

func (fakeHistory) History(_ context.Context, symbol string) ([]models.MBar, []models.MPatternEvent, error) {
	switch symbol {
	case "600000":
		day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		bars := []models.MBar{{Symbol: symbol, Date: day}, {Symbol: symbol, Date: day.AddDate(0, 0, 1)}}
		return bars, []models.MPatternEvent{{Pattern: "W-Bottom", Index: 1, Date: "2024-01-03"}}, nil
	case "bad sym":
		return nil, nil, helpers.NewValidationError("bad symbol")
	}
	return nil, nil, scanner.ErrUnknownSymbol
}

type fakeCache struct{ signals []models.MSignal }

func (f fakeCache) Latest(context.Context) ([]models.MSignal, error) { return f.signals, nil }

// -----------------------------------------------------------------------------

func newTestServer(t *testing.T, mutate func(cfg *models.MConfig)) (*APIServer, *fakeScans, *storage.MemoryStore) {
	t.Helper()
	cfg := config.Default("server-test").MConfig
	cfg.Server.JWTSecret = testSecret
	cfg.Server.RateLimitRPS = 100
	cfg.Server.RateLimitBurst = 100
	if mutate != nil {
		mutate(cfg)
	}

	store := storage.NewMemoryStore()
	now := time.Now()
	_ = store.SaveSignalsBatch(context.Background(), []models.MSignal{
		{Symbol: "600000", Type: models.SignalVCP, Score: 71, Timestamp: now},
		{Symbol: "000001", Type: models.SignalMultiSignal, Resonant: true, Score: 85, Timestamp: now},
		{Symbol: "300750", Type: models.SignalHighScore, Resonant: true, Score: 92, Timestamp: now},
	})

	scans := &fakeScans{}
	s := NewAPIServer(cfg, logger.NewNop(), scans, store, fakeHistory{}, metrics.NewRecorder())
	return s, scans, store
}

func do(s *APIServer, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

// -----------------------------------------------------------------------------

func TestReadOnlyRoutes(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	tests := []struct {
		name     string
		path     string
		wantCode int
		check    func(t *testing.T, body map[string]any)
	}{
		{"health", "/api/health", http.StatusOK, func(t *testing.T, b map[string]any) {
			if b["status"] != "ok" || b["scan_state"] != "idle" {
				t.Fatalf("health = %v", b)
			}
		}},
		{"status", "/api/scan/status", http.StatusOK, func(t *testing.T, b map[string]any) {
			if b["scan_id"] != "scan-1" {
				t.Fatalf("status = %v", b)
			}
		}},
		{"signals best first", "/api/signals", http.StatusOK, func(t *testing.T, b map[string]any) {
			list := b["signals"].([]any)
			first := list[0].(map[string]any)
			if b["source"] != "store" || len(list) != 3 || first["symbol"] != "300750" || first["display_type"] != "🔥 High-Score" {
				t.Fatalf("signals = %v", b)
			}
		}},
		{"signals by type", "/api/signals?type=VCP&type=Multi-Signal", http.StatusOK, func(t *testing.T, b map[string]any) {
			if b["count"] != float64(2) {
				t.Fatalf("filtered count = %v", b["count"])
			}
		}},
		{"signals limit", "/api/signals?limit=1", http.StatusOK, func(t *testing.T, b map[string]any) {
			if b["count"] != float64(1) {
				t.Fatalf("limited count = %v", b["count"])
			}
		}},
		{"signals bad limit", "/api/signals?limit=0", http.StatusBadRequest, nil},
		{"signals bad type", "/api/signals?type=Rocket", http.StatusBadRequest, nil},
		{"history", "/api/history/600000", http.StatusOK, func(t *testing.T, b map[string]any) {
			if b["bars"] != float64(2) || b["to"] != "2024-01-03" || len(b["events"].([]any)) != 1 {
				t.Fatalf("history = %v", b)
			}
		}},
		{"history unknown", "/api/history/999999", http.StatusNotFound, nil},
		{"history invalid", "/api/history/bad%20sym", http.StatusBadRequest, nil},
		{"risk size", "/api/risk/size?account=100000&atr=1", http.StatusOK, func(t *testing.T, b map[string]any) {
			if b["shares"] != float64(1000) || b["stop_distance"] != float64(2) {
				t.Fatalf("risk = %v", b)
			}
		}},
		{"risk kelly", "/api/risk/size?account=100000&atr=1&win_rate=0.6&payoff=2", http.StatusOK, func(t *testing.T, b map[string]any) {
			k := b["kelly_fraction"].(float64)
			if k < 0.1999 || k > 0.2001 {
				t.Fatalf("kelly = %v", k)
			}
		}},
		{"risk invalid", "/api/risk/size?account=-1&atr=1", http.StatusBadRequest, nil},
		{"risk NaN account", "/api/risk/size?account=NaN&atr=1", http.StatusBadRequest, nil},
		{"risk infinite atr", "/api/risk/size?account=100000&atr=Inf", http.StatusBadRequest, nil},
		{"risk NaN win rate", "/api/risk/size?account=100000&atr=1&win_rate=nan", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodGet, tt.path, "", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.check != nil {
				tt.check(t, decode(t, rec))
			}
		})
	}
}

func TestSignalsPreferCache(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	s.Cache = fakeCache{signals: []models.MSignal{{Symbol: "688001", Type: models.SignalTriangle, Score: 70}}}

	body := decode(t, do(s, http.MethodGet, "/api/signals", "", ""))
	if body["source"] != "cache" || body["count"] != float64(1) {
		t.Fatalf("signals = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	s.Metrics.WorkerFault()

	rec := do(s, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "alpharadar_worker_faults_total 1") {
		t.Fatalf("metrics = %d %s", rec.Code, rec.Body.String())
	}
}

// -----------------------------------------------------------------------------

func TestScanControlAuth(t *testing.T) {
	s, scans, _ := newTestServer(t, nil)
	token, err := IssueToken(testSecret, "ops", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	expired, _ := IssueToken(testSecret, "ops", -time.Hour)
	forged, _ := IssueToken("other-secret", "ops", time.Hour)

	tests := []struct {
		name     string
		path     string
		token    string
		body     string
		wantCode int
	}{
		{"no token", "/api/scan/start", "", "", http.StatusUnauthorized},
		{"expired", "/api/scan/start", expired, "", http.StatusUnauthorized},
		{"forged", "/api/scan/start", forged, "", http.StatusUnauthorized},
		{"start default universe", "/api/scan/start", token, "", http.StatusAccepted},
		{"start market", "/api/scan/start", token, `{"universe":"SZ"}`, http.StatusAccepted},
		{"bad payload", "/api/scan/start", token, `{"universe":`, http.StatusBadRequest},
		{"stop", "/api/scan/stop", token, "", http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, tt.path, tt.token, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	if len(scans.started) != 2 || scans.started[0] != "all" || scans.started[1] != "SZ" || scans.stopped != 1 {
		t.Fatalf("started %v, stopped %d", scans.started, scans.stopped)
	}

	scans.busy = true
	if rec := do(s, http.MethodPost, "/api/scan/start", token, ""); rec.Code != http.StatusConflict {
		t.Fatalf("busy start code = %d", rec.Code)
	}
}

func TestScanControlRateLimit(t *testing.T) {
	s, _, _ := newTestServer(t, func(cfg *models.MConfig) {
		cfg.Server.JWTSecret = ""
		cfg.Server.RateLimitRPS = 0.001
		cfg.Server.RateLimitBurst = 2
	})

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, do(s, http.MethodPost, "/api/scan/stop", "", "").Code)
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// Read-only routes are not limited
	if rec := do(s, http.MethodGet, "/api/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health code = %d", rec.Code)
	}
}

// -----------------------------------------------------------------------------

func TestWebSocketPushesFilteredEvents(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	s.startHub()
	defer s.Stop()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var event models.MScanEvent
	if err := conn.ReadJSON(&event); err != nil || event.Type != models.EventStatus {
		t.Fatalf("initial event = %+v, %v", event, err)
	}

	// Subscribe to VCP only; the reply is a status event
	if err := conn.WriteJSON(models.MClientCommand{Command: "subscribe", Types: []models.SignalType{models.SignalVCP}}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := conn.ReadJSON(&event); err != nil || event.Type != models.EventStatus {
		t.Fatalf("subscribe reply = %+v, %v", event, err)
	}

	s.Broadcast(models.MScanEvent{Type: models.EventSignal, Signal: &models.MSignal{Symbol: "000001", Type: models.SignalTriangle}})
	s.Broadcast(models.MScanEvent{Type: models.EventSignal, Signal: &models.MSignal{Symbol: "600000", Type: models.SignalVCP}})
	s.Broadcast(models.MScanEvent{Type: models.EventProgress, Progress: &models.MScanProgress{Processed: 5, Total: 10}})

	if err := conn.ReadJSON(&event); err != nil || event.Type != models.EventSignal || event.Signal.Symbol != "600000" {
		t.Fatalf("filtered signal = %+v, %v", event, err)
	}
	if err := conn.ReadJSON(&event); err != nil || event.Type != models.EventProgress || event.Progress.Processed != 5 {
		t.Fatalf("progress = %+v, %v", event, err)
	}
}
