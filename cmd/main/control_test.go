package main

import (
	"context"
	"net"
	"strings"
	"testing"

	"alpha-radar/src/analysis"
	"alpha-radar/src/config"
	"alpha-radar/src/grpc_control"
	"alpha-radar/src/logger"
	"alpha-radar/src/metrics"
	"alpha-radar/src/scanner"
	"alpha-radar/src/storage"

	"google.golang.org/grpc"
)

func startControlServer(t *testing.T) string {
	t.Helper()
	cfg := config.Default("control-test").MConfig
	store := storage.NewMemoryStore()
	facade := analysis.NewAnalysisFacade(cfg, logger.NewNop())
	orch := scanner.NewScanOrchestrator(cfg, store, store, facade, logger.NewNop(), metrics.NewRecorder())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer()
	grpc_control.RegisterScanControlServer(srv, grpc_control.NewControlService(orch, scanner.NewHistoryReader(store, facade, 30), logger.NewNop()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

func TestRunControl(t *testing.T) {
	addr := startControlServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		command string
		args    []string
		want    string
		wantErr bool
	}{
		{"status", "status", nil, "idle", false},
		{"stop when idle", "stop", nil, `"state"`, false},
		{"history of unknown symbol", "history", []string{"999999"}, "", true},
		{"history without symbol", "history", nil, "", true},
		{"unknown command", "restart", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runControl(ctx, addr, tt.command, tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %s", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("runControl: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("reply %s does not contain %s", out, tt.want)
			}
		})
	}
}
