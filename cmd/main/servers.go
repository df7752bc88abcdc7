package main

import (
	"context"
	"fmt"
	"net"

	"alpha-radar/src/grpc_control"
	"alpha-radar/src/logger"
	"alpha-radar/src/models"
	"alpha-radar/src/server"
	"alpha-radar/src/utils"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components
func startServers(ctx context.Context, config *models.MConfig, a *app, appLogger *logger.Logger) {

	// 1. REST + WebSocket server; it also receives the scan's push events
	a.API = server.NewAPIServer(config, logger.NewLogger(config, "APIServer"), a.Orchestrator, a.DB, a.History, a.Metrics)
	if a.Cache != nil {
		a.API.Cache = a.Cache
	}
	a.Orchestrator.Exchanger = a.API

	go func() {
		if err := a.API.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	a.GRPC = grpc.NewServer()
	grpc_control.RegisterScanControlServer(a.GRPC, grpc_control.NewControlService(a.Orchestrator, a.History, logger.NewLogger(config, "ControlService")))

	go func() {
		addr := fmt.Sprintf("%s:%d", config.GrpcHost, config.GrpcPort)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			appLogger.Error("Failed to listen for gRPC on %s: %v", addr, err)
			return
		}

		appLogger.Info("Starting gRPC Control Server on %s", addr)
		if err := a.GRPC.Serve(lis); err != nil {
			appLogger.Error("gRPC server failed: %v", err)
		}
	}()

	// 3. Daily scan on trading days
	if config.Schedule.Enabled {
		cal := utils.GetCalendar(config.Schedule.Market)
		sched, err := utils.NewScanScheduler(cal, config.Schedule.RunAt, config.Schedule.UniverseTag,
			func(ctx context.Context, tag string) error {
				_, err := a.Orchestrator.Run(ctx, tag)
				return err
			},
			logger.NewLogger(config, "ScanScheduler"))
		if err != nil {
			appLogger.Error("Scheduler disabled: %v", err)
			return
		}
		go sched.Run(ctx)
	}
}
