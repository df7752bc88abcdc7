package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alpha-radar/src/config"
	"alpha-radar/src/logger"
	"alpha-radar/src/server"
)

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	importPath := flag.String("import", "", "load bars from a CSV file (symbol,name,date,open,high,low,close,volume,amount) and exit")
	scanOnce := flag.String("scan", "", "run one scan of the given universe tag and exit")
	issueToken := flag.String("issue-token", "", "print a scan control token for the given operator and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "validity of tokens printed by -issue-token")
	control := flag.String("control", "", "send start|stop|status|history to the running instance's gRPC port and exit (arguments follow the flags)")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)

	if *issueToken != "" {
		if conf.Server.JWTSecret == "" {
			appLogger.Critical("server.jwt_secret is not set")
		}
		token, err := server.IssueToken(conf.Server.JWTSecret, *issueToken, *tokenTTL)
		if err != nil {
			appLogger.Critical("Failed to sign token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if *control != "" {
		addr := fmt.Sprintf("%s:%d", conf.GrpcHost, conf.GrpcPort)
		out, err := runControl(context.Background(), addr, *control, flag.Args())
		if err != nil {
			appLogger.Critical("Control command failed: %v", err)
		}
		fmt.Println(out)
		return
	}

	// 4. Storage
	db, err := setupDatabase(conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *importPath != "" {
		if err := runImport(ctx, *importPath, db, appLogger); err != nil {
			appLogger.Critical("Import failed: %v", err)
		}
		return
	}

	// 5. Scan pipeline
	app := setupApp(conf.MConfig, db, appLogger)
	defer app.Close()

	if *scanOnce != "" {
		result, err := app.Orchestrator.Run(ctx, *scanOnce)
		if err != nil {
			appLogger.Critical("Scan failed: %v", err)
		}
		for _, s := range result.Signals {
			fmt.Printf("%s\t%s\t%-16s\t%.1f\t%s\n", s.Symbol, s.Name, s.DisplayType(), s.Score, s.Info)
		}
		return
	}

	// 6. Servers and scheduler
	startServers(ctx, conf.MConfig, app, appLogger)

	<-ctx.Done()
	appLogger.Info("Shutting down...")
	app.Orchestrator.Stop()
	app.Shutdown()
}
