package main

import (
	"alpha-radar/src/analysis"
	"alpha-radar/src/cache"
	"alpha-radar/src/interfaces"
	"alpha-radar/src/logger"
	"alpha-radar/src/metrics"
	"alpha-radar/src/models"
	"alpha-radar/src/publisher"
	"alpha-radar/src/scanner"
	"alpha-radar/src/server"
	"alpha-radar/src/storage"

	"google.golang.org/grpc"
)

// app holds the wired components shared by the CLI modes and the servers.
type app struct {
	DB           interfaces.IDatabase
	Metrics      *metrics.Recorder
	Analyzer     *analysis.AnalysisFacade
	Orchestrator *scanner.ScanOrchestrator
	History      *scanner.HistoryReader
	Cache        *cache.RedisSignalCache
	Sinks        []interfaces.ISignalSink

	API  *server.APIServer
	GRPC *grpc.Server
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the database connection based on config
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.NewDatabase(config)
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupApp wires analysis, orchestration and the optional result sinks.
func setupApp(config *models.MConfig, db interfaces.IDatabase, appLogger *logger.Logger) *app {
	a := &app{
		DB:       db,
		Metrics:  metrics.NewRecorder(),
		Analyzer: analysis.NewAnalysisFacade(config, logger.NewLogger(config, "Analysis")),
	}

	a.Orchestrator = scanner.NewScanOrchestrator(config, db, db, a.Analyzer, logger.NewLogger(config, "ScanOrchestrator"), a.Metrics)
	a.History = scanner.NewHistoryReader(db, a.Analyzer, config.Scan.LookbackDays)

	// Optional sinks; a sink that cannot connect is skipped
	if config.Redis.Enabled {
		c, err := cache.NewRedisSignalCache(config.Redis)
		if err != nil {
			appLogger.Warning("Redis cache disabled: %v", err)
		} else {
			a.Cache = c
			a.addSink(c)
			appLogger.Info("Redis signal cache enabled (%s)", config.Redis.Addr)
		}
	}

	if config.Kafka.Enabled {
		p, err := publisher.NewKafkaSignalPublisher(config.Kafka)
		if err != nil {
			appLogger.Warning("Kafka publisher disabled: %v", err)
		} else {
			a.addSink(p)
			appLogger.Info("Kafka signal publisher enabled (topic %s)", config.Kafka.Topic)
		}
	}

	return a
}

func (a *app) addSink(sink interfaces.ISignalSink) {
	a.Sinks = append(a.Sinks, sink)
	a.Orchestrator.AddSink(sink)
}

// -----------------------------------------------------------------------------

// Shutdown stops the network servers.
func (a *app) Shutdown() {
	if a.API != nil {
		a.API.Stop()
	}
	if a.GRPC != nil {
		a.GRPC.GracefulStop()
	}
}

// Close releases the sinks.
func (a *app) Close() {
	for _, sink := range a.Sinks {
		sink.Close()
	}
}
