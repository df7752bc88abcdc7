package interfaces

import (
	"context"

	"alpha-radar/src/models"
)

// -----------------------------------------------------------------------------
// IDataExchanger pushes scan activity to external listeners (websocket server).
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// Broadcast pushes an event to every connected listener.
	Broadcast(event models.MScanEvent)

	// -----------------------------------------------------------------------------

	// Start the server
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the server gracefully
	Stop() error
}

// -----------------------------------------------------------------------------
// ISignalSink receives the terminal result of a completed scan.
// -----------------------------------------------------------------------------

type ISignalSink interface {

	// Name identifies the sink in logs.
	Name() string

	// Publish fans the result out. Errors are logged by the caller and never fail the scan.
	Publish(ctx context.Context, result *models.MScanResult) error

	// Close releases connections.
	Close() error
}
