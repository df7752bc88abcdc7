package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"alpha-radar/src/helpers"
	"alpha-radar/src/logger"
	"alpha-radar/src/models"
	"alpha-radar/src/scanner"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Scans is the part of the orchestrator the control service drives.
type Scans interface {
	Start(ctx context.Context, universeTag string) error
	Stop()
	Status() models.MScanStatus
}

// History serves one symbol's bars and event timeline.
type History interface {
	History(ctx context.Context, symbol string) ([]models.MBar, []models.MPatternEvent, error)
}

// -----------------------------------------------------------------------------

// ControlService implements ScanControlServer
type ControlService struct {
	Scans   Scans
	History History
	Logger  *logger.Logger
}

func NewControlService(scans Scans, history History, log *logger.Logger) *ControlService {
	return &ControlService{
		Scans:   scans,
		History: history,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) StartScan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	universe := "all"
	if v, ok := req.GetFields()["universe"]; ok {
		if _, isString := v.GetKind().(*structpb.Value_StringValue); !isString {
			return nil, status.Error(codes.InvalidArgument, "universe must be a string")
		}
		if tag := strings.TrimSpace(v.GetStringValue()); tag != "" {
			universe = tag
		}
	}

	// The run outlives the RPC
	if err := s.Scans.Start(context.WithoutCancel(ctx), universe); err != nil {
		if errors.Is(err, scanner.ErrScanInProgress) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Errorf(codes.Internal, "start scan: %v", err)
	}

	s.Logger.Info("gRPC: scan of %q started", universe)
	return structpb.NewStruct(map[string]interface{}{
		"started":  true,
		"universe": universe,
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) StopScan(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.Scans.Stop()
	s.Logger.Info("gRPC: stop requested")
	return toStruct(s.Scans.Status())
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.Scans.Status())
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetHistory(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	symbol := req.GetValue()
	bars, events, err := s.History.History(ctx, symbol)
	if err != nil {
		var verr *helpers.ValidationError
		switch {
		case errors.As(err, &verr):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, scanner.ErrUnknownSymbol):
			return nil, status.Errorf(codes.NotFound, "no bars for %s", symbol)
		}
		s.Logger.Error("gRPC: history for %s failed: %v", symbol, err)
		return nil, status.Error(codes.Internal, "failed to load history")
	}

	if events == nil {
		events = []models.MPatternEvent{}
	}
	return toStruct(struct {
		Symbol string                 `json:"symbol"`
		Bars   int                    `json:"bars"`
		Events []models.MPatternEvent `json:"events"`
	}{symbol, len(bars), events})
}

// -----------------------------------------------------------------------------

// toStruct converts a JSON-tagged value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return structpb.NewStruct(fields)
}
