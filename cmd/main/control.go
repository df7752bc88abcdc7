package main

import (
	"context"
	"fmt"
	"time"

	"alpha-radar/src/grpc_control"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const controlTimeout = 10 * time.Second

// -----------------------------------------------------------------------------

// runControl sends one command to a running instance over gRPC and returns the reply as JSON.
// Commands: start [universe], stop, status, history <symbol>.
func runControl(ctx context.Context, addr, command string, args []string) (string, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return "", err
	}
	defer conn.Close()

	return sendControl(ctx, grpc_control.NewScanControlClient(conn), command, args)
}

func sendControl(ctx context.Context, client *grpc_control.ScanControlClient, command string, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()

	var reply *structpb.Struct
	var err error

	switch command {
	case "start":
		req := &structpb.Struct{Fields: map[string]*structpb.Value{}}
		if len(args) > 0 {
			req.Fields["universe"] = structpb.NewStringValue(args[0])
		}
		reply, err = client.StartScan(ctx, req)
	case "stop":
		reply, err = client.StopScan(ctx)
	case "status":
		reply, err = client.GetStatus(ctx)
	case "history":
		if len(args) == 0 {
			return "", fmt.Errorf("history needs a symbol")
		}
		reply, err = client.GetHistory(ctx, args[0])
	default:
		return "", fmt.Errorf("unknown control command %q (start, stop, status, history)", command)
	}
	if err != nil {
		return "", err
	}

	out, err := protojson.MarshalOptions{Multiline: true}.Marshal(reply)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
