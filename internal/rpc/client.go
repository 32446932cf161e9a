package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/affect-engine/internal/export"
	"github.com/danielpatrickdp/affect-engine/internal/report"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
)

// #region client-struct
// Client wraps a gRPC connection to an affect service.
type Client struct {
	conn   *grpc.ClientConn
	client AffectServiceClient
	target string
}

// #endregion client-struct

// #region constructor
// NewClient connects to addr. Extra dial options are applied after the
// default insecure transport credentials.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewAffectServiceClient(conn),
		target: addr,
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc AffectServiceClient) *Client {
	return &Client{client: svc, target: "injected"}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Target returns the address the client was built for.
func (c *Client) Target() string { return c.target }

// #endregion close

// #region calls
// Update applies a trigger on the remote engine.
func (c *Client) Update(ctx context.Context, in trigger.Input) (StateReply, error) {
	return c.update(ctx, UpdateRequest{Input: in})
}

// UpdateLine applies a REPL-style trigger line on the remote engine.
func (c *Client) UpdateLine(ctx context.Context, line string) (StateReply, error) {
	return c.update(ctx, UpdateRequest{Line: line})
}

func (c *Client) update(ctx context.Context, req UpdateRequest) (StateReply, error) {
	var out StateReply
	if err := c.call(ctx, c.client.Update, req, &out); err != nil {
		return StateReply{}, fmt.Errorf("update rpc: %w", err)
	}
	return out, nil
}

// CurrentState reads the remote engine's latest state.
func (c *Client) CurrentState(ctx context.Context) (StateReply, error) {
	var out StateReply
	if err := c.call(ctx, c.client.CurrentState, nil, &out); err != nil {
		return StateReply{}, fmt.Errorf("current state rpc: %w", err)
	}
	return out, nil
}

// Report fetches the remote session report.
func (c *Client) Report(ctx context.Context) (report.Report, error) {
	var out report.Report
	if err := c.call(ctx, c.client.Report, nil, &out); err != nil {
		return report.Report{}, fmt.Errorf("report rpc: %w", err)
	}
	return out, nil
}

// Export asks the remote engine to export its session to its own sink.
func (c *Client) Export(ctx context.Context) (export.Result, error) {
	var out export.Result
	if err := c.call(ctx, c.client.Export, nil, &out); err != nil {
		return export.Result{}, fmt.Errorf("export rpc: %w", err)
	}
	return out, nil
}

// Reset resets the remote engine.
func (c *Client) Reset(ctx context.Context) (ResetReply, error) {
	var out ResetReply
	if err := c.call(ctx, c.client.Reset, nil, &out); err != nil {
		return ResetReply{}, fmt.Errorf("reset rpc: %w", err)
	}
	return out, nil
}

// Ingest sends a snapshot to the remote service for storage.
func (c *Client) Ingest(ctx context.Context, snap export.Snapshot) (export.Result, error) {
	var out export.Result
	if err := c.call(ctx, c.client.Ingest, snap, &out); err != nil {
		return export.Result{}, fmt.Errorf("ingest rpc: %w", err)
	}
	return out, nil
}

type method func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

func (c *Client) call(ctx context.Context, m method, req, out any) error {
	in := &structpb.Struct{}
	if req != nil {
		var err error
		if in, err = toStruct(req); err != nil {
			return err
		}
	}
	resp, err := m(ctx, in)
	if err != nil {
		return err
	}
	return fromStruct(resp, out)
}

// #endregion calls

// #region remote-sink
// RemoteSink is an export.Sink that ships snapshots to another service's
// Ingest method.
type RemoteSink struct {
	client *Client
}

// NewRemoteSink wraps a client.
func NewRemoteSink(c *Client) *RemoteSink { return &RemoteSink{client: c} }

// Name implements export.Sink.
func (s *RemoteSink) Name() string { return "grpc:" + s.client.Target() }

// Write implements export.Sink.
func (s *RemoteSink) Write(ctx context.Context, snap export.Snapshot) error {
	_, err := s.client.Ingest(ctx, snap)
	return err
}

// #endregion remote-sink
