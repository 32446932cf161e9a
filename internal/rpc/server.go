package rpc

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/affect-engine/internal/domain"
	"github.com/danielpatrickdp/affect-engine/internal/export"
	"github.com/danielpatrickdp/affect-engine/internal/feed"
)

// #region server
// Server implements AffectServiceServer over a feed. Every write goes through
// the feed, so concurrent RPCs never overlap inside the engine.
type Server struct {
	feed   *feed.Feed
	sink   export.Sink
	ingest export.Sink
	logger *zap.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithExportSink sets where Export writes the live session.
func WithExportSink(s export.Sink) ServerOption { return func(srv *Server) { srv.sink = s } }

// WithIngestSink sets where snapshots received from remote engines are kept.
func WithIngestSink(s export.Sink) ServerOption { return func(srv *Server) { srv.ingest = s } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ServerOption { return func(srv *Server) { srv.logger = l } }

// NewServer builds a server. Export and Ingest fail with FailedPrecondition
// until their sinks are configured.
func NewServer(f *feed.Feed, opts ...ServerOption) *Server {
	s := &Server{feed: f, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// #endregion server

// #region handlers
func (s *Server) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var msg UpdateRequest
	if err := fromStruct(req, &msg); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	in, err := msg.input()
	if err != nil {
		return nil, s.fail(ctx, methodUpdate, err)
	}
	st, err := s.feed.Submit(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, methodUpdate, err)
	}
	return s.reply(stateReply(st, s.feed.Engine().SessionID()))
}

func (s *Server) CurrentState(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	eng := s.feed.Engine()
	return s.reply(stateReply(eng.CurrentState(), eng.SessionID()))
}

func (s *Server) Report(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.reply(s.feed.Engine().GenerateReport())
}

func (s *Server) Export(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.sink == nil {
		return nil, status.Error(codes.FailedPrecondition, "no export sink configured")
	}
	res, err := s.feed.Engine().ExportSession(ctx, s.sink)
	if err != nil {
		return nil, s.fail(ctx, methodExport, err)
	}
	return s.reply(res)
}

func (s *Server) Reset(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	n, err := s.feed.Reset(ctx)
	if err != nil {
		return nil, s.fail(ctx, methodReset, err)
	}
	return s.reply(ResetReply{Drained: n, SessionID: s.feed.Engine().SessionID()})
}

func (s *Server) Ingest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.ingest == nil {
		return nil, status.Error(codes.FailedPrecondition, "no ingest sink configured")
	}
	var snap export.Snapshot
	if err := fromStruct(req, &snap); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if snap.Format != export.Format {
		return nil, s.fail(ctx, methodIngest,
			domain.NewValidationError("snapshot.format", fmt.Sprintf("unsupported format %q", snap.Format)))
	}
	if snap.SessionID == "" {
		return nil, s.fail(ctx, methodIngest, domain.NewValidationError("snapshot.session_id", "empty"))
	}
	if err := s.ingest.Write(ctx, snap); err != nil {
		return nil, s.fail(ctx, methodIngest, &domain.ExportFailure{Sink: s.ingest.Name(), Cause: err})
	}
	s.logger.Info("snapshot ingested",
		zap.String("session_id", snap.SessionID),
		zap.String("sink", s.ingest.Name()),
		zap.Int("transitions", len(snap.Transitions)))
	return s.reply(export.Result{
		SessionID:   snap.SessionID,
		Sink:        s.ingest.Name(),
		Transitions: len(snap.Transitions),
		ExportedAt:  snap.ExportedAt,
	})
}

// #endregion handlers

// #region helpers
func (s *Server) reply(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) fail(ctx context.Context, method string, err error) error {
	st := toStatus(ctx, err)
	if st.Code() == codes.Internal || st.Code() == codes.Unavailable {
		s.logger.Warn("rpc failed", zap.String("method", method), zap.Error(err))
	} else {
		s.logger.Debug("rpc rejected", zap.String("method", method), zap.Error(err))
	}
	return st.Err()
}

// toStatus maps the error taxonomy onto gRPC codes.
func toStatus(ctx context.Context, err error) *status.Status {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrConcurrency), errors.Is(err, feed.ErrDrained):
		return status.New(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrExport), errors.Is(err, feed.ErrClosed):
		return status.New(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err)
	case ctx.Err() != nil:
		// rate limiter errors don't wrap the context error
		return status.FromContextError(ctx.Err())
	}
	return status.New(codes.Internal, err.Error())
}

// #endregion helpers
