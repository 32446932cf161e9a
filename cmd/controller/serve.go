package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/affect-engine/internal/config"
	"github.com/danielpatrickdp/affect-engine/internal/feed"
	"github.com/danielpatrickdp/affect-engine/internal/rpc"
)

// #region serve
func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	opts := []feed.Option{
		feed.WithQueueSize(rt.cfg.Server.QueueSize),
		feed.WithLogger(rt.logger.Named("feed")),
	}
	if rt.cfg.Server.RateLimit > 0 {
		opts = append(opts, feed.WithRateLimit(rate.Limit(rt.cfg.Server.RateLimit), rt.cfg.Server.Burst))
	}
	f := feed.New(rt.engine, opts...)
	defer f.Close()

	lis, err := net.Listen("tcp", rt.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", rt.cfg.Server.Addr, err)
	}
	srv := grpc.NewServer()
	rpc.RegisterAffectServiceServer(srv, rpc.NewServer(f,
		rpc.WithExportSink(rt.sink),
		rpc.WithIngestSink(rt.store),
		rpc.WithLogger(rt.logger.Named("rpc")),
	))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.logger.Info("serving", zap.String("addr", lis.Addr().String()), zap.String("service", rpc.ServiceName))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return rt.watchLexicon(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		rt.logger.Info("shutting down")
		srv.GracefulStop()
		return nil
	})
	return g.Wait()
}

// #endregion serve

// #region send
func runSend(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		addr = cfg.Server.Addr
	}
	client, err := rpc.NewClient(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	out := cmd.OutOrStdout()
	for i, line := range args {
		s, err := client.UpdateLine(ctx, line)
		if err != nil {
			return err
		}
		printState(out, i+1, s.State)
	}
	if withReport, _ := cmd.Flags().GetBool("report"); withReport {
		rep, err := client.Report(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, rep.Narrative)
	}
	return nil
}

// #endregion send
