package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xhad/ragflow/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := c.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if port == "" {
				port = c.config.Server.Port
			}

			srv := server.New(server.Config{
				RateLimit: c.config.Server.RateLimit,
				RateBurst: c.config.Server.RateBurst,
			}, server.Deps{
				Ingester:  a.Pipeline,
				Runner:    a.Executor,
				Documents: a.Documents,
				Texts:     a.Texts,
				Generator: a.Gateway,
			}, a.Metrics, c.logger)

			httpServer := &http.Server{
				Addr:              ":" + port,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				c.logger.Info("Starting server", zap.String("addr", httpServer.Addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				c.logger.Info("Shutting down gracefully...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")
	return cmd
}
