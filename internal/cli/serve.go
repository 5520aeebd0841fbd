package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alamshoaib134/git-secret-scanner/internal/db"
	"github.com/alamshoaib134/git-secret-scanner/internal/logger"
	"github.com/alamshoaib134/git-secret-scanner/internal/server"
	"github.com/alamshoaib134/git-secret-scanner/internal/services"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scan HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(os.Stdout); err != nil {
				return failed(err)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, gctx := errgroup.WithContext(ctx)

			rt, err := buildRuntime(gctx, a.cfg, a.log, true)
			if err != nil {
				return failed(err)
			}
			a.log.Infow("starting secretscan", "version", server.Version, "git_backend", a.cfg.GitBackend,
				"patterns", rt.engine.Catalog().Len(), "max_commits", a.cfg.MaxCommits,
				"max_concurrent_scans", a.cfg.MaxConcurrentScans)

			var producer *services.SQSProducer
			if a.cfg.SQSEnabled {
				client, err := services.NewSQSClient(gctx)
				if err != nil {
					a.exitCode = ExitRuntimeError
					a.log.Errorw("sqs intake unavailable", "error", err)
					return nil
				}
				producer = &services.SQSProducer{
					Client:   client,
					QueueURL: a.cfg.SQSQueueURL,
					Jobs:     rt.orch,
					Log:      a.log,
				}
			}

			srv := server.NewServer(rt.orch, rt.engine.Catalog().Len(), a.cfg.HTTPAddr, a.log)
			g.Go(func() error { return srv.Run(gctx) })
			g.Go(func() error { return db.RunJanitor(gctx, rt.store, a.cfg.JanitorInterval, a.log) })
			if producer != nil {
				g.Go(func() error { return producer.Run(gctx) })
			}

			err = g.Wait()
			a.log.Infow("waiting for running scans to stop")
			rt.consumer.Wait()
			if err != nil {
				a.exitCode = ExitRuntimeError
				a.log.Errorw("secretscan stopped", "error", err)
				return nil
			}
			a.log.Infow("secretscan stopped")
			return nil
		},
	}
}
