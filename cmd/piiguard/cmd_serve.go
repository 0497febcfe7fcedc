package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SamuelRCrider/piiguard-go/core"
	"github.com/SamuelRCrider/piiguard-go/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr       string
		auditPath  string
		auditLevel string
		watch      bool
		rateLimit  float64
		rateBurst  int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with metrics, audit trail and policy hot reload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = os.Getenv("PIIGUARD_ADDR")
			}
			if addr == "" {
				addr = ":8080"
			}

			switch core.AuditLogLevel(auditLevel) {
			case core.AuditLogLevelMinimal, core.AuditLogLevelStandard, core.AuditLogLevelVerbose:
			default:
				return fmt.Errorf("unknown audit level %q", auditLevel)
			}

			auditConfig := core.DefaultAuditConfig()
			auditConfig.Path = auditPath
			auditConfig.Level = core.AuditLogLevel(auditLevel)
			audit, err := core.NewAuditLogger(auditConfig)
			if err != nil {
				return err
			}
			defer audit.Close()

			guard, err := root.guard(core.WithAuditLogger(audit))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, gctx := errgroup.WithContext(ctx)

			if watch && root.policyPath != "" {
				watcher, err := core.NewPolicyWatcher(guard, root.policyPath)
				if err != nil {
					return err
				}
				g.Go(func() error {
					if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			}

			srv := server.New(guard, root.policyPath, server.WithRateLimit(rateLimit, rateBurst))
			g.Go(func() error {
				return srv.Run(gctx, addr)
			})

			if err := g.Wait(); err != nil {
				slog.Error("PII guard API stopped", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address; env PIIGUARD_ADDR; default :8080")
	cmd.Flags().StringVar(&auditPath, "audit-path", "audit.log", "audit JSONL file; empty keeps records in memory")
	cmd.Flags().StringVar(&auditLevel, "audit-level", string(core.AuditLogLevelStandard), "audit level: minimal, standard or verbose")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload the policy file when it changes")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "max /v1 requests per second; 0 disables")
	cmd.Flags().IntVar(&rateBurst, "rate-burst", 20, "rate limit burst size")
	return cmd
}
