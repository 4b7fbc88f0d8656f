package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kinetral/sequitur"
	"github.com/kinetral/sequitur/internal/config"
	"github.com/kinetral/sequitur/internal/logging"
	httpAdapter "github.com/kinetral/sequitur/pkg/adapters/http"
	redisAdapter "github.com/kinetral/sequitur/pkg/adapters/redis"
	"github.com/kinetral/sequitur/pkg/domain"
	"github.com/kinetral/sequitur/pkg/ports"
	"github.com/kinetral/sequitur/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve diagnostics for a replaying supervisor",
	Long: `Starts the diagnostics HTTP server (status, graph, metrics). With
--trace, the supervisor replays the trace in a loop so dashboards have
something to watch; without it the graph is served in its loaded,
unstarted form. With --redis, diagnostics snapshots are journaled for
off-board history queries.`,
	Run: func(cmd *cobra.Command, args []string) {
		graphPath, _ := cmd.Flags().GetString("graph")
		tracePath, _ := cmd.Flags().GetString("trace")
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		entry, _ := cmd.Flags().GetString("entry")
		period, _ := cmd.Flags().GetDuration("period")
		level, _ := cmd.Flags().GetString("log-level")

		if err := runServe(graphPath, tracePath, port, redisAddr, entry, period, level); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().StringP("trace", "t", "", "Snapshot trace to replay in a loop")
	serveCmd.Flags().StringP("entry", "e", "", "Entry state override")
	serveCmd.Flags().String("redis", "", "Redis address for the diagnostics journal")
	serveCmd.Flags().Duration("period", 10*time.Millisecond, "Tick period for the replay loop")
}

func runServe(graphPath, tracePath, port, redisAddr, entry string, period time.Duration, level string) error {
	logger := logging.New(logging.ParseLevel(level))

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	sup, err := newInspectionSupervisor(graphPath,
		sequitur.WithLogger(logger),
		sequitur.WithLifecycleHooks(metrics.Hooks()),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Replay loop: feed the trace into the mailbox over and over and
	// tick the supervisor at the configured period.
	if tracePath != "" {
		trace, err := config.LoadTrace(tracePath)
		if err != nil {
			return err
		}
		if err := sup.Start(entry); err != nil {
			return err
		}
		go feedTrace(ctx, sup, trace, period)
		go func() {
			if err := sup.Run(ctx, period); err != nil && ctx.Err() == nil {
				logger.Error("replay loop stopped", "err", err)
			}
			metrics.SetPhase(sup.Phase())
		}()
	}

	// Journal poller: written outside the tick, never from it.
	if redisAddr != "" {
		journal := redisAdapter.New(redisAddr, "", 0)
		defer journal.Close()
		go pollJournal(ctx, sup, journal, logger)
	}

	handler := httpAdapter.NewHandler(sup,
		httpAdapter.WithGraph(sup.States(), sup.Entries()),
		httpAdapter.WithMetrics(reg),
		httpAdapter.WithLogger(logger),
	)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		fmt.Printf("Starting diagnostics server on %s\n", srv.Addr)
		fmt.Printf("Serving graph from: %s\n", graphPath)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		fmt.Printf("\nStart shutdown... Signal: %v\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		fmt.Println("Diagnostics server stopped gracefully")
		return nil
	}
}

// feedTrace publishes the trace's snapshots into the mailbox at the
// tick period, looping forever with fresh sequence numbers.
func feedTrace(ctx context.Context, sup *sequitur.Supervisor, trace *config.Trace, period time.Duration) {
	snaps := trace.Snapshots()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	seq := uint64(0)
	for {
		for _, snap := range snaps {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			seq++
			sup.Mailbox().Put(&domain.Snapshot{
				Seq:     seq,
				Stamp:   time.Now(),
				Signals: snap.Signals,
			})
		}
	}
}

// pollJournal appends a diagnostics snapshot once per second.
func pollJournal(ctx context.Context, sup *sequitur.Supervisor, journal ports.DiagnosticsJournal, logger *slog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := journal.Append(ctx, sup.Diagnostics()); err != nil {
				logger.Warn("journal append failed", "err", err)
			}
		}
	}
}
