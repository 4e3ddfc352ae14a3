// Command server runs a headless market session, optionally serving the
// signal websocket and Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zappabad/moodmarket/internal/clock"
	"github.com/zappabad/moodmarket/internal/config"
	"github.com/zappabad/moodmarket/internal/game"
	"github.com/zappabad/moodmarket/internal/logging"
	"github.com/zappabad/moodmarket/internal/session"
)

var (
	version    = "0.1.0"
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "moodmarket-server",
		Short: "Headless synthetic stock market",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (env MOODMARKET_* overrides it)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("moodmarket version %s\n", version)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func runCmd() *cobra.Command {
	var (
		ticks  int
		seed   int64
		listen string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the market",
		Long: `Run the market. With --ticks the clock is simulated: every scheduled
task runs for that many tick periods as fast as possible and a summary is
printed. Without it the market runs in real time until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			return run(cmd, cfg, ticks)
		},
	}
	cmd.Flags().IntVarP(&ticks, "ticks", "n", 0, "simulate this many ticks and exit")
	cmd.Flags().Int64VarP(&seed, "seed", "s", 0, "random seed (0 picks one)")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "address for /ws and /metrics")
	return cmd
}

func run(cmd *cobra.Command, cfg game.Config, ticks int) error {
	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	opts := []game.Option{
		game.WithLogger(logger),
		game.WithFaultHandler(func(task string, err error) {
			logger.Fatal("scheduled task failed", zap.String("task", task), zap.Error(err))
		}),
	}

	var manual *clock.Manual
	if ticks > 0 {
		opts = append(opts, game.WithScheduler(func() game.Scheduler {
			manual = clock.NewManual(time.Now())
			return manualScheduler{manual}
		}))
	}

	g, err := game.NewGame(cfg, opts...)
	if err != nil {
		return err
	}
	defer g.Close()

	if ticks > 0 {
		step := g.Session().Config().TickInterval
		for i := 0; i < ticks; i++ {
			manual.Advance(step)
		}
		printSummary(cmd, g.Session())
		return nil
	}

	if err := g.Serve(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	printSummary(cmd, g.Session())
	return nil
}

type manualScheduler struct{ *clock.Manual }

func (manualScheduler) Start() {}
func (manualScheduler) Close() {}

func printSummary(cmd *cobra.Command, sess *session.Session) {
	snap := sess.Snapshot()
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "session %s\n", snap.SessionID)
	fmt.Fprintf(w, "date    %s (day %d/%d)\n", snap.Date.Format(time.DateOnly), snap.DayIndex, snap.HorizonDays)
	fmt.Fprintf(w, "cash    %s\n", snap.Cash.StringFixed(2))
	fmt.Fprintf(w, "value   %s\n", snap.Value.StringFixed(2))
	fmt.Fprintf(w, "p&l     %s\n", snap.TotalPL.StringFixed(2))
	fmt.Fprintln(w)
	for _, sym := range snap.Market.Order {
		st := snap.Market.BySymbol[sym]
		fmt.Fprintf(w, "%-6s %10.2f %+8.2f%%\n", sym, st.Price, st.ChangePercent())
	}

	events := sess.Events(sess.Config().News.Retention)
	if len(events) > 0 {
		fmt.Fprintln(w)
	}
	for _, ev := range events {
		fmt.Fprintf(w, "%s  %s: %s\n", ev.Time.Format(time.TimeOnly), ev.Title, ev.Message)
	}
}
