// Command moodmarket is the interactive market game.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zappabad/moodmarket/internal/config"
	"github.com/zappabad/moodmarket/internal/game"
	"github.com/zappabad/moodmarket/internal/logging"
	"github.com/zappabad/moodmarket/internal/session"
	"github.com/zappabad/moodmarket/tui"
)

func main() {
	var (
		configPath string
		seed       int64
		listen     string
		mood       bool
	)

	rootCmd := &cobra.Command{
		Use:   "moodmarket",
		Short: "Trade a synthetic stock market from your terminal",
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
			if cmd.Flags().Changed("mood") {
				cfg.Mood.Enabled = mood
			}
			// the screen is the terminal; logs go to a file
			if cfg.Logging.File == "" {
				cfg.Logging.File = filepath.Join(os.TempDir(), "moodmarket.log")
			}
			return run(cfg)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (env MOODMARKET_* overrides it)")
	rootCmd.Flags().Int64VarP(&seed, "seed", "s", 0, "random seed (0 picks one)")
	rootCmd.Flags().StringVarP(&listen, "listen", "l", "", "address for the signal websocket and /metrics")
	rootCmd.Flags().BoolVar(&mood, "mood", false, "trade on a random mood source instead of a camera")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg game.Config) error {
	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	updates := session.NewChannelNotifier(256)
	g, err := game.NewGame(cfg,
		game.WithLogger(logger),
		game.WithNotifier(updates),
		game.WithFaultHandler(func(task string, err error) {
			logger.Fatal("scheduled task failed", zap.String("task", task), zap.Error(err))
		}),
	)
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.Serve(); err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewModel(g, updates), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	if dropped := updates.Dropped(); dropped > 0 {
		logger.Warn("screen fell behind", zap.Int64("dropped_updates", dropped))
	}
	return nil
}
