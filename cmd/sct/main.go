// Package main is the entry point for sct, the speech synthesis cost
// estimator. Without a subcommand it runs the dashboard.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/j-veylop/speechcost-tui/internal/app"
	"github.com/j-veylop/speechcost-tui/internal/config"
	"github.com/j-veylop/speechcost-tui/internal/logger"
	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/services"
	"github.com/j-veylop/speechcost-tui/internal/ui/tabs/history"
	"github.com/j-veylop/speechcost-tui/internal/ui/tabs/info"
	"github.com/j-veylop/speechcost-tui/internal/ui/tabs/overview"
	"github.com/j-veylop/speechcost-tui/internal/ui/tabs/scenarios"
	"github.com/j-veylop/speechcost-tui/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "sct",
		Usage:   "Speech synthesis usage monitor and cost estimator",
		Version: version.GetVersion(),

		Flags: profileFlags(),

		Action: runDashboard,

		Commands: []*cli.Command{
			{
				Name:   "dashboard",
				Usage:  "Run the interactive dashboard",
				Action: runDashboard,
			},
			estimateCommand(),
			compareCommand(),
			importCommand(),
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, version.Info())
					return err
				},
			},
		},
	}
}

// flagSource returns the nearest context, walking out from the subcommand,
// in which name was given on the command line. The profile flags are
// defined on both the app and the report commands, and a subcommand's own
// unset copy would otherwise hide the app-level value.
func flagSource(c *cli.Context, name string) *cli.Context {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(name) {
			return ctx
		}
	}
	return nil
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if fc := flagSource(c, "users"); fc != nil {
		cfg.MonthlyUsers = fc.Int("users")
	}
	if fc := flagSource(c, "window"); fc != nil {
		tr, err := models.ParseTimeRange(fc.String("window"))
		if err != nil {
			return nil, err
		}
		cfg.ProfileWindow = tr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runDashboard(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logFile, err := logger.OpenFile(cfg.LogPath, level)
	if err != nil {
		return err
	}
	defer logFile.Close()

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)
	state := model.GetState()
	model.SetTabs([]app.Tab{
		overview.New(state),
		scenarios.New(state),
		history.New(state),
		info.New(state, cfg, svcManager.Pricing()),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	logger.Info("dashboard started", "users", cfg.MonthlyUsers, "window", cfg.ProfileWindow.Flag())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// setupCLILogging sends logs to stderr so they never mix with report output.
func setupCLILogging(cfg *config.Config, w io.Writer) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetOutput(w, level)
	return nil
}
