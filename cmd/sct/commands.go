package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/j-veylop/speechcost-tui/internal/report"
	"github.com/j-veylop/speechcost-tui/internal/services"
)

const importTimeout = 5 * time.Minute

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "table",
		Usage:   "Output format (table, json, markdown)",
		EnvVars: []string{"SCT_FORMAT"},
	}
}

// profileFlags choose what the estimate is computed for. They are accepted
// both before and after the subcommand name.
func profileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "users",
			Aliases: []string{"u"},
			Usage:   "Monthly active users to project for (default MONTHLY_USERS)",
		},
		&cli.StringFlag{
			Name:    "window",
			Aliases: []string{"w"},
			Usage:   "Profile window: 24h, 7d, 30d or all (default PROFILE_WINDOW)",
		},
	}
}

func reportFlags() []cli.Flag {
	return append(profileFlags(), formatFlag())
}

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:   "estimate",
		Usage:  "Project the monthly cost from the stored usage profile",
		Flags:  reportFlags(),
		Action: func(c *cli.Context) error { return runReport(c, false) },
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:   "compare",
		Usage:  "Compare baseline, caching, batching and combined scenarios",
		Flags:  reportFlags(),
		Action: func(c *cli.Context) error { return runReport(c, true) },
	}
}

// openManager builds a manager for a one-shot command: no inbox watcher,
// no periodic refresh.
func openManager(c *cli.Context) (*services.Manager, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if err := setupCLILogging(cfg, c.App.ErrWriter); err != nil {
		return nil, err
	}
	mgr, err := services.NewManager(cfg, services.WithoutBackground())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return mgr, nil
}

func runReport(c *cli.Context, withScenarios bool) error {
	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	mgr, err := openManager(c)
	if err != nil {
		return err
	}
	defer mgr.Close()

	snap, err := reportSnapshot(mgr)
	if err != nil {
		return err
	}

	r := &report.Report{
		GeneratedAt: snap.UpdatedAt,
		Window:      snap.TimeRange,
		Profile:     snap.Profile,
		Estimate:    &snap.Estimate,
		Budget:      snap.Budget,
		Warnings:    snap.WarningStrings(),
	}
	if withScenarios {
		r.Scenarios = snap.Scenarios
	}
	return report.Render(c.App.Writer, format, r)
}

// reportSnapshot returns the snapshot NewManager built, refreshing only when
// that first build failed.
func reportSnapshot(mgr *services.Manager) (*services.Snapshot, error) {
	if snap := mgr.Current(); snap != nil {
		return snap, nil
	}
	snap, err := mgr.Refresh()
	if err != nil {
		return nil, fmt.Errorf("failed to build estimate: %w", err)
	}
	return snap, nil
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Store log exports (CSV or JSON lines) in the database",
		ArgsUsage: "FILE...",
		Action:    runImport,
	}
}

func runImport(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("import needs at least one file")
	}

	mgr, err := openManager(c)
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(c.Context, importTimeout)
	defer cancel()

	var errs []error
	for _, path := range c.Args().Slice() {
		res, err := mgr.ImportFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s: %d parsed, %d new, %d duplicate, %d skipped\n",
			path, res.Parsed, res.Inserted, res.Duplicates(), len(res.Skipped))
		for _, rowErr := range res.Skipped {
			fmt.Fprintf(c.App.ErrWriter, "  %v\n", rowErr)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
