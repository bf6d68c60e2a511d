package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"sprintlens/internal/config"
	"sprintlens/internal/database"
	"sprintlens/internal/export"
	"sprintlens/internal/heatmap"
	"sprintlens/internal/report"
	"sprintlens/internal/tui"
	"sprintlens/internal/util"
	"sprintlens/internal/velocity"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "database file (default: data dir)")
		configPath = flag.String("config", "", "config file")
		runDue     = flag.Bool("due", false, "run due report schedules and exit")
		projectID  = flag.Int64("project", 1, "project to show on the dashboard")
		outDir     = flag.String("out", "", "drop directory for scheduled exports")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Bad config: %v\n", err)
		os.Exit(1)
	}

	if *dbPath == "" {
		root := util.DataDir(config.AppName)
		util.MustSucceed("creating data directory", os.MkdirAll(root, 0o755))
		*dbPath = filepath.Join(root, config.DBFileName)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, *dbPath)
	if err != nil {
		fmt.Printf("Alas, there's been an error: %v\n", err)
		os.Exit(1)
	}
	defer func() { util.LogError("closing database", db.Close()) }()

	if *runDue {
		if err := runDueSchedules(ctx, db, cfg, *outDir); err != nil {
			os.Exit(1)
		}
		return
	}

	to := time.Now().UTC().Format("2006-01-02")
	from := time.Now().UTC().AddDate(0, 0, -14).Format("2006-01-02")
	model := tui.NewDashboardModel(ctx, velocity.New(db),
		heatmap.New(db, cfg), db, *projectID, from, to)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v\n", err)
		os.Exit(1)
	}
}

// runDueSchedules is the headless mode: an external scheduler (cron, systemd
// timer) invokes it; concurrent invocations are safe.
func runDueSchedules(ctx context.Context, db *database.Database, cfg config.Config, outDir string) error {
	if outDir == "" {
		outDir = filepath.Join(util.DataDir(config.AppName), "exports")
	}
	sink, err := export.NewFileSink(export.New(cfg), outDir)
	if err != nil {
		color.Red("cannot open export directory: %v", err)
		return err
	}

	scheduler := report.NewScheduler(db, report.New(db, cfg), sink)
	ran, err := scheduler.RunDue(ctx, time.Now().UTC())
	if err != nil {
		color.Red("%d schedule(s) ran, last error: %v", ran, err)
		return err
	}
	color.Green("%d schedule(s) ran, exports in %s", ran, outDir)
	return nil
}
