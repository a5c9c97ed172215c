package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"courtboard/internal/capture"
	"courtboard/internal/config"
	"courtboard/internal/ics"
	appLog "courtboard/internal/log"
	"courtboard/internal/store"
	"courtboard/internal/web"
)

type flagConfig struct {
	configPath   string
	listen       string
	snapshotPath string
	once         bool
}

func main() {
	appLog.Info("courtboard starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"courts", conf.Courts,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"feeds", len(conf.Feeds),
		"capture", conf.Capture.Enabled,
		"snapshot", flags.snapshotPath,
		"once", flags.once,
	)

	board, err := loadBoard(flags.snapshotPath, conf.Courts, conf.Location())
	if err != nil {
		appLog.Error("failed to load snapshot", err, "path", flags.snapshotPath)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	syncer := ics.NewSyncer(conf, nil, board)
	refresh := func() {
		runCtx, done := context.WithTimeout(ctx, 2*time.Minute)
		defer done()
		if err := syncer.Sync(runCtx); err != nil {
			appLog.Warn("feed refresh finished with errors", "error", err.Error())
		}
		if conf.Capture.Enabled {
			err := capture.BoardPNG(runCtx, capture.Options{
				URL:        conf.Capture.URL,
				OutputPath: conf.Capture.Output,
				Width:      conf.Capture.Width,
				Height:     conf.Capture.Height,
			})
			if err != nil {
				appLog.Error("board capture failed", err)
			}
		}
	}

	if flags.once {
		refresh()
		if err := saveBoard(flags.snapshotPath, board); err != nil {
			appLog.Error("failed to save snapshot", err, "path", flags.snapshotPath)
			os.Exit(1)
		}
		return
	}

	// Bind before the first refresh so the capture job can reach the board.
	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		appLog.Error("http listen failed", err, "listen", conf.Listen)
		os.Exit(1)
	}
	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, board).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLog.Info("http listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("http server failed", err)
			cancel()
		}
	}()

	sched := cron.New(cron.WithLocation(conf.Location()))
	if _, err := sched.AddFunc(conf.RefreshCron, refresh); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	// First refresh runs right away so the board is populated before the
	// first tick.
	go refresh()

	<-ctx.Done()
	appLog.Info("shutting down")

	<-sched.Stop().Done()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http shutdown failed", err)
	}
	if err := saveBoard(flags.snapshotPath, board); err != nil {
		appLog.Error("failed to save snapshot", err, "path", flags.snapshotPath)
	}
	appLog.Info("courtboard exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/courtboard/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.snapshotPath, "snapshot", "", "Board snapshot JSON to load at start and save on exit")
	flag.BoolVar(&cfg.once, "once", false, "Run one feed refresh (and capture) and exit")

	flag.Parse()

	return cfg
}

// loadBoard restores the snapshot at path, or returns an empty board when
// path is unset or does not exist yet.
func loadBoard(path string, courts int, loc *time.Location) (*store.Board, error) {
	if path == "" {
		return store.NewBoard(courts), nil
	}
	snap, err := store.LoadFile(path, loc)
	if errors.Is(err, fs.ErrNotExist) {
		return store.NewBoard(courts), nil
	}
	if err != nil {
		return nil, err
	}
	snap.Courts = courts
	return store.Restore(snap), nil
}

func saveBoard(path string, board *store.Board) error {
	if path == "" {
		return nil
	}
	return store.SaveFile(path, board.Snapshot())
}
