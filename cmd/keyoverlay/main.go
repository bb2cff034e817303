// keyoverlay captures global keystrokes and mouse clicks and streams the
// resulting key combinations to local overlay pages over WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"keyoverlay/internal/app"
	"keyoverlay/internal/autostart"
	"keyoverlay/internal/config"
	"keyoverlay/internal/logging"
	"keyoverlay/internal/server"
)

var (
	version  = "0.1.0"
	showVer  = flag.Bool("version", false, "Show version")
	cfgDir   = flag.String("config", "", "Config directory (default: per-user config dir)")
	noTray   = flag.Bool("no-tray", false, "Run without the system tray icon")
	logLevel = flag.String("log-level", "", "Override the configured log level")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("keyoverlay version %s\n", version)
		return
	}

	// Console logging until the config says otherwise.
	logging.Init(logging.Options{Level: *logLevel})

	cfgMgr, err := config.NewManager(*cfgDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	if err := cfgMgr.Load(); err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
	}
	cfg := cfgMgr.Get()

	level := cfg.Log.Level
	if *logLevel != "" {
		level = *logLevel
	}
	if err := logging.Init(logging.Options{Level: level, Dir: cfg.Log.Dir}); err != nil {
		log.Warn().Err(err).Msg("File logging disabled")
	}
	defer logging.Close()

	log.Info().Str("version", version).Str("config", cfgMgr.Path()).Msg("keyoverlay starting")

	syncAutostart := func() {
		if err := autostart.Sync(cfgMgr.Get().General.StartOnLogin); err != nil {
			log.Warn().Str("component", "autostart").Err(err).Msg("Failed to update launch at login")
		}
	}
	syncAutostart()
	cfgMgr.RegisterChangeCallback(syncAutostart)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	notifiers := app.Notifiers{app.LogNotifier{}}
	var host *trayHost
	if cfg.General.Tray && !*noTray {
		host = newTrayHost(cfg.Server.HTTPAddr)
		notifiers = append(notifiers, host)
	}

	a := app.New(app.Options{
		Persist:      cfgMgr,
		Notifier:     notifiers,
		QueueSize:    cfg.Capture.QueueSize,
		IdleInterval: cfg.Capture.IdleInterval.Duration,
		IdleTimeout:  cfg.Capture.IdleTimeout.Duration,
	})
	a.LoadSettings(cfgMgr.LoadSettings())

	srv := server.New(a.Hub(), a)
	if err := srv.Start(cfg.Server.WSAddr, cfg.Server.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}

	go a.Run(ctx)
	if host != nil {
		host.bind(a, cfgMgr)
	}
	a.Startup(cfg.Capture.AutoStart)

	if host != nil {
		host.setRunning(a.Status().Capture == "running")
		go func() {
			select {
			case <-ctx.Done():
				host.tray.Stop()
			case <-host.tray.Done():
			}
		}()
		log.Info().Msg("keyoverlay running in the system tray")
		host.tray.Run()
		cancel()
	} else {
		log.Info().Msg("keyoverlay running. Press Ctrl+C to stop.")
		<-ctx.Done()
	}

	shutdown(a, srv)
}

func shutdown(a *app.App, srv *server.Server) {
	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.Shutdown(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Server shutdown incomplete")
	}
}
