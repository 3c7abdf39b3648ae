package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"playerctld/internal/command"
	"playerctld/internal/config"
	"playerctld/internal/idle"
	"playerctld/internal/manager"
	"playerctld/internal/metrics"
)

// demoChangeInterval is how often the built-in demo source simulates an
// external change event (e.g. the player advancing a track), so the
// idle/notify path has something to exercise outside of tests.
const demoChangeInterval = 30 * time.Second

// VERSION is populated via build flags when packaging official
// binaries (see xtaci-kcptun's main.go for the same convention).
var VERSION = "SELFBUILD"

func main() {
	app := cli.NewApp()
	app.Name = "playerctld"
	app.Usage = "connection core for a media-player control daemon"
	app.Version = VERSION
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to a config file (toml/yaml/json, whatever Viper can read)",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("playerctld exited")
	}
}

// demoChangeSource simulates an external subsystem (the player, the
// mixer, the queue) raising change events on its own schedule. It is
// the reference collaborator's stand-in for whatever in a real daemon
// would call Manager.IdleAdd when something actually changes.
func demoChangeSource(m *manager.Manager) {
	ticker := time.NewTicker(demoChangeInterval)
	defer ticker.Stop()
	for range ticker.C {
		m.IdleAdd(idle.Player)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log_level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	collector := metrics.New()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.WithError(err).Error("metrics listener stopped")
			}
		}()
		log.WithField("addr", cfg.MetricsAddr).Info("metrics listener started")
	}

	listeners := make([]net.Listener, 0, len(cfg.Bind))
	for _, addr := range cfg.Bind {
		l, err := manager.Listen(addr)
		if err != nil {
			return fmt.Errorf("binding %q: %w", addr, err)
		}
		log.WithField("addr", addr).Info("listening")
		listeners = append(listeners, l)
	}

	tunables := manager.Tunables{
		Timeout:              cfg.ConnectionTimeout,
		MaxConnections:       cfg.MaxConnections,
		MaxCommandListSize:   cfg.MaxCommandListSize,
		MaxOutputBufferSize:  cfg.MaxOutputBufferSize,
		DefaultPermission:    0,
	}
	m := manager.New(listeners, tunables, command.NewBuiltin(), log, collector)

	go demoChangeSource(m)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutting down")
		m.Shutdown()
	}()

	log.Info("playerctld ready")
	if err := m.Run(); err != nil {
		if err == manager.ErrKill {
			log.Info("daemon killed by a command")
			return nil
		}
		return err
	}
	return nil
}
