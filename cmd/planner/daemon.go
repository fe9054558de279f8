package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Mavwarf/planner/internal/config"
	"github.com/Mavwarf/planner/internal/dashboard"
	"github.com/Mavwarf/planner/internal/deliver"
	"github.com/Mavwarf/planner/internal/history"
	"github.com/Mavwarf/planner/internal/logger"
	"github.com/Mavwarf/planner/internal/mqtt"
	"github.com/Mavwarf/planner/internal/paths"
	"github.com/Mavwarf/planner/internal/scheduler"
	"github.com/Mavwarf/planner/internal/service"
	"github.com/Mavwarf/planner/internal/silent"
	"github.com/Mavwarf/planner/internal/store"
	"github.com/Mavwarf/planner/internal/telegram"
	"github.com/Mavwarf/planner/internal/webhook"
)

func daemonCmd(g globals) {
	cfg := loadConfig(g)
	log := logger.New(cfg.LogLevel, os.Stderr)
	if err := runDaemon(cfg, log); err != nil {
		if errors.Is(err, store.ErrNothingToMirror) {
			log.WithField("file", cfg.Path(paths.EventsFileName)).
				Error("nothing to mirror: add an event first or set daemon_mode to active")
		} else {
			log.WithError(err).Error("daemon failed")
		}
		os.Exit(1)
	}
}

// runDaemon runs the scheduler until SIGINT or SIGTERM.
func runDaemon(cfg config.Config, log *logrus.Logger) error {
	mode, err := store.ParseMode(cfg.DaemonMode)
	if err != nil {
		return err
	}

	pidPath := cfg.Path(paths.PIDFileName)
	if st, err := service.Check(pidPath); err == nil && st.Running && st.PID != os.Getpid() {
		return fmt.Errorf("%w (pid %d)", service.ErrAlreadyRunning, st.PID)
	}

	st, err := store.New(cfg.Path(paths.EventsFileName), cfg.AutoSave, mode, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := service.WritePID(pidPath, os.Getpid()); err != nil {
		log.WithError(err).Warn("could not write pid file")
	}
	defer service.RemovePID(pidPath, os.Getpid())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sched := scheduler.Config{
		Period:  cfg.Tick(),
		Metrics: scheduler.NewMetrics(reg),
	}
	api := dashboard.Options{
		Events: st,
		Silent: silent.At(cfg.Path(paths.SilentFileName)),
		Log:    log,
	}
	if cfg.History.Enabled {
		h, err := history.Open(cfg.Path(paths.HistoryFileName))
		if err != nil {
			log.WithError(err).Warn("history disabled")
		} else {
			defer h.Close()
			sched.Recorder = h
			api.History = h
			pruner, err := startPruner(h, cfg.History, log)
			if err != nil {
				return err
			}
			defer pruner.Stop()
		}
	}

	loop := scheduler.New(st, buildNotifier(cfg, log), sched, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		loop.Stop()
	}()

	if cfg.Listen != "" {
		srv := serveHTTP(cfg.Listen, reg, api, log)
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			srv.Shutdown(shutCtx)
		}()
	}

	log.WithFields(logrus.Fields{
		"mode":   mode,
		"events": st.Len(),
		"pid":    os.Getpid(),
	}).Info("planner daemon started")
	return loop.Run(ctx)
}

// buildNotifier assembles the Push sinks enabled in cfg. The log sink is
// always present so headless machines still record reminders. Toast and
// sound are muted while silent mode is on.
func buildNotifier(cfg config.Config, log logrus.FieldLogger) deliver.Notifier {
	mute := silent.At(cfg.Path(paths.SilentFileName)).Active
	sinks := deliver.Multi{deliver.Log(log)}
	if cfg.Toast {
		sinks = append(sinks, deliver.Quiet(deliver.NewToast(), mute))
	}
	if cfg.SoundEnabled() {
		s, err := deliver.NewSound(cfg.Sound.Name, cfg.Sound.Volume)
		if err != nil {
			log.WithError(err).Warn("sound disabled")
		} else {
			sinks = append(sinks, deliver.Quiet(s, mute))
		}
	}
	if cfg.MQTT.Broker != "" {
		sinks = append(sinks, deliver.NewMQTT(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      cfg.MQTT.QoS,
			Retain:   cfg.MQTT.Retain,
		}))
	}
	text := deliver.Template(cfg.MessageTemplate)
	for _, w := range cfg.Webhooks {
		format, err := webhook.ParseFormat(w.Format)
		if err != nil {
			log.WithError(err).Warn("webhook skipped")
			continue
		}
		sinks = append(sinks, deliver.NewWebhook(webhook.Target{URL: w.URL, Format: format, Headers: w.Headers}, text))
	}
	if cfg.Telegram.Token != "" {
		bot, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.WithError(err).Warn("telegram disabled")
		} else {
			sinks = append(sinks, deliver.NewTelegram(bot, text))
		}
	}
	return sinks
}

// startPruner schedules history retention on the configured cron spec.
func startPruner(h *history.Store, opts config.History, log logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New()
	if opts.RetentionDays <= 0 {
		return c, nil
	}
	prune := func() {
		n, err := h.Clean(opts.RetentionDays)
		if err != nil {
			log.WithError(err).Warn("history prune failed")
			return
		}
		if n > 0 {
			log.WithField("removed", n).Info("history pruned")
		}
	}
	spec := opts.PruneSchedule
	if spec == "" {
		spec = config.DefaultPruneSchedule
	}
	if _, err := c.AddFunc(spec, prune); err != nil {
		return nil, fmt.Errorf("history prune_schedule: %w", err)
	}
	prune()
	c.Start()
	return c, nil
}

// serveHTTP exposes reg on /metrics and the dashboard API under /api in
// the background.
func serveHTTP(addr string, reg *prometheus.Registry, api dashboard.Options, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	dashboard.Register(mux, api)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", addr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server")
		}
	}()
	return srv
}
