// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/AccelByte/extend-match-watcher/pkg/admin"
	"github.com/AccelByte/extend-match-watcher/pkg/config"
	"github.com/AccelByte/extend-match-watcher/pkg/constants"
	"github.com/AccelByte/extend-match-watcher/pkg/metrics"
	"github.com/AccelByte/extend-match-watcher/pkg/notify"
	"github.com/AccelByte/extend-match-watcher/pkg/pipeline"
	"github.com/AccelByte/extend-match-watcher/pkg/provider"
	"github.com/AccelByte/extend-match-watcher/pkg/providers/majsoul"
	"github.com/AccelByte/extend-match-watcher/pkg/providers/riichicity"
	"github.com/AccelByte/extend-match-watcher/pkg/providers/tenhou"
	"github.com/AccelByte/extend-match-watcher/pkg/recovery"
	"github.com/AccelByte/extend-match-watcher/pkg/store"
	"github.com/AccelByte/extend-match-watcher/pkg/telemetry"
	"github.com/AccelByte/extend-match-watcher/pkg/watcher"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*logrus.Entry, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logrus.NewEntry(logger).WithField("service", cfg.ServiceName), nil
}

func openRecovery(path string, log *logrus.Entry) (recovery.Store, error) {
	if path == "" {
		log.Warn("no recovery path, watchers will not survive a restart")
		return recovery.NewMemoryStore(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating recovery dir: %w", err)
	}
	return recovery.OpenBolt(path)
}

// seedStore loads the built-in fid defaults and then the optional YAML seed over them.
func seedStore(cfg *config.Config, log *logrus.Entry) (*store.Store, error) {
	s := store.New()
	defaults := func(name string, pc config.ProviderConfig, builtin []string) {
		fids := pc.DefaultFids
		if len(fids) == 0 {
			fids = builtin
		}
		s.SetDefaults(name, fids, pc.EnableFidFilter)
	}
	defaults(constants.ProviderMajsoul, cfg.Majsoul.ProviderConfig, nil)
	defaults(constants.ProviderTenhou, cfg.Tenhou.ProviderConfig, tenhou.DefaultFids)
	defaults(constants.ProviderRiichiCity, cfg.RiichiCity.ProviderConfig, riichicity.DefaultFids)
	s.SetFnames(constants.ProviderTenhou, tenhou.DefaultFnames)
	s.SetFnames(constants.ProviderRiichiCity, riichicity.DefaultFnames)

	if cfg.StorePath == "" {
		return s, nil
	}
	file, err := store.LoadFile(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	s.Apply(file)
	log.Infof("loaded %d channels from %s", len(file.Channels), cfg.StorePath)
	return s, nil
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(cfg.ServiceName, cfg.ZipkinEndpoint, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.WithError(err).Warn("tracer shutdown failed")
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(promRegistry)

	recoveryStore, err := openRecovery(cfg.RecoveryPath, log)
	if err != nil {
		return fmt.Errorf("opening recovery store: %w", err)
	}
	defer recoveryStore.Close()

	subscriptions, err := seedStore(cfg, log)
	if err != nil {
		return err
	}

	registry := watcher.NewRegistry(watcher.RegistryOptions{
		GracePeriod:     cfg.GracePeriod,
		RecycleInterval: cfg.RecycleInterval,
		Metrics:         m,
		Logger:          log,
	})
	bus := watcher.NewBus(log)
	tracker := notify.NewTracker(notify.NewLogSink(log.WithField("component", "notify")), registry, log)
	tracker.Register(bus)

	attach := pipeline.New(m)
	attach.OnAttach(pipeline.SubscriptionResolver(subscriptions))
	attach.OnBeforeWatch(pipeline.SwitchFilter(subscriptions))
	attach.OnBeforeWatch(pipeline.FidFilter(subscriptions))

	newProvider := func(adapter provider.Adapter, pc config.ProviderConfig) *provider.Provider {
		return provider.New(adapter, provider.Options{
			Registry:        registry,
			Pipeline:        attach,
			Bus:             bus,
			Recovery:        recoveryStore,
			Metrics:         m,
			Logger:          log,
			UpdateInterval:  pc.UpdateInterval,
			MatchExpireTime: pc.MatchExpireTime,
			RestoreMaxAge:   cfg.RestoreMaxAge,
		})
	}

	var (
		providers      []*provider.Provider
		majsoulAdapter *majsoul.Adapter
	)
	if cfg.Majsoul.Enabled {
		majsoulAdapter = majsoul.NewAdapter(majsoul.NewClient(cfg.Majsoul.APIBase), subscriptions, cfg.Majsoul, log)
		providers = append(providers, newProvider(majsoulAdapter, cfg.Majsoul.ProviderConfig))
	}
	if cfg.Tenhou.Enabled {
		providers = append(providers, newProvider(tenhou.NewAdapter(cfg.Tenhou, log), cfg.Tenhou.ProviderConfig))
	}
	if cfg.RiichiCity.Enabled {
		adapter := riichicity.NewAdapter(riichicity.NewClient(cfg.RiichiCity.APIBase), subscriptions, cfg.RiichiCity, log)
		providers = append(providers, newProvider(adapter, cfg.RiichiCity.ProviderConfig))
	}

	for _, p := range providers {
		p.Restore(ctx)
	}

	adminProviders := make([]admin.Provider, 0, len(providers))
	for _, p := range providers {
		adminProviders = append(adminProviders, p)
	}
	server := admin.NewServer(cfg.AdminAddr, admin.NewRouter(admin.Deps{
		Registry:  registry,
		Providers: adminProviders,
		Tracker:   tracker,
		Gatherer:  promRegistry,
		Logger:    log,
	}), log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		registry.Run(gctx)
		return nil
	})
	for _, p := range providers {
		p := p
		g.Go(func() error {
			p.Run(gctx)
			return nil
		})
	}
	if majsoulAdapter != nil {
		g.Go(func() error {
			majsoulAdapter.RunLivelists(gctx)
			return nil
		})
	}
	g.Go(func() error {
		return server.Run(gctx)
	})

	err = g.Wait()
	log.Info("shutting down")

	dumpCtx := context.WithoutCancel(ctx)
	for _, p := range providers {
		if _, dumpErr := p.Dump(dumpCtx); dumpErr != nil {
			log.WithError(dumpErr).Errorf("dump of %s failed", p.Name())
		}
	}
	registry.Stop()
	return err
}
