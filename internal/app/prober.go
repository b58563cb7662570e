package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-probe/internal/config"
	"github.com/samvad-hq/samvad-probe/internal/logger"
	"github.com/samvad-hq/samvad-probe/internal/probe"
	"github.com/samvad-hq/samvad-probe/internal/storage"
	"github.com/samvad-hq/samvad-probe/pkg/engine"
	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
	"github.com/samvad-hq/samvad-probe/pkg/publishers"
	"github.com/samvad-hq/samvad-probe/pkg/targets"
)

// Prober represents the probe runtime. It manages the probe loop, coordinating
// between the target registry, the probe service, storage and publishers.
type Prober struct {
	cfg           *config.Config
	targetReg     *targets.Registry
	fanout        *publishers.Fanout
	probeService  *probe.Service
	probeInterval time.Duration
	log           logger.Logger
	store         storage.Store
}

// NewProber builds a prober runtime from config files. metrics may be nil.
func NewProber(ctx context.Context, cfg *config.Config, log logger.Logger, metrics *httpclient.Metrics) (*Prober, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	targetReg, err := targets.LoadRegistry(cfg.TargetsFile)
	if err != nil {
		return nil, fmt.Errorf("load targets registry: %w", err)
	}
	targetList := targetReg.All()
	targetIDs := make([]string, 0, len(targetList))
	for _, t := range targetList {
		targetIDs = append(targetIDs, t.ID)
	}
	log.InfoObj("targets registry loaded", "targets_meta", map[string]any{
		"count": len(targetIDs),
		"ids":   targetIDs,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		OutcomeTTL:      cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
		MemorySize:      cfg.StorageMemorySize,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"outcome_ttl_seconds":      int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	engineCfg := cfg.Engine()
	if el, ok := log.(engine.Logger); ok {
		engineCfg.Logger = el
	}
	factory := func(obs httpclient.Observer) (probe.RequestClient, error) {
		return httpclient.New(obs, engineCfg, httpclient.WithLogger(log), httpclient.WithMetrics(metrics))
	}
	probeService, err := probe.NewService(factory, store, fanout, log, cfg.BodyInspectLimit)
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init probe service: %w", err)
	}

	return &Prober{
		cfg:           cfg,
		targetReg:     targetReg,
		fanout:        fanout,
		probeService:  probeService,
		probeInterval: cfg.ProbeInterval,
		log:           log,
		store:         store,
	}, nil
}

// buildFanout loads the publishers file. An empty path disables publishing.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(cfg.PublishersFile) == "" {
		log.WarnObj("no publishers file configured; outcomes are only stored", "publishers_file", "")
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run starts the probe loop until the context is cancelled.
func (p *Prober) Run(ctx context.Context) error {
	if p == nil || p.probeService == nil {
		return fmt.Errorf("prober is not initialized")
	}
	defer p.close()
	list := p.targetReg.All()

	p.log.InfoObj("probe loop starting", "prober_state", map[string]any{
		"targets_count":    len(list),
		"publishers_count": p.fanout.Size(),
		"probe_interval":   p.probeInterval.String(),
	})

	if err := p.runOnce(ctx, list); err != nil {
		p.log.ErrorObj("initial probe pass failed", "error", err)
	}

	ticker := time.NewTicker(p.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("probe loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := p.runOnce(ctx, list); err != nil {
				p.log.ErrorObj("scheduled probe pass failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single probe pass and releases the runtime.
func (p *Prober) RunOnce(ctx context.Context) error {
	if p == nil || p.probeService == nil {
		return fmt.Errorf("prober is not initialized")
	}
	defer p.close()
	return p.runOnce(ctx, p.targetReg.All())
}

// runOnce performs a single probe pass across all targets.
func (p *Prober) runOnce(ctx context.Context, list []targets.Target) error {
	start := time.Now()
	p.log.InfoObj("probe pass started", "probe_meta", map[string]any{
		"targets_count": len(list),
		"started_at":    start.UTC(),
	})
	if err := p.probeService.Run(ctx, list); err != nil {
		return err
	}
	p.log.InfoObj("probe pass completed", "probe_meta", map[string]any{
		"targets_count": len(list),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

// close releases the client, publishers and storage, logging any errors encountered.
func (p *Prober) close() {
	if p == nil {
		return
	}
	var errs []error
	if err := p.probeService.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close request client: %w", err))
	}
	if err := p.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		p.log.ErrorObj("prober shutdown failed", "error", err)
	}
}
