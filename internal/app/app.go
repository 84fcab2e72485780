// Package app wires the registry core, discovery read path, replication,
// cluster tracking, and the HTTP/WebSocket transport into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mydotey/artemis/internal/config"
	"github.com/mydotey/artemis/internal/httpserver"
	"github.com/mydotey/artemis/internal/platform"
	"github.com/mydotey/artemis/internal/telemetry"
	"github.com/mydotey/artemis/internal/wsapi"
	"github.com/mydotey/artemis/pkg/auxiliary"
	"github.com/mydotey/artemis/pkg/cluster"
	"github.com/mydotey/artemis/pkg/discovery"
	"github.com/mydotey/artemis/pkg/model"
	"github.com/mydotey/artemis/pkg/registry"
	"github.com/mydotey/artemis/pkg/replication"
)

// ErrBind marks a failure to bind the listen address, so main can exit
// with the dedicated bind-failure code.
var ErrBind = errors.New("bind failure")

// Run is the main application entry point. It wires the core components,
// starts the background loops, and serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting artemis",
		"node_id", cfg.NodeID,
		"region", cfg.RegionID,
		"zone", cfg.ZoneID,
		"listen", cfg.ListenAddr(),
		"cluster_enabled", cfg.ClusterEnabled,
	)

	metricsReg := telemetry.NewMetricsRegistry()

	// Auxiliary persistence (optional). A failure here is fatal only to the
	// management features; the core registry continues with empty config.
	aux, auxCleanup := setupAuxiliary(ctx, cfg, logger)
	defer auxCleanup()

	// Core components.
	repo := registry.NewRepository()
	leases := registry.NewLeaseManager(time.Duration(cfg.LeaseTTLSeconds) * time.Second)
	cache := registry.NewCache()
	changes := registry.NewChangeManager()
	limiter := registry.NewRateLimiter(cfg.RateLimitRPS)

	// Cluster + replication (enabled only with peers configured).
	var (
		clusterMgr *cluster.Manager
		replMgr    *replication.Manager
		replicator registry.Replicator
	)
	if cfg.ClusterEnabled && len(cfg.ClusterPeerNodes) > 0 {
		clusterMgr = cluster.NewManager()
		replMgr = replication.NewManager(replication.DefaultConfig(cfg.NodeID), logger)
		replicator = replMgr
	}

	regService := registry.NewService(repo, leases, cache, changes, limiter, replicator)

	// Eviction loop.
	go leases.StartEviction(ctx, time.Duration(cfg.EvictionIntervalMs)*time.Millisecond, func(key model.InstanceKey) {
		logger.Info("lease expired, evicting instance", "service_id", key.ServiceID, "instance_id", key.InstanceID)
		telemetry.EvictionTotal.Inc()
		regService.Evict(key)
	})

	// Discovery read path.
	chain := discovery.NewChain(
		discovery.NewStatusFilter(model.StatusUp),
		discovery.NewManagementFilter(pullOutLookup(aux)),
		discovery.NewCanaryFilter(canaryLookup(aux)),
		discovery.NewGroupRoutingFilter(routeLookup(aux), discovery.NewEngine()),
	)
	discService := discovery.NewService(cache, repo, chain)

	// HTTP surface.
	srv := httpserver.NewServer(cfg.CORSAllowedOrigins, logger, metricsReg)
	srv.Router.Mount("/api/registry", httpserver.NewRegistryHandler(logger, regService).Routes())
	srv.Router.Mount("/api/discovery", httpserver.NewDiscoveryHandler(logger, discService, srv.Ready).Routes())
	srv.Router.Mount("/replicate", httpserver.NewReplicateHandler(logger, cfg.NodeID, regService, clusterMgr).Routes())

	mgmtHandler := httpserver.NewManagementHandler(logger, aux, clusterMgr)
	srv.Router.Mount("/api/management", mgmtHandler.Routes())
	srv.Router.Mount("/api/cluster", mgmtHandler.ClusterRoutes())

	sessions := wsapi.NewSessionManager()
	srv.Router.Mount("/ws", wsapi.NewHandler(logger, sessions, changes).Routes())

	// Gauges that track table and session counts.
	go runGaugeLoop(ctx, repo, sessions)

	// Peer replication and startup sync.
	if clusterMgr != nil {
		startCluster(ctx, cfg, logger, clusterMgr, replMgr, regService, srv)
	} else {
		srv.SetReady()
	}

	// Bind explicitly so a taken port is distinguishable from any other
	// fatal error at the exit-code level.
	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("%w: listening on %s: %v", ErrBind, cfg.ListenAddr(), err)
	}

	httpSrv := &http.Server{
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// setupAuxiliary connects the optional persistence and loads the management
// config, warming from the Redis snapshot first when one is configured.
// Returns nil managers when no database is configured.
func setupAuxiliary(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*auxiliary.Managers, func()) {
	if !cfg.HasDatabase() {
		logger.Info("auxiliary persistence disabled (no database URL); canary/route/zone management is unavailable")
		return nil, func() {}
	}

	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		logger.Warn("auxiliary database unreachable; starting with empty management config", "error", err)
		return nil, func() {}
	}
	cleanup := pool.Close

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		logger.Warn("auxiliary migrations failed; starting with empty management config", "error", err)
		pool.Close()
		return nil, func() {}
	}

	aux := auxiliary.NewManagers(auxiliary.NewStore(pool))

	var snapshot *auxiliary.SnapshotCache
	if cfg.HasRedis() {
		rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unreachable; auxiliary snapshot warm disabled", "error", err)
		} else {
			snapshot = auxiliary.NewSnapshotCache(rdb)
			if err := snapshot.Warm(ctx, aux); err != nil {
				logger.Warn("warming auxiliary config from redis", "error", err)
			}
			prev := cleanup
			cleanup = func() {
				_ = rdb.Close()
				prev()
			}
		}
	}

	if err := aux.ReloadAll(ctx); err != nil {
		logger.Warn("initial auxiliary load failed; continuing with what was warmed", "error", err)
	} else if snapshot != nil {
		if err := snapshot.Save(ctx, aux); err != nil {
			logger.Warn("saving auxiliary snapshot", "error", err)
		}
	}

	// Periodic reload keeps long-running nodes in step with management
	// writes made on peers.
	go func() {
		interval := time.Duration(cfg.AuxiliaryReloadSeconds) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := aux.ReloadAll(ctx); err != nil {
					logger.Warn("reloading auxiliary config", "error", err)
					continue
				}
				if snapshot != nil {
					if err := snapshot.Save(ctx, aux); err != nil {
						logger.Warn("saving auxiliary snapshot", "error", err)
					}
				}
			}
		}
	}()

	return aux, cleanup
}

// The filter constructors take interfaces; hand them nil interface values
// (not typed nil pointers) when no auxiliary persistence is configured so the
// filters pass through.

func pullOutLookup(aux *auxiliary.Managers) discovery.PullOutLookup {
	if aux == nil {
		return nil
	}
	return aux.PullOutLookup()
}

func canaryLookup(aux *auxiliary.Managers) discovery.CanaryLookup {
	if aux == nil {
		return nil
	}
	return aux.Canary
}

func routeLookup(aux *auxiliary.Managers) discovery.RouteRuleLookup {
	if aux == nil {
		return nil
	}
	return aux.Route
}

// startCluster registers the configured peers, starts their replication
// workers and the liveness check, and kicks off the startup full sync that
// gates readiness.
func startCluster(ctx context.Context, cfg *config.Config, logger *slog.Logger, clusterMgr *cluster.Manager, replMgr *replication.Manager, regService *registry.Service, srv *httpserver.Server) {
	replCfg := replication.DefaultConfig(cfg.NodeID)

	type peer struct {
		id     string
		client *replication.HTTPClient
	}
	var peers []peer
	for _, raw := range cfg.ClusterPeerNodes {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			logger.Warn("skipping malformed peer URL", "peer", raw)
			continue
		}
		id := u.Host
		if id == cfg.NodeID {
			continue
		}
		port := 80
		if p, err := strconv.Atoi(u.Port()); err == nil {
			port = p
		}
		clusterMgr.RegisterNode(id, u.Hostname(), port)
		client := replication.NewHTTPClient(u.Scheme+"://"+u.Host, replCfg, logger)
		replMgr.AddPeer(ctx, id, client)
		peers = append(peers, peer{id: id, client: client})
	}

	go clusterMgr.StartHealthCheck(ctx,
		time.Duration(cfg.ClusterHeartbeatSeconds)*time.Second,
		time.Duration(cfg.ClusterTimeoutSeconds)*time.Second)

	if len(peers) == 0 {
		srv.SetReady()
		return
	}

	// Startup bootstrap: the node is not ready until sync-full-data
	// completes against at least one peer. Registrations are accepted in
	// the meantime; discovery is refused.
	go func() {
		backoff := time.Second
		for {
			for _, p := range peers {
				resp, err := p.client.SyncFullData(ctx, cfg.NodeID)
				if err != nil {
					logger.Warn("full sync failed", "peer", p.id, "error", err)
					continue
				}
				seeded := 0
				for _, svc := range resp.Services {
					regService.ApplyReplicatedRegister(svc.Instances)
					seeded += len(svc.Instances)
				}
				clusterMgr.UpdateHeartbeat(p.id)
				logger.Info("full sync complete", "peer", p.id, "instances", seeded)
				srv.SetReady()
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
}

// runGaugeLoop keeps the instance and websocket-session gauges current.
func runGaugeLoop(ctx context.Context, repo *registry.Repository, sessions *wsapi.SessionManager) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			telemetry.ActiveInstances.Set(float64(len(repo.ListAll())))
			telemetry.WebSocketSessions.Set(float64(sessions.SessionCount()))
		}
	}
}
