package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"driftline.space/internal/config"
	"driftline.space/internal/logging"
	"driftline.space/internal/persistence/indexdb"
	persistlog "driftline.space/internal/persistence/log"
	"driftline.space/internal/persistence/snapshot"
	"driftline.space/internal/sim/activation"
	"driftline.space/internal/sim/catalogs"
	"driftline.space/internal/sim/scenario"
	"driftline.space/internal/sim/session"
	"driftline.space/internal/sim/tuning"
	"driftline.space/internal/sim/world"
	"driftline.space/internal/transport/observer"
)

func main() {
	var (
		configDir = flag.String("config", "./configs", "directory holding driftline.yaml")
		snapPath  = flag.String("snapshot", "", "path to snapshot to load (optional, overrides snapshot.restore)")
	)
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	log := logging.Component(logger, "server")

	cats, err := catalogs.Load(cfg.CatalogDir())
	if err != nil {
		log.Fatal().Err(err).Msg("load catalogs")
	}

	worldDir := cfg.WorldDir()
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", worldDir).Msg("create world dir")
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && cfg.Snapshot.Restore {
		snapshotToLoad = snapshot.Latest(cfg.SnapshotDir())
	}

	tune, tuneErr := tuning.Load(cfg.TuningPath())
	if tuneErr != nil {
		if !os.IsNotExist(tuneErr) {
			log.Fatal().Err(tuneErr).Msg("load tuning")
		}
		log.Warn().Str("path", cfg.TuningPath()).Msg("tuning not found; using defaults")
		tune = tuning.Defaults()
	}

	var idx *indexdb.SQLiteIndex
	if cfg.Index.Enabled {
		idx, err = indexdb.OpenSQLite(cfg.IndexPath())
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.IndexPath()).Msg("open index")
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cfg.CatalogDir(), cats, tune); err != nil {
			log.Warn().Err(err).Msg("index: upsert catalogs")
		}
	}

	wcfg := world.Config{
		ID:     cfg.WorldID,
		Seed:   cfg.Seed,
		Tuning: tune,
		Logger: logger,
	}
	w, err := loadWorld(wcfg, cfg, cats, snapshotToLoad, log)
	if err != nil {
		log.Fatal().Err(err).Msg("world")
	}

	audits := activation.MultiAudit{}
	if cfg.Audit.Enabled {
		auditLog := persistlog.NewAuditLogger(worldDir)
		defer auditLog.Close()
		audits = append(audits, auditLog)
	}
	if idx != nil {
		audits = append(audits, idx)
	}
	ctl := activation.NewController(activation.Config{
		World:     w,
		Logger:    logger,
		Audit:     audits,
		DevChecks: cfg.DevChecks,
	})

	dayLog := persistlog.NewDayLogger(worldDir)
	defer dayLog.Close()

	obsSrv := observer.NewServer(w, logger)
	scfg := session.Config{
		World:             w,
		Controller:        ctl,
		Logger:            logger,
		SnapshotDir:       cfg.SnapshotDir(),
		SnapshotEveryDays: cfg.Snapshot.EveryDays,
		DayLog:            dayLog,
		Publisher:         obsSrv,
	}
	if idx != nil {
		scfg.Index = idx
	}
	sess, err := session.New(scfg)
	if err != nil {
		log.Fatal().Err(err).Msg("session")
	}

	ctx, cancel := signalContext()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("session stopped")
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, cfg.WorldID, obsSrv, idx)
	})
	mux.HandleFunc("/admin/v1/travel", travelHandler(sess))
	if cfg.Observer.Enabled {
		mux.HandleFunc("/observer/v1/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/observer/v1/ws", obsSrv.WSHandler())
	} else {
		log.Info().Msg("observer endpoints disabled (observer.enabled=false)")
	}
	if envBool("DRIFTLINE_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	log.Info().Str("addr", cfg.Addr).Str("world", w.ID()).Int64("date", w.Date()).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("ListenAndServe")
		cancel()
	}
	<-done
}

// loadWorld resumes from path when set, otherwise builds the scenario.
func loadWorld(wcfg world.Config, cfg config.Config, cats *catalogs.Catalogs, path string, log zerolog.Logger) (*world.World, error) {
	if path == "" {
		sc, err := scenario.Load(cfg.ScenarioPath())
		if err != nil {
			return nil, err
		}
		w, err := scenario.Build(sc, wcfg, cats)
		if err != nil {
			return nil, fmt.Errorf("build scenario: %w", err)
		}
		log.Info().Str("scenario", cfg.ScenarioPath()).Int("sectors", len(w.Sectors())).Int("fleets", len(w.Fleets())).Msg("fresh world")
		return w, nil
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.WorldID != "" && snap.Header.WorldID != cfg.WorldID {
		return nil, fmt.Errorf("snapshot world id mismatch: config=%s snap=%s", cfg.WorldID, snap.Header.WorldID)
	}
	if snap.CatalogDigest != "" && snap.CatalogDigest != cats.Spacecraft.Digest {
		log.Warn().Str("snapshot", snap.CatalogDigest).Str("catalog", cats.Spacecraft.Digest).Msg("spacecraft catalog changed since the snapshot")
	}
	wcfg.Seed = snap.Seed
	w, err := world.New(wcfg, cats)
	if err != nil {
		return nil, err
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, err
	}
	log.Info().Str("snapshot", path).Int64("date", w.Date()).Msg("resumed")
	return w, nil
}

type travelResponse struct {
	OK     bool                `json:"ok"`
	Travel *session.TravelInfo `json:"travel,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// travelHandler accepts POST /admin/v1/travel?fleet=<id>&dest=<sector> from
// loopback clients.
func travelHandler(sess *session.Session) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		fleetID := strings.TrimSpace(r.URL.Query().Get("fleet"))
		dest := strings.TrimSpace(r.URL.Query().Get("dest"))
		if fleetID == "" || dest == "" {
			http.Error(rw, "fleet and dest are required", http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		info, err := sess.RequestTravel(ctx, fleetID, dest)

		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			status := http.StatusUnprocessableEntity
			switch {
			case errors.Is(err, world.ErrUnknownFleet), errors.Is(err, world.ErrUnknownSector):
				status = http.StatusNotFound
			case errors.Is(err, session.ErrStopped), errors.Is(err, context.DeadlineExceeded):
				status = http.StatusServiceUnavailable
			}
			rw.WriteHeader(status)
			_ = json.NewEncoder(rw).Encode(travelResponse{Error: err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(travelResponse{OK: true, Travel: &info})
	}
}

func writeMetrics(rw http.ResponseWriter, worldID string, obs *observer.Server, idx *indexdb.SQLiteIndex) {
	sum := obs.Latest()
	fmt.Fprintf(rw, "# HELP driftline_world_date Current simulated day.\n")
	fmt.Fprintf(rw, "# TYPE driftline_world_date gauge\n")
	fmt.Fprintf(rw, "driftline_world_date{world=%q} %d\n", worldID, sum.Date)

	fmt.Fprintf(rw, "# HELP driftline_active_sector_objects Objects in the active sector.\n")
	fmt.Fprintf(rw, "# TYPE driftline_active_sector_objects gauge\n")
	for _, kv := range []struct {
		kind string
		n    int
	}{
		{"ships", sum.Ships},
		{"stations", sum.Stations},
		{"asteroids", sum.Asteroids},
		{"meteorites", sum.Meteorites},
		{"bombs", sum.Bombs},
		{"shells", sum.Shells},
	} {
		fmt.Fprintf(rw, "driftline_active_sector_objects{world=%q,sector=%q,kind=%q} %d\n", worldID, sum.SectorID, kv.kind, kv.n)
	}

	fmt.Fprintf(rw, "# HELP driftline_observer_subscribers Connected observers.\n")
	fmt.Fprintf(rw, "# TYPE driftline_observer_subscribers gauge\n")
	fmt.Fprintf(rw, "driftline_observer_subscribers{world=%q} %d\n", worldID, obs.Subscribers())
	fmt.Fprintf(rw, "# HELP driftline_observer_dropped_total Summaries dropped for slow observers.\n")
	fmt.Fprintf(rw, "# TYPE driftline_observer_dropped_total counter\n")
	fmt.Fprintf(rw, "driftline_observer_dropped_total{world=%q} %d\n", worldID, obs.Dropped())

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(rw, "# HELP driftline_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(rw, "# TYPE driftline_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "driftline_index_queue_depth{world=%q} %d\n", worldID, s.QueueDepth)
	fmt.Fprintf(rw, "# HELP driftline_index_dropped_total Index writes dropped under backpressure.\n")
	fmt.Fprintf(rw, "# TYPE driftline_index_dropped_total counter\n")
	fmt.Fprintf(rw, "driftline_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "day", s.DropDayTotal)
	fmt.Fprintf(rw, "driftline_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "audit", s.DropAuditTotal)
	fmt.Fprintf(rw, "driftline_index_dropped_total{world=%q,kind=%q} %d\n", worldID, "snapshot", s.DropSnapshotTotal)
	fmt.Fprintf(rw, "# HELP driftline_index_applied_total Index writes committed.\n")
	fmt.Fprintf(rw, "# TYPE driftline_index_applied_total counter\n")
	fmt.Fprintf(rw, "driftline_index_applied_total{world=%q} %d\n", worldID, s.AppliedTotal)
	fmt.Fprintf(rw, "driftline_index_failed_total{world=%q} %d\n", worldID, s.FailedTotal)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
