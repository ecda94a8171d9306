package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog/log"

    "github.com/local/chaptersplit/internal/ai"
    cfgpkg "github.com/local/chaptersplit/internal/config"
    "github.com/local/chaptersplit/internal/detect"
    "github.com/local/chaptersplit/internal/document"
    "github.com/local/chaptersplit/internal/export"
    logpkg "github.com/local/chaptersplit/internal/logger"
    "github.com/local/chaptersplit/internal/metrics"
    "github.com/local/chaptersplit/internal/orchestrator"
    "github.com/local/chaptersplit/internal/session"
    "github.com/local/chaptersplit/internal/storage"
    webpkg "github.com/local/chaptersplit/internal/web"
)

func main() {
    _ = godotenv.Load()
    cfg := cfgpkg.FromEnv()

    // Init logging
    _ = logpkg.Init(logpkg.Options{
        Level:        cfg.Logging.Level,
        Pretty:       cfg.Logging.Pretty,
        File:         cfg.Logging.File,
        MaxSizeMB:    cfg.Logging.MaxSizeMB,
        MaxBackups:   cfg.Logging.MaxBackups,
        MaxAgeDays:   cfg.Logging.MaxAgeDays,
        Compress:     cfg.Logging.Compress,
        SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
        AxiomAPIKey:  cfg.Axiom.APIKey,
        AxiomOrgID:   cfg.Axiom.OrgID,
        AxiomDataset: cfg.Axiom.Dataset,
        AxiomFlush:   cfg.Axiom.FlushInterval,
    })
    defer logpkg.Close()

    metrics.Init()

    // Session store: Redis when configured, in-memory otherwise.
    var store session.Store
    if cfg.Session.RedisURL != "" {
        rs, err := session.NewRedisStore(cfg.Session.RedisURL, cfg.Session.TTL)
        if err != nil {
            log.Fatal().Err(err).Msg("failed to init redis session store")
        }
        defer rs.Close()
        store = rs
    } else {
        store = session.NewMemoryStore()
        log.Info().Msg("using in-memory session store")
    }

    // S3 is optional: only needed for s3:// sources or export mirroring.
    var s3cli *storage.Client
    if os.Getenv("AWS_REGION") != "" || os.Getenv("AWS_DEFAULT_REGION") != "" {
        cli, err := storage.NewClient(context.Background())
        if err != nil {
            log.Warn().Err(err).Msg("S3 unavailable, s3:// sources disabled")
        } else {
            s3cli = cli
        }
    }

    failover := ai.NewFailover(cfg.Providers, cfg.Detect, nil)
    detector := detect.New(failover, cfg.Detect)
    exporter := export.New(cfg.Export, s3cli)
    fetcher := &document.Fetcher{HTTP: &http.Client{Timeout: 5 * time.Minute}, S3: s3cli}

    orch := orchestrator.New(orchestrator.Dependencies{
        Store:    store,
        Detector: detector,
        Exporter: exporter,
        Fetcher:  fetcher,
        Conf:     cfg,
    })
    defer orch.Close()

    mux := http.NewServeMux()
    orch.RegisterRoutes(mux)
    mux.Handle("/metrics", metrics.Handler())

    // Dashboard
    dash, err := webpkg.New(cfg.Web)
    if err != nil {
        log.Fatal().Err(err).Msg("failed to load dashboard templates")
    }
    dash.RegisterRoutes(mux)

    srv := &http.Server{Addr: ":" + cfg.Web.Port, Handler: mux}

    go func() {
        log.Info().Msgf("HTTP server listening on :%s", cfg.Web.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("http server error")
        }
    }()

    // Graceful shutdown
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    _ = srv.Shutdown(ctx)
    fmt.Println("shutdown complete")
}
