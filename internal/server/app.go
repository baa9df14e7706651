// Package server assembles the announcement pipeline and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	gcsclient "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/analysis"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/api"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/clock/system"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/config"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/dedup"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/fetch"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/hash/sha256"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/id/uuid"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/job"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/logging"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/metrics"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/progress"
	progresssinks "github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/progress/sinks"
	memorypublisher "github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/publisher/memory"
	gcppublisher "github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/publisher/pubsub"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/queue"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/scheduler"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/search"
	gcsstorage "github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/storage/gcs"
	localstorage "github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/storage/local"
	memorystorage "github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/storage/memory"
	miniostorage "github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/storage/minio"
	pgstorage "github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/storage/postgres"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/telemetry"
	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/worker"
)

const serviceName = "konarae-pipeline"

// App holds the assembled pipeline and the handles needed to shut it
// down in order.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	apiServer *api.Server
	sched     *scheduler.Scheduler
	workers   []*worker.Worker
	tasks     *queue.Memory
	hub       *progress.Hub

	browser         *fetch.BrowserFetcher
	gcsClient       *gcsclient.Client
	pool            *pgxpool.Pool
	pubsubClient    *pubsub.Client
	pubsubPublisher *gcppublisher.Publisher
	tracer          *sdktrace.TracerProvider
}

// stores groups the persistence interfaces one backend provides.
type stores struct {
	jobs          catalog.JobStore
	announcements catalog.AnnouncementStore
	attachments   catalog.AttachmentStore
	groups        catalog.GroupStore
	chunks        catalog.ChunkStore
}

// Build wires every component from configuration. The returned App is
// ready for Run.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app := &App{cfg: cfg, logger: logger}

	app.tracer, err = telemetry.InitTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	metrics.Init()
	fetch.RegisterWAFDomains(cfg.WAFHosts)

	clk := system.New()
	idGen := uuid.New()
	hasher := sha256.New()

	blobs, err := app.setupBlobStore(ctx)
	if err != nil {
		return nil, err
	}

	st, err := app.setupStores(ctx, clk)
	if err != nil {
		return nil, err
	}

	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}

	emitter, err := app.setupProgress(ctx, publisher)
	if err != nil {
		return nil, err
	}

	fetcher := app.setupFetcher()
	downloader := fetch.NewDownloader(fetch.DownloadConfig{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.FetchTimeout(),
		MaxBytes:  cfg.SizeCeilingBytes(),
	})

	aiClient := analysis.NewClient(
		cfg.Analysis.BaseURL,
		cfg.Analysis.APIKey,
		time.Duration(cfg.Analysis.TimeoutSeconds)*time.Second,
	)
	if !aiClient.Enabled() {
		logger.Warn("analysis service not configured, attachments stay unparsed")
	}

	app.tasks = queue.NewMemory(cfg.Crawler.QueueDepth)

	orchestrator := analysis.NewOrchestrator(
		st.attachments, blobs, downloader, aiClient, app.tasks,
		logger.Named("analysis"),
	)

	searchIndex := search.NewIndex(st.chunks, aiClient, search.Config{
		ChunkSizeWords: cfg.Search.ChunkSizeWords,
		OverlapWords:   cfg.Search.OverlapWords,
		MatchThreshold: cfg.Search.MatchThreshold,
		MatchCount:     cfg.Search.MatchCount,
		SemanticWeight: cfg.Search.SemanticWeight,
	}, logger.Named("search"))

	grouper := dedup.NewEngine(st.announcements, st.groups, idGen, clk, dedup.Config{
		BatchSize:       cfg.Dedup.BatchSize,
		AmountTolerance: cfg.Dedup.AmountTolerance,
	}, logger.Named("dedup"))

	runner := job.NewRunner(job.Config{
		PoliteDelay: cfg.PoliteDelay(),
		ItemTimeout: cfg.ItemTimeout(),
		MaxItems:    cfg.Crawler.MaxItems,
		SizeCeiling: cfg.SizeCeilingBytes(),
	}, job.Deps{
		Fetcher:       fetcher,
		Downloader:    downloader,
		Jobs:          st.jobs,
		Announcements: st.announcements,
		Attachments:   st.attachments,
		Blobs:         blobs,
		Analyzer:      orchestrator,
		Extractor:     aiClient,
		Tasks:         app.tasks,
		Hasher:        hasher,
		Clock:         clk,
		Emitter:       emitter,
		Logger:        logger.Named("runner"),
	})

	app.sched = scheduler.New(scheduler.Config{
		Interval:      cfg.SchedulerInterval(),
		MaxConcurrent: cfg.Scheduler.MaxConcurrent,
	}, cfg.CatalogSources(), st.jobs, runner, grouper, idGen, clk, logger.Named("scheduler"))

	workers := cfg.Crawler.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		app.workers = append(app.workers, worker.New(
			app.tasks, searchIndex, orchestrator,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}

	app.apiServer = api.NewServer(
		app.sched, st.jobs, st.attachments, blobs, searchIndex, orchestrator,
		api.Config{
			AuthEnabled: cfg.Auth.Enabled,
			APIKey:      cfg.Auth.APIKey,
		}, logger.Named("api"),
	)

	return app, nil
}

// Run starts the scheduler, workers, and HTTP server, then blocks until
// the context ends or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.sched.Start(ctx)
	for _, w := range a.workers {
		go w.Run(ctx)
	}
	go a.reportQueueDepth(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close(shutdownCtx)
}

func (a *App) reportQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetQueueDepth(a.tasks.Len())
		}
	}
}

// Close releases infrastructure in reverse dependency order.
func (a *App) Close(ctx context.Context) error {
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.browser != nil {
		a.browser.Close()
	}
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) setupBlobStore(ctx context.Context) (catalog.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		blobs, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.logger.Info("using gcs blob store", zap.String("bucket", a.cfg.Storage.GCSBucket))
		return blobs, nil
	case "minio":
		blobs, err := miniostorage.New(ctx, miniostorage.Config{
			Endpoint:  a.cfg.Storage.MinioEndpoint,
			AccessKey: a.cfg.Storage.MinioAccess,
			SecretKey: a.cfg.Storage.MinioSecret,
			Secure:    a.cfg.Storage.MinioSecure,
			Bucket:    a.cfg.Storage.MinioBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("minio blob store init failed: %w", err)
		}
		a.logger.Info("using minio blob store",
			zap.String("endpoint", a.cfg.Storage.MinioEndpoint),
			zap.String("bucket", a.cfg.Storage.MinioBucket))
		return blobs, nil
	case "local":
		blobs, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("using local blob store", zap.String("dir", a.cfg.Storage.LocalDir))
		return blobs, nil
	default:
		a.logger.Info("using in-memory blob store")
		return memorystorage.NewBlobStore(), nil
	}
}

func (a *App) setupStores(ctx context.Context, clk catalog.Clock) (stores, error) {
	if a.cfg.DB.DSN == "" {
		a.logger.Warn("no database dsn configured, state is in-memory only")
		return stores{
			jobs:          memorystorage.NewJobStore(clk),
			announcements: memorystorage.NewAnnouncementStore(clk),
			attachments:   memorystorage.NewAttachmentStore(clk),
			groups:        memorystorage.NewGroupStore(clk),
			chunks:        memorystorage.NewChunkStore(),
		}, nil
	}

	pool, err := pgstorage.NewPool(ctx, pgstorage.PoolConfig{
		DSN:      a.cfg.DB.DSN,
		MaxConns: int32(a.cfg.DB.MaxOpenConns),
	})
	if err != nil {
		return stores{}, fmt.Errorf("postgres pool init failed: %w", err)
	}
	a.pool = pool
	if err := pgstorage.ApplySchema(ctx, pool); err != nil {
		return stores{}, fmt.Errorf("postgres schema apply failed: %w", err)
	}

	idGen := uuid.New()
	var st stores
	if st.jobs, err = pgstorage.NewJobStore(pool, clk); err != nil {
		return stores{}, fmt.Errorf("job store init failed: %w", err)
	}
	if st.announcements, err = pgstorage.NewAnnouncementStore(pool, idGen, clk); err != nil {
		return stores{}, fmt.Errorf("announcement store init failed: %w", err)
	}
	if st.attachments, err = pgstorage.NewAttachmentStore(pool, idGen, clk); err != nil {
		return stores{}, fmt.Errorf("attachment store init failed: %w", err)
	}
	if st.groups, err = pgstorage.NewGroupStore(pool, idGen, clk); err != nil {
		return stores{}, fmt.Errorf("group store init failed: %w", err)
	}
	if st.chunks, err = pgstorage.NewChunkStore(pool); err != nil {
		return stores{}, fmt.Errorf("chunk store init failed: %w", err)
	}
	a.logger.Info("using postgres stores")
	return st, nil
}

func (a *App) setupPublisher(ctx context.Context) (catalog.Publisher, error) {
	if !a.cfg.PubSub.Enabled || a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("pub/sub disabled, events stay in-process")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.pubsubPublisher = gcppublisher.New(client)
	a.logger.Info("pub/sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.Topic))
	return a.pubsubPublisher, nil
}

func (a *App) setupProgress(ctx context.Context, publisher catalog.Publisher) (progress.Emitter, error) {
	promSink, err := progresssinks.NewPrometheusSink(nil)
	if err != nil {
		return nil, fmt.Errorf("prometheus sink init failed: %w", err)
	}
	sinkList := []progress.Sink{
		progresssinks.NewLogSink(a.logger.Named("progress")),
		promSink,
	}
	if a.cfg.PubSub.Enabled && a.cfg.PubSub.Topic != "" {
		sinkList = append(sinkList, progresssinks.NewPublisherSink(
			publisher, a.cfg.PubSub.Topic, a.logger.Named("progress_pubsub"),
		))
	}
	a.hub = progress.NewHub(progress.Config{
		BaseContext: ctx,
		Logger:      a.logger.Named("progress_hub"),
	}, sinkList...)
	return a.hub, nil
}

func (a *App) setupFetcher() catalog.Fetcher {
	plain := fetch.NewPlain(fetch.PlainConfig{
		UserAgent: a.cfg.Crawler.UserAgent,
		Timeout:   a.cfg.FetchTimeout(),
	})
	var browser catalog.Fetcher
	if a.cfg.Browser.Enabled {
		b := fetch.NewBrowser(fetch.BrowserConfig{
			MaxParallel:       a.cfg.Browser.MaxParallel,
			UserAgent:         a.cfg.Crawler.UserAgent,
			NavigationTimeout: time.Duration(a.cfg.Browser.NavTimeoutSec) * time.Second,
		})
		a.browser = b
		browser = b
		a.logger.Info("headless browser enabled", zap.Int("max_parallel", a.cfg.Browser.MaxParallel))
	}
	return fetch.NewAdapter(plain, browser, a.logger.Named("fetch"))
}
