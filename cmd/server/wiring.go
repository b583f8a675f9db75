package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"claimsreg/internal/admin"
	indexhandler "claimsreg/internal/catalogindex/handler"
	indexservice "claimsreg/internal/catalogindex/service"
	indexstore "claimsreg/internal/catalogindex/store"
	"claimsreg/internal/claimstore"
	storemetrics "claimsreg/internal/claimstore/metrics"
	"claimsreg/internal/claimstore/store/cached"
	attmemory "claimsreg/internal/claimstore/store/memory"
	attpostgres "claimsreg/internal/claimstore/store/postgres"
	attredis "claimsreg/internal/claimstore/store/redis"
	issuerhandler "claimsreg/internal/issuer/handler"
	issuerservice "claimsreg/internal/issuer/service"
	"claimsreg/internal/platform/config"
	"claimsreg/internal/platform/database"
	"claimsreg/internal/platform/health"
	"claimsreg/internal/platform/kafka/producer"
	platformmetrics "claimsreg/internal/platform/metrics"
	redisclient "claimsreg/internal/platform/redis"
	"claimsreg/internal/relyingparty"
	rightshandler "claimsreg/internal/rights/handler"
	rightsmetrics "claimsreg/internal/rights/metrics"
	rightsservice "claimsreg/internal/rights/service"
	rightsstore "claimsreg/internal/rights/store"
	httptransport "claimsreg/internal/transport/http"
	verifierhandler "claimsreg/internal/verifier/handler"
	verifiermetrics "claimsreg/internal/verifier/metrics"
	verifierservice "claimsreg/internal/verifier/service"
	"claimsreg/pkg/platform/audit"
	"claimsreg/pkg/platform/audit/publisher"
	auditmemory "claimsreg/pkg/platform/audit/store/memory"
	auditpostgres "claimsreg/pkg/platform/audit/store/postgres"
	"claimsreg/pkg/platform/audit/stream"
	request "claimsreg/pkg/platform/middleware/request"
	"claimsreg/pkg/platform/tracer"
	"claimsreg/pkg/platform/tx"
)

type application struct {
	router  http.Handler
	redis   *redisclient.Client
	closers []func() error
	log     *slog.Logger
}

// close releases resources in reverse acquisition order.
func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("failed to release resource", "error", err)
		}
	}
}

// build selects backends from configuration: Postgres when DATABASE_URL is
// set, Redis for attestations when REDIS_URL is set, Kafka for the audit
// stream when KAFKA_BROKERS is set, and in-memory stores otherwise.
func build(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *application, err error) {
	app := &application{log: log}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	reg := platformmetrics.NewRegistry(health.Version, cfg.Server.Environment)
	checks := health.New(cfg.Server.Environment)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	pool, err := database.New(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	var db *sql.DB
	if pool != nil {
		app.closers = append(app.closers, pool.Close)
		if err := pool.RegisterMetrics(reg); err != nil {
			return nil, fmt.Errorf("register database metrics: %w", err)
		}
		checks.RegisterCheck("database", pool.Health)
		db = pool.DB()
		log.Info("using postgres for registry state")
	}

	rc, err := redisclient.New(ctx, cfg.Redis, reg)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		app.redis = rc
		app.closers = append(app.closers, rc.Close)
		checks.RegisterCheck("redis", rc.Health)
	}

	emitter, err := buildAudit(cfg, log, db, checks, app)
	if err != nil {
		return nil, err
	}

	policy, err := claimstore.ParseIssuePolicy(cfg.Attestation.IssuePolicy)
	if err != nil {
		return nil, err
	}
	tr := tracer.NewOTel()

	rightsOpts := []rightsservice.Option{
		rightsservice.WithLogger(log),
		rightsservice.WithAuditPublisher(emitter),
		rightsservice.WithMetrics(rightsmetrics.New(reg)),
	}
	indexOpts := []indexservice.Option{
		indexservice.WithLogger(log),
		indexservice.WithAuditPublisher(emitter),
	}
	var (
		rStore rightsservice.Store   = rightsstore.NewInMemory()
		iStore indexservice.Store    = indexstore.NewInMemory()
		aStore claimstore.Backend    = attmemory.New()
		sm     *storemetrics.Metrics = storemetrics.New(reg)
	)
	if db != nil {
		rStore = rightsstore.NewPostgres(db)
		iStore = indexstore.NewPostgres(db)
		aStore = attpostgres.New(db)
		rightsOpts = append(rightsOpts, rightsservice.WithTx(tx.NewPostgres(db)))
		indexOpts = append(indexOpts, indexservice.WithTx(tx.NewPostgres(db)))
	}
	if rc != nil {
		aStore = attredis.New(rc.Client)
		log.Info("using redis for attestations")
	}
	if (db != nil || rc != nil) && cfg.Attestation.CacheSize > 0 {
		aStore = cached.New(aStore, cfg.Attestation.CacheSize, cfg.Attestation.CacheTTL, sm)
	}

	rights, err := rightsservice.New(rStore, cfg.Registry.Owner, rightsOpts...)
	if err != nil {
		return nil, err
	}
	index, err := indexservice.New(iStore, cfg.Registry.Owner, indexOpts...)
	if err != nil {
		return nil, err
	}
	provider, err := claimstore.NewProvider(aStore, rights,
		claimstore.WithLogger(log),
		claimstore.WithAuditPublisher(emitter),
		claimstore.WithMetrics(sm),
		claimstore.WithIssuePolicy(policy),
	)
	if err != nil {
		return nil, err
	}
	issuers, err := issuerservice.New(rights, index, provider,
		issuerservice.WithLogger(log),
		issuerservice.WithTracer(tr),
		issuerservice.WithSignerBinding(cfg.Attestation.SignerBinding),
	)
	if err != nil {
		return nil, err
	}
	verifier, err := verifierservice.New(rights, index, provider,
		verifierservice.WithLogger(log),
		verifierservice.WithAuditPublisher(emitter),
		verifierservice.WithMetrics(verifiermetrics.New(reg)),
		verifierservice.WithTracer(tr),
	)
	if err != nil {
		return nil, err
	}
	adminSvc, err := admin.NewService(emitter, rights, index)
	if err != nil {
		return nil, err
	}

	rightsH := rightshandler.New(rights, log)
	indexH := indexhandler.New(index, log)
	adminH := admin.New(adminSvc, log)
	app.router = httptransport.NewRouter(httptransport.Routes{
		Public: []httptransport.PublicRoutes{
			rightsH,
			indexH,
			adminH,
			verifierhandler.New(verifier, log),
			relyingparty.New(verifier, log),
			checks,
			platformmetrics.NewHandler(reg),
		},
		Issuer: []httptransport.PublicRoutes{issuerhandler.New(issuers, log)},
		Admin:  []httptransport.AdminRoutes{rightsH, indexH, adminH},
	}, httptransport.Config{
		AdminToken: cfg.Registry.AdminAPIToken,
		Latency:    request.NewMetrics(reg),
	}, log)
	return app, nil
}

// auditLog is the publisher surface the services and the admin reader share.
type auditLog interface {
	audit.Emitter
	admin.EventReader
}

func buildAudit(cfg config.Config, log *slog.Logger, db *sql.DB, checks *health.Handler, app *application) (auditLog, error) {
	var store audit.Store = auditmemory.NewInMemoryStore()
	if db != nil {
		store = auditpostgres.New(db)
	}
	if cfg.Kafka.Brokers != "" {
		pcfg := producer.DefaultConfig()
		pcfg.Brokers = cfg.Kafka.Brokers
		prod, err := producer.New(pcfg, log)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, prod.Close)
		checks.RegisterCheck("kafka", prod.Health)
		store = stream.New(store, prod, cfg.Kafka.AuditTopic, log)
		log.Info("streaming audit events", "topic", cfg.Kafka.AuditTopic)
	}

	opts := []publisher.PublisherOption{publisher.WithPublisherLogger(log)}
	if cfg.Audit.Buffer > 0 {
		opts = append(opts, publisher.WithAsyncBuffer(cfg.Audit.Buffer))
	}
	pub := publisher.NewPublisher(store, opts...)
	app.closers = append(app.closers, func() error {
		pub.Close()
		return nil
	})
	return pub, nil
}
