package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	goredis "github.com/redis/go-redis/v9"

	"github.com/CameronXie/tailor-ledger/internal/api/rest"
	"github.com/CameronXie/tailor-ledger/internal/api/rest/handlers"
	"github.com/CameronXie/tailor-ledger/internal/api/rest/middlewares"
	"github.com/CameronXie/tailor-ledger/internal/authn"
	"github.com/CameronXie/tailor-ledger/internal/cache/redis"
	"github.com/CameronXie/tailor-ledger/internal/capability"
	"github.com/CameronXie/tailor-ledger/internal/config"
	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/export"
	"github.com/CameronXie/tailor-ledger/internal/fonts"
	"github.com/CameronXie/tailor-ledger/internal/imagepipeline"
	"github.com/CameronXie/tailor-ledger/internal/infoprovider"
	"github.com/CameronXie/tailor-ledger/internal/keyfetcher"
	"github.com/CameronXie/tailor-ledger/internal/orders"
	"github.com/CameronXie/tailor-ledger/internal/receipt"
	"github.com/CameronXie/tailor-ledger/internal/reconciler"
	"github.com/CameronXie/tailor-ledger/internal/repository/postgres"
	"github.com/CameronXie/tailor-ledger/internal/repository/sqlite"
	"github.com/CameronXie/tailor-ledger/internal/storage"
	"github.com/CameronXie/tailor-ledger/internal/storage/filesystem"
	"github.com/CameronXie/tailor-ledger/internal/storage/s3"
)

const (
	ReadTimeout     = 15 * time.Second
	WriteTimeout    = 60 * time.Second
	IdleTimeout     = 120 * time.Second
	ShutdownTimeout = 15 * time.Second

	remoteImageTimeout = 20 * time.Second
)

type orderRepository interface {
	orders.Repository
	reconciler.References
}

type userRepository interface {
	authn.UserRepository
	infoprovider.RoleRepository
}

type repositories struct {
	orders orderRepository
	users  userRepository
	ping   handlers.Pinger
	close  func()
}

func main() {
	os.Exit(serve(os.Stdout, run))
}

// serve returns the process exit code after deferred cleanup, including the
// log file close, has run.
func serve(stdout io.Writer, start func(context.Context, *config.Config, *slog.Logger) error) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Print(err)
		return 1
	}

	logger, logCloser := config.NewLogger(cfg.Log, stdout)
	defer logCloser.Close()

	if err := start(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		return 1
	}

	return 0
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return err
	}
	loc := profile.Location()

	repos, err := newRepositories(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer repos.close()

	objects, media, err := newStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	checks := map[string]handlers.Pinger{"database": repos.ping}

	var urlCache imagepipeline.URLCache
	var cacheProbe capability.Probe = capability.Static(false)
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		c := redis.NewURLCache(client)
		urlCache = c
		checks["redis"] = c.Ping
		cacheProbe = func(ctx context.Context) bool { return c.Ping(ctx) == nil }
	}

	typefaces, err := fonts.Load(cfg.Receipt.FontRegular, cfg.Receipt.FontBold)
	if err != nil {
		return err
	}
	if !typefaces.Custom {
		logger.Warn("no receipt font configured, Chinese text will not render")
	}

	e, err := newEnforcer(cfg, repos.users, logger)
	if err != nil {
		return err
	}

	keys := keyfetcher.NewCached(keyfetcher.FromBase64(cfg.Auth.PrivateKey))
	publicKeys := keyfetcher.NewCached(keyfetcher.FromBase64(cfg.Auth.PublicKey))
	tokenConfig := handlers.TokenConfig{Issuer: cfg.Auth.Issuer, Audience: cfg.Auth.Audience, TTL: cfg.Auth.TokenTTL}
	accounts := authn.NewPasswordAuthenticator(repos.users, []string{domain.RoleOwner}, 0)

	store := orders.NewStore(repos.orders, objects, logger)
	resolver := imagepipeline.NewResolver(objects, urlCache, logger)
	composer := receipt.NewComposer(
		receipt.NewImageLoader(objects, &http.Client{Timeout: remoteImageTimeout}),
		typefaces,
		cfg.Receipt.LoadTimeout,
		loc,
	)
	rec := reconciler.New(repos.orders, objects, cfg.Reconcile.Grace, logger)

	registry := capability.NewRegistry(
		logger,
		capability.New(capability.ReceiptFont, capability.Static(typefaces.Custom), e),
		capability.New(capability.PDFExport, capability.Static(true), e),
		capability.New(capability.Thumbnails, capability.Static(media != nil), e),
		capability.New(capability.URLCache, cacheProbe, e),
	)

	routes := &rest.RouterConfig{
		SignInHandler: handlers.NewSignInHandler(accounts, keys, tokenConfig, logger),
		SignUpHandler: handlers.NewSignUpHandler(accounts, keys, tokenConfig, logger),
		HealthHandler: handlers.NewHealthHandler(checks, logger),

		Orders:       handlers.NewOrderHandler(store, resolver, loc, logger),
		Capabilities: handlers.NewCapabilityHandler(registry, logger),

		ReceiptHandler:   handlers.NewReceiptHandler(store, composer, logger),
		ImageHandler:     handlers.NewImageUploadHandler(imagepipeline.NewCompressor(), logger),
		DashboardHandler: handlers.NewDashboardHandler(store, loc, logger),
		ExportHandler: handlers.NewExportHandler(
			store,
			export.NewPDFRenderer(typefaces, profile.Title, loc),
			profile.Title,
			loc,
			logger,
		),
		ImportHandler:    handlers.NewImportHandler(store, logger),
		ProfileHandler:   handlers.NewProfileHandler(profile),
		ReconcileHandler: handlers.NewReconcileHandler(rec, logger),

		AuthorisationMiddleware: middlewares.NewJWTAuthorizationMiddleware(
			e,
			publicKeys,
			middlewares.JWTConfig{Issuer: cfg.Auth.Issuer, Audience: cfg.Auth.Audience},
			logger,
		),
	}
	if media != nil {
		routes.MediaHandler = handlers.NewMediaHandler(media, logger)
	}

	if !cfg.Reconcile.Disabled {
		scheduler, err := rec.Schedule(cfg.Reconcile.Schedule, loc)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%v", cfg.Port),
		Handler:      rest.NewMuxWithHandlers(routes),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "database", cfg.Database.Driver, "storage", cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func newRepositories(ctx context.Context, cfg config.DatabaseConfig) (*repositories, error) {
	if cfg.Driver == config.DatabasePostgres {
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}

		return &repositories{
			orders: postgres.NewOrderRepository(pool),
			users:  postgres.NewUserRepository(pool),
			ping:   pool.Ping,
			close:  pool.Close,
		}, nil
	}

	db, err := sqlite.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}

	return &repositories{
		orders: sqlite.NewOrderRepository(db),
		users:  sqlite.NewUserRepository(db),
		ping:   db.PingContext,
		close:  func() { _ = db.Close() },
	}, nil
}

// newStorage returns the object store and, for filesystem storage, the same
// store as the media source the /media route serves from.
func newStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Storage, handlers.MediaStore, error) {
	if cfg.Backend == config.StorageS3 {
		client, err := s3.NewClient(ctx, s3.Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}

		logger.Info("using s3 storage", "bucket", cfg.Bucket)
		return s3.New(client, cfg.Bucket), nil, nil
	}

	fs, err := filesystem.New(cfg.Root, cfg.PublicURL, []byte(cfg.MediaSecret))
	if err != nil {
		return nil, nil, err
	}

	logger.Info("using filesystem storage", "root", cfg.Root)
	return fs, fs, nil
}
