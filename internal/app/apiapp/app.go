package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/datingapp/internal/config"
	s3infra "github.com/ivankudzin/datingapp/internal/infra/s3"
	"github.com/ivankudzin/datingapp/internal/jobs/cleanup"
	pgrepo "github.com/ivankudzin/datingapp/internal/repo/postgres"
	redrepo "github.com/ivankudzin/datingapp/internal/repo/redis"
	authsvc "github.com/ivankudzin/datingapp/internal/services/auth"
	likessvc "github.com/ivankudzin/datingapp/internal/services/likes"
	mediasvc "github.com/ivankudzin/datingapp/internal/services/media"
	messagessvc "github.com/ivankudzin/datingapp/internal/services/messages"
	ratesvc "github.com/ivankudzin/datingapp/internal/services/rate"
	userssvc "github.com/ivankudzin/datingapp/internal/services/users"
	"github.com/ivankudzin/datingapp/internal/transport/http/handlers"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler

	cleanupJob *cleanup.Job
	bgMu       sync.Mutex
	bgCancel   context.CancelFunc
	bgClosed   bool
	bgWG       sync.WaitGroup
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, cfg.HTTP.RequestTimeout)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Region:    cfg.S3.Region,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, photo urls fall back to the public base", zap.Error(err))
	} else {
		s3Client = c
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	activityRepo := redrepo.NewActivityRepo(redisClient)
	userRepo := pgrepo.NewUserRepo(pool)
	likeRepo := pgrepo.NewLikeRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)

	photoSigner := mediasvc.NewPhotoSigner(s3Client, mediasvc.Config{
		Bucket:        cfg.S3.Bucket,
		PublicBaseURL: cfg.S3.PublicBaseURL,
		URLTTL:        cfg.S3.PhotoURLTTL,
	})

	rateLimiter := ratesvc.NewLimiter(rateRepo).
		Limit(ratesvc.ActionLike,
			ratesvc.Rule{Limit: cfg.Likes.RatePerMinute, Window: time.Minute},
			ratesvc.Rule{Limit: cfg.Likes.RatePerHour, Window: time.Hour},
		).
		Limit(ratesvc.ActionMessage,
			ratesvc.Rule{Limit: cfg.Messages.RatePer10Seconds, Window: 10 * time.Second},
			ratesvc.Rule{Limit: cfg.Messages.RatePerMinute, Window: time.Minute},
		)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, userRepo, authsvc.Config{
		RefreshTTL: cfg.Auth.RefreshTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	userService := userssvc.NewService(userssvc.Dependencies{
		Users:    userRepo,
		Photos:   photoSigner,
		Throttle: activityRepo,
		Config: userssvc.Config{
			DefaultPageSize: cfg.Discovery.DefaultPageSize,
			MaxPageSize:     cfg.Discovery.MaxPageSize,
			ActivityWindow:  cfg.Activity.TouchWindow,
		},
	})
	likeService := likessvc.NewService(likeRepo, rateLimiter)
	messageService := messagessvc.NewService(messagessvc.Dependencies{
		Messages: messageRepo,
		Users:    userRepo,
		Photos:   photoSigner,
		Limiter:  rateLimiter,
		Config: messagessvc.Config{
			MaxContentLength: cfg.Messages.MaxContentLength,
			MaxPageSize:      cfg.Messages.MaxPageSize,
		},
	})

	healthChecks := []handlers.HealthCheck{
		{Name: "postgres", Ping: func(ctx context.Context) error {
			if pool == nil {
				return fmt.Errorf("postgres is not configured")
			}
			return pool.Ping(ctx)
		}},
		{Name: "redis", Ping: func(ctx context.Context) error {
			return redrepo.Ping(ctx, redisClient)
		}},
	}

	RegisterRoutes(r, Dependencies{
		AuthService:    authService,
		UserService:    userService,
		LikeService:    likeService,
		MessageService: messageService,
		HealthChecks:   healthChecks,
		Logger:         log,
		Config:         cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	app := &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}
	if cfg.Cleanup.Enabled && pool != nil {
		app.cleanupJob = cleanup.New(messageRepo, cfg.Cleanup.Interval, cfg.Cleanup.BatchSize, log.Named("cleanup"))
	}

	return app, nil
}

// Run serves HTTP and, when enabled, the message cleanup loop until
// Shutdown is called.
func (a *App) Run() error {
	a.startBackground()

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	a.stopBackground()

	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) startBackground() {
	if a.cleanupJob == nil {
		return
	}

	a.bgMu.Lock()
	defer a.bgMu.Unlock()
	if a.bgClosed || a.bgCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.bgCancel = cancel
	a.bgWG.Add(1)
	go func() {
		defer a.bgWG.Done()
		a.cleanupJob.Loop(ctx)
	}()
}

func (a *App) stopBackground() {
	a.bgMu.Lock()
	a.bgClosed = true
	if a.bgCancel != nil {
		a.bgCancel()
	}
	a.bgMu.Unlock()

	a.bgWG.Wait()
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
