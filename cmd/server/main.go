package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"learnbytech/internal/config"
	apphttp "learnbytech/internal/http"
	"learnbytech/internal/repository"
	"learnbytech/internal/repository/memory"
	"learnbytech/internal/repository/sqlite"
	"learnbytech/internal/security"
	"learnbytech/internal/service"
	"learnbytech/internal/storage"
)

const (
	readHeaderTimeout = 5 * time.Second
	uploadReadTimeout = 2 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	courseRepo := sqlite.NewCourseRepository(db)
	sessionRepo := buildSessionRepository(cfg, db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := courseRepo.Init(ctx); err != nil {
		logger.Fatalf("init course repository: %v", err)
	}
	if err := sessionRepo.Init(ctx); err != nil {
		logger.Fatalf("init session repository: %v", err)
	}

	sessionTTL := time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute
	handles, err := security.NewHandleCodec(cfg.Auth.SessionSecret, sessionTTL)
	if err != nil {
		logger.Fatalf("session handles: %v", err)
	}
	hasher := security.NewHasher(cfg.Auth.BcryptCost)

	store, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	authService := service.NewAuthService(userRepo, sessionRepo, hasher, handles, logger)
	guard := service.NewGuard(sessionRepo, handles)
	userService := service.NewUserService(userRepo, sessionRepo, hasher, logger)
	courseService := service.NewCourseService(courseRepo, store, service.MaterialsConfig{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
	}, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		authService,
		guard,
		userService,
		courseService,
		apphttp.CookieOptions{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
			TTL:    sessionTTL,
		},
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		// uploads of course materials need more than the header budget
		ReadTimeout: uploadReadTimeout,
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		authService.RunPruner(ctx, time.Duration(cfg.Auth.PruneIntervalMinutes)*time.Minute)
		return nil
	})
	grp.Go(func() error {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	grp.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := grp.Wait(); err != nil {
		logger.Errorf("server stopped: %v", err)
		return
	}
	logger.Info("bye")
}

func buildSessionRepository(cfg config.Config, db *sql.DB) repository.SessionRepository {
	if cfg.Session.Backend == config.SessionBackendMemory {
		return memory.NewSessionRepository()
	}
	return sqlite.NewSessionRepository(db)
}

// buildStorage returns nil when no bucket is configured; course materials are
// then disabled.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured, course materials disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
