package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"emotiva/internal/config"
	"emotiva/internal/database"
	"emotiva/internal/handlers"
	"emotiva/internal/logging"
	"emotiva/internal/realtime"
	"emotiva/internal/repository"
	"emotiva/internal/security"
	"emotiva/internal/service"
)

const (
	cleanupInterval = time.Hour
	hubBuffer       = 16
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	status := handlers.NewStartupStatus()

	db, err := database.OpenWithConfig(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	status.CompleteStep(handlers.StepDatabase)
	logger.Info("database connection established", slog.String("type", cfg.Database.Type))

	if err := db.RunMigrations(ctx, cfg.Database.MigrationsPath); err != nil {
		return err
	}
	status.CompleteStep(handlers.StepMigrations)

	mux, auth, limiter, err := buildServer(ctx, cfg, db, status, logger)
	if err != nil {
		return err
	}
	status.CompleteStep(handlers.StepServices)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlers.Chain(mux, handlers.RequestID, handlers.Logger(logger), handlers.Recovery(logger), handlers.CORS(cfg.CORS)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", server.Addr))
		status.MarkReady()
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := auth.Cleanup(gctx); err != nil {
					logger.Error("housekeeping failed", slog.Any("error", err))
				}
			}
		}
	})

	return g.Wait()
}

// buildServer wires repositories, services and handlers into a mux.
func buildServer(ctx context.Context, cfg *config.Config, db *database.DB, status *handlers.StartupStatus, logger *slog.Logger) (*http.ServeMux, *service.AuthService, *security.RateLimiter, error) {
	loc := cfg.App.Location()
	hub := realtime.NewHub(hubBuffer)

	mailer, err := service.NewEmailService(ctx, cfg.Email, cfg.App.BaseURL, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	checkinRepo := repository.NewCheckinRepository(db)
	childRepo := repository.NewChildRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	psychRepo := repository.NewPsychologistRepository(db)
	sharedRepo := repository.NewSharedReportRepository(db)

	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	csrf := security.NewCSRF(cfg.Auth.CSRFSecret)
	limiter := security.NewRateLimiter(cfg.Auth.LoginRatePerMinute, time.Minute)

	auth := service.NewAuthService(db, mailer, tokens, cfg.Auth.SessionDuration, logger)
	gateway := service.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.PremiumPrice)
	subscriptions := service.NewSubscriptionService(repository.NewSubscriberRepository(db), gateway, cfg.App.BaseURL, logger)
	children := service.NewChildService(db, hub, logger)
	checkins := service.NewCheckinService(children, checkinRepo, hub, loc)
	alerts := service.NewAlertService(checkinRepo, cfg.App.AlertLookbackDays, loc, logger)
	weekly := service.NewWeeklyService(childRepo, checkinRepo, loc)
	sharing := service.NewSharingService(db, children, weekly, subscriptions, logger)
	psychologists := service.NewPsychologistService(psychRepo, sharedRepo)
	schools := service.NewSchoolService(repository.NewSchoolRepository(db), repository.NewInvitationRepository(db), mailer, loc, logger)
	dashboard := service.NewDashboardService(service.DashboardDeps{
		Profiles:           repository.NewUserRepository(db),
		Children:           childRepo,
		Notifications:      notificationRepo,
		Alerts:             alerts,
		Schools:            schools,
		Psychologists:      psychologists,
		NotificationsLimit: cfg.App.NotificationsLimit,
		Logger:             logger,
	})

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": handlers.GoogleProvider(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret),
	}

	mux := http.NewServeMux()
	handlers.Register(mux, handlers.NewMiddleware(auth, csrf, limiter, logger), handlers.Handlers{
		Health:    handlers.NewHealthHandler(status, db),
		Auth:      handlers.NewAuthHandler(auth, subscriptions, csrf, oauthProviders, cfg.Auth.OAuthRedirectBase, logger),
		Dashboard: handlers.NewDashboardHandler(dashboard, children, hub, logger),
		Guardian: handlers.NewGuardianHandler(handlers.GuardianDeps{
			Children:      children,
			Checkins:      checkins,
			Alerts:        alerts,
			Weekly:        weekly,
			Sharing:       sharing,
			Subscriptions: subscriptions,
			Logger:        logger,
		}),
		Notifications: handlers.NewNotificationHandler(service.NewNotificationService(notificationRepo), logger),
		Psychologist:  handlers.NewPsychologistHandler(psychologists, sharing, loc, logger),
		School:        handlers.NewSchoolHandler(schools, loc, logger),
		Subscription:  handlers.NewSubscriptionHandler(subscriptions, logger),
	})

	return mux, auth, limiter, nil
}
