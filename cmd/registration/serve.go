package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/yakoovad/scrapyard-registration/internal/api"
	"github.com/yakoovad/scrapyard-registration/internal/auth"
	"github.com/yakoovad/scrapyard-registration/internal/config"
	"github.com/yakoovad/scrapyard-registration/internal/db"
	"github.com/yakoovad/scrapyard-registration/internal/kv"
	"github.com/yakoovad/scrapyard-registration/internal/notify"
	"github.com/yakoovad/scrapyard-registration/internal/ratelimit"
	"github.com/yakoovad/scrapyard-registration/internal/repository"
	"github.com/yakoovad/scrapyard-registration/internal/service"
	"github.com/yakoovad/scrapyard-registration/pkg/logger"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registration HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, l, err := bootstrap()
		if err != nil {
			return err
		}
		defer l.Sync()

		cfg, err := config.Load(v)
		if err != nil {
			l.Error("invalid configuration", zap.Error(err))
			return err
		}

		return serve(logger.WithLogger(cmd.Context(), l), cfg, l)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply the schema on startup")
}

func serve(ctx context.Context, cfg *config.Config, l *zap.Logger) error {
	l.Info("starting application", zap.String("version", version))

	pool, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	l.Info("database connection established")

	if !skipMigrate {
		if err = db.Migrate(ctx, pool); err != nil {
			return err
		}
		l.Info("schema applied")
	}

	store, err := newStore(ctx, cfg, l)
	if err != nil {
		return err
	}

	mailer, err := notify.NewSMTPMailer(cfg.Mail)
	if err != nil {
		return err
	}

	links := auth.NewLinks(cfg.Server.BaseURL)

	notifier := notify.NewNopNotifier()
	if cfg.Discord.Enabled() {
		if notifier, err = notify.NewDiscordNotifier(cfg.Discord.WebhookID, cfg.Discord.WebhookToken, links.StaffDashboard()); err != nil {
			return err
		}
		l.Info("discord notifications enabled")
	}

	transactor := db.NewPgxTransactor(pool)

	teamRepo := repository.NewPgxTeamRepository(pool)
	personRepo := repository.NewPgxPersonRepository(pool)
	reviewRepo := repository.NewPgxReviewRepository(pool)
	staffRepo := repository.NewPgxStaffRepository(pool)

	emailLimiter := ratelimit.NewLimiter(store, "email", cfg.RateLimit.EmailMax, cfg.RateLimit.EmailWindow)

	registration := service.NewRegistrationService(transactor).
		WithTeamRepo(teamRepo).
		WithPersonRepo(personRepo).
		WithSigner(auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), links).
		WithGate(service.NewVerificationGate(personRepo, cfg.Registration.TeacherVerification)).
		WithLimiter(emailLimiter).
		WithMailer(mailer).
		WithNotifier(notifier)
	review := service.NewReviewService(transactor).WithTeamRepo(teamRepo).WithPersonRepo(personRepo).WithReviewRepo(reviewRepo)
	staffAuth := service.NewStaffAuthService(cfg.Staff).WithStaffRepo(staffRepo).WithStore(store).WithMailer(mailer).WithLimiter(emailLimiter)
	checkIn := service.NewCheckInService().WithTeamRepo(teamRepo).WithPersonRepo(personRepo)

	checker, err := api.NewHealthChecker(version, api.PostgresCheck(pool), api.StoreCheck(store))
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.NewHandler(l).
		WithRegistrationService(registration).
		WithReviewService(review).
		WithStaffAuthService(staffAuth).
		WithCheckInService(checkIn).
		WithHealthChecker(checker).
		WithSecureCookies(strings.HasPrefix(cfg.Server.BaseURL, "https://")).
		RegisterRoutes(e)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		l.Info("server starting", zap.String("addr", addr))
		errCh <- e.Start(addr)
	}()

	select {
	case err = <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "start server")
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return e.Shutdown(shutdownCtx)
}

// newStore uses Redis when configured and falls back to process memory for single-instance setups.
func newStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (kv.Store, error) {
	if cfg.Redis.URL == "" {
		l.Warn("redis.url not set, keeping rate limits and staff sessions in memory")
		return kv.NewMemory(), nil
	}

	client, err := kv.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	l.Info("redis connection established")
	return kv.NewRedisStore(client), nil
}

