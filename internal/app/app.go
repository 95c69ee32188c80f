package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/storefront-api/internal/config"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/internal/handler"
	"github.com/prperemyshlev/storefront-api/internal/mailer"
	"github.com/prperemyshlev/storefront-api/internal/repository"
	"github.com/prperemyshlev/storefront-api/internal/service"
	"github.com/prperemyshlev/storefront-api/internal/storage"
	"github.com/prperemyshlev/storefront-api/internal/utils"
	"github.com/prperemyshlev/storefront-api/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server

	authService  service.AuthService
	tokens       *service.TokenIssuer
	mailConsumer *mailer.Consumer
	closers      []func() error
}

// handlers groups everything setupRoutes mounts
type handlers struct {
	userAuth  *handler.AuthHandler
	adminAuth *handler.AuthHandler
	accounts  *handler.AccountHandler
	catalog   *handler.CatalogHandler
	feedback  *handler.FeedbackHandler
	health    *HealthChecker
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	a := &App{infra: infra, config: cfg}

	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.ResetTokenExpiry.Duration,
	)

	blacklistService := service.NewTokenBlacklistService(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())

	metrics, err := observability.NewAuthMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, err
	}

	notifier, err := a.newMailer(metrics)
	if err != nil {
		return nil, err
	}

	images, err := storage.NewImageStore(cfg.Storage.UploadDir, cfg.Storage.PublicPath, cfg.Storage.ThumbnailSize, cfg.Storage.MaxPixels)
	if err != nil {
		return nil, err
	}

	a.tokens = service.NewTokenIssuer(jwtManager, repos.Token, cfg.JWT.RefreshTokenExpiry.Duration)
	otps := service.NewOTPManager(repos.OTP, cfg.OTP.Expiry.Duration)

	a.authService = service.NewAuthService(
		repos.User,
		infra.Postgres(),
		a.tokens,
		otps,
		jwtManager,
		blacklistService,
		notifier,
		metrics,
		logger,
		service.AuthConfig{
			BCryptCost:     cfg.Security.BCryptCost,
			OTPResendGrace: cfg.OTP.ResendGrace.Duration,
		},
	)
	accountService := service.NewAccountService(repos.User, infra.Postgres(), a.tokens, logger, cfg.Security.BCryptCost)
	catalogService := service.NewCatalogService(
		repos.Category,
		repos.Product,
		infra.Postgres(),
		images,
		service.NewRedisProductCache(infra.Redis(), cfg.Cache.ProductTTL.Duration),
		logger,
	)
	feedbackService := service.NewFeedbackService(repos.Product, repos.Comment, repos.Review, logger, cfg.Moderation.AutoApprove)

	handler.RegisterValidation()

	h := handlers{
		userAuth:  handler.NewAuthHandler(a.authService, domain.RoleUser, logger),
		adminAuth: handler.NewAuthHandler(a.authService, domain.RoleAdmin, logger),
		accounts:  handler.NewAccountHandler(accountService, logger),
		catalog:   handler.NewCatalogHandler(catalogService, cfg.Storage.MaxUploadMB<<20, logger),
		feedback:  handler.NewFeedbackHandler(feedbackService, logger),
		health:    NewHealthChecker(infra),
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, h, a.authService, rateLimiter, infra.MetricsHandler(), logger)

	a.router = router
	a.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return a, nil
}

// newMailer picks the mail transport. With amqp the request path only publishes;
// the consumer started by Run delivers over SMTP.
func (a *App) newMailer(metrics *observability.AuthMetrics) (*mailer.Mailer, error) {
	cfg := a.config
	logger := a.infra.Logger()

	renderer, err := mailer.NewRenderer()
	if err != nil {
		return nil, err
	}

	smtp := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		User:     cfg.Mail.SMTPUser,
		Password: cfg.Mail.SMTPPassword,
		From:     cfg.Mail.From,
	})

	var sender mailer.Sender
	switch cfg.Mail.Transport {
	case "smtp":
		sender = smtp
	case "amqp":
		queue, err := mailer.NewQueueSender(a.infra.AMQP(), cfg.AMQP.MailQueue)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, queue.Close)
		a.mailConsumer = mailer.NewConsumer(a.infra.AMQP(), cfg.AMQP.MailQueue, smtp, cfg.Mail.RatePerSecond, metrics, logger)
		sender = queue
	default:
		sender = mailer.NewLogSender(logger)
	}

	logger.Info("Mail transport selected", zap.String("transport", cfg.Mail.Transport))

	return mailer.New(sender, renderer, cfg.Mail.ResetURL, metrics), nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	h handlers,
	authService service.AuthService,
	rateLimiter *service.RateLimiter,
	metricsHandler http.Handler,
	logger *zap.Logger,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", h.health.Handler)
	router.Static(cfg.Storage.PublicPath, cfg.Storage.UploadDir)

	limited := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.RouteIPKey,
		logger,
	)

	customer := handler.RequireAccount(authService, domain.RoleUser, false, logger)
	unverified := handler.RequireAccount(authService, domain.RoleUser, true, logger)
	admin := handler.RequireAccount(authService, domain.RoleAdmin, false, logger)

	api := router.Group("/api/v1")
	{
		api.GET("/categories", h.catalog.ListCategories)
		api.GET("/categories/:slug", h.catalog.GetCategory)
		api.GET("/products", h.catalog.ListProducts)
		api.GET("/products/:slug", h.catalog.GetProduct)
		api.GET("/products/:slug/comments", h.feedback.ListComments)
		api.GET("/products/:slug/reviews", h.feedback.ListReviews)

		userAuth := api.Group("/user/auth")
		{
			userAuth.POST("/signup", limited, h.userAuth.Signup)
			userAuth.POST("/verify-otp", limited, unverified, h.userAuth.VerifyOTP)
			userAuth.POST("/resend-otp", limited, unverified, h.userAuth.ResendOTP)
			userAuth.POST("/login", limited, h.userAuth.Login)
			userAuth.POST("/forgot-password", limited, h.userAuth.ForgotPassword)
			userAuth.POST("/reset-password", limited, h.userAuth.ResetPassword)
			userAuth.POST("/refresh-token", h.userAuth.RefreshToken)
			userAuth.POST("/logout", customer, h.userAuth.Logout)
			userAuth.PUT("/update-password", customer, h.userAuth.UpdatePassword)
			userAuth.PUT("/update-details", customer, h.userAuth.UpdateDetails)
			userAuth.GET("/me", customer, h.userAuth.Me)
		}

		user := api.Group("/user", customer)
		{
			user.POST("/products/:slug/comments", h.feedback.AddComment)
			user.DELETE("/comments/:id", h.feedback.DeleteOwnComment)
			user.POST("/products/:slug/reviews", h.feedback.AddReview)
			user.PUT("/reviews/:id", h.feedback.UpdateOwnReview)
			user.DELETE("/reviews/:id", h.feedback.DeleteOwnReview)
		}

		adminAuth := api.Group("/admin/auth")
		{
			adminAuth.POST("/login", limited, h.adminAuth.Login)
			adminAuth.POST("/forgot-password", limited, h.adminAuth.ForgotPassword)
			adminAuth.POST("/reset-password", limited, h.adminAuth.ResetPassword)
			adminAuth.POST("/refresh-token", h.adminAuth.RefreshToken)
			adminAuth.POST("/logout", admin, h.adminAuth.Logout)
			adminAuth.PUT("/update-password", admin, h.adminAuth.UpdatePassword)
			adminAuth.PUT("/update-details", admin, h.adminAuth.UpdateDetails)
			adminAuth.GET("/me", admin, h.adminAuth.Me)
		}

		manage := api.Group("/admin", admin)
		{
			manage.GET("/users", h.accounts.List)
			manage.POST("/users", h.accounts.Create)
			manage.PATCH("/users/:id/status", h.accounts.SetStatus)

			manage.POST("/categories", h.catalog.CreateCategory)
			manage.PUT("/categories/:id", h.catalog.UpdateCategory)
			manage.DELETE("/categories/:id", h.catalog.DeleteCategory)

			manage.POST("/products", h.catalog.CreateProduct)
			manage.PUT("/products/:id", h.catalog.UpdateProduct)
			manage.DELETE("/products/:id", h.catalog.DeleteProduct)
			manage.POST("/products/:id/image", h.catalog.UploadProductImage)

			manage.GET("/comments/pending", h.feedback.ListPendingComments)
			manage.PATCH("/comments/:id/approve", h.feedback.ApproveComment)
			manage.DELETE("/comments/:id", h.feedback.DeleteComment)

			manage.GET("/reviews/pending", h.feedback.ListPendingReviews)
			manage.PATCH("/reviews/:id/approve", h.feedback.ApproveReview)
			manage.DELETE("/reviews/:id", h.feedback.DeleteReview)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	logger := a.infra.Logger()

	if a.config.AdminSeed.Enabled {
		seed := a.config.AdminSeed
		if err := a.authService.SeedAdmin(ctx, seed.Username, seed.Email, seed.Password); err != nil {
			return errors.Join(fmt.Errorf("failed to seed admin: %w", err), a.Shutdown())
		}
	}

	workersCtx, stopWorkers := context.WithCancel(ctx)
	var workers sync.WaitGroup

	workers.Add(1)
	go func() {
		defer workers.Done()
		a.tokens.RunSweeper(workersCtx, a.config.JWT.CleanupInterval.Duration, logger)
	}()

	if a.mailConsumer != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := a.mailConsumer.Run(workersCtx); err != nil {
				logger.Error("Mail consumer stopped", zap.Error(err))
			}
		}()
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		logger.Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		logger.Info("Application stopped by context")
	}

	stopWorkers()
	workers.Wait()

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	logger := a.infra.Logger()
	logger.Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		var closeErrs []error
		for _, closeFn := range a.closers {
			closeErrs = append(closeErrs, closeFn())
		}
		closeErrs = append(closeErrs, a.infra.Shutdown(ctx))
		errs <- errors.Join(closeErrs...)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		return err
	}

	logger.Info("Application exited successfully")
	return nil
}
