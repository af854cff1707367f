package server

import (
	"context"
	"net/http"
	"time"

	"github.com/fitretto/gymbill/internal/config"
	"github.com/fitretto/gymbill/internal/event"
	"github.com/fitretto/gymbill/internal/invoice"
	"github.com/fitretto/gymbill/internal/ledger"
	ledgerdomain "github.com/fitretto/gymbill/internal/ledger/domain"
	"github.com/fitretto/gymbill/internal/observability"
	obsmiddleware "github.com/fitretto/gymbill/internal/observability/logger"
	obsmetrics "github.com/fitretto/gymbill/internal/observability/metrics"
	obstracing "github.com/fitretto/gymbill/internal/observability/tracing"
	"github.com/fitretto/gymbill/internal/ratelimit"
	"github.com/fitretto/gymbill/internal/session"
	sessiondomain "github.com/fitretto/gymbill/internal/session/domain"
	"github.com/fitretto/gymbill/internal/stripeapi"
	"github.com/fitretto/gymbill/internal/subscription"
	subscriptiondomain "github.com/fitretto/gymbill/internal/subscription/domain"
	"github.com/fitretto/gymbill/internal/user"
	userdomain "github.com/fitretto/gymbill/internal/user/domain"
	"github.com/fitretto/gymbill/internal/webhook"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	user.Module,
	session.Module,
	ledger.Module,
	subscription.Module,
	invoice.Module,
	event.Module,
	stripeapi.Module,
	webhook.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, m *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, m *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(obsCfg, m)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	userSvc         userdomain.Service
	sessionSvc      sessiondomain.Service
	ledgerSvc       ledgerdomain.Service
	subscriptionSvc subscriptiondomain.Service
	stripe          *stripeapi.Client
	engineWebhook   *webhook.Engine
	limiter         *ratelimit.RequestLimiter
	metrics         *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	UserSvc         userdomain.Service
	SessionSvc      sessiondomain.Service
	LedgerSvc       ledgerdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	Stripe          *stripeapi.Client
	Webhook         *webhook.Engine
	Limiter         *ratelimit.RequestLimiter `optional:"true"`
	Metrics         *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		userSvc:         p.UserSvc,
		sessionSvc:      p.SessionSvc,
		ledgerSvc:       p.LedgerSvc,
		subscriptionSvc: p.SubscriptionSvc,
		stripe:          p.Stripe,
		engineWebhook:   p.Webhook,
		limiter:         p.Limiter,
		metrics:         p.Metrics,
	}

	s.registerAPIRoutes()
	s.registerWebhookRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	throttled := api.Group("", ratelimit.Middleware(s.limiter, s.metrics))
	{
		throttled.POST("/register", s.Register)
		throttled.POST("/login", s.Login)
	}

	api.POST("/logout", s.Logout)
	api.POST("/verify-session", s.VerifySession)
	api.POST("/get-checkout-session", s.GetCheckoutSession)
	api.GET("/ledger", s.ListLedger)

	authed := api.Group("", s.AuthRequired())
	{
		authed.POST("/checkout", ratelimit.Middleware(s.limiter, s.metrics), s.Checkout)
		authed.POST("/subscription", ratelimit.Middleware(s.limiter, s.metrics), s.SubscriptionCheckout)
		authed.POST("/cancel-subscription", s.CancelSubscription)
		authed.POST("/reactivate-subscription", s.ReactivateSubscription)
		authed.POST("/schedule-plan-change", s.SchedulePlanChange)
		authed.POST("/cancel-scheduled-change", s.CancelScheduledChange)
		authed.POST("/user-info", s.UserInfo)
		authed.POST("/user-purchase-history", s.UserPurchaseHistory)
		authed.POST("/user-subscriptions", s.UserSubscriptions)
	}
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhook", s.HandleWebhook)
}
