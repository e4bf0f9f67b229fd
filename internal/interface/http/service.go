package httpservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/mmna-launch/crowdsale/internal/config"
	"github.com/mmna-launch/crowdsale/internal/core/application"
	interfaces "github.com/mmna-launch/crowdsale/internal/interface"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type service struct {
	config       Config
	appConfig    *config.Config
	server       *http.Server
	otelShutdown func(context.Context) error
}

func NewService(
	svcConfig Config, appConfig *config.Config,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	return &service{config: svcConfig, appConfig: appConfig}, nil
}

func (s *service) Start() error {
	if s.appConfig.OtelCollectorEndpoint != "" {
		otelShutdown, err := initOtelSDK(context.Background(), s.appConfig.OtelCollectorEndpoint)
		if err != nil {
			return err
		}
		s.otelShutdown = otelShutdown
	}

	appSvc, err := s.appConfig.AppService()
	if err != nil {
		return err
	}
	if err := appSvc.Start(); err != nil {
		return fmt.Errorf("failed to start app service: %s", err)
	}
	log.Info("started app service")

	s.server = &http.Server{
		Addr:              s.config.address(),
		Handler: newRouter(
			appSvc, clock.NewDefaultClock(), s.config.AdminUser, s.config.AdminPassword,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server stopped unexpectedly")
		}
	}()
	log.Infof("started listening at %s", s.config.address())

	return nil
}

func (s *service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if s.server != nil {
		g.Go(func() error {
			if err := s.server.Shutdown(ctx); err != nil {
				return fmt.Errorf("failed to shutdown http server: %s", err)
			}
			log.Info("stopped http server")
			return nil
		})
	}
	if s.otelShutdown != nil {
		g.Go(func() error {
			if err := s.otelShutdown(ctx); err != nil {
				return fmt.Errorf("failed to shutdown otel: %s", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error(err)
	}

	appSvc, _ := s.appConfig.AppService()
	if appSvc != nil {
		appSvc.Stop()
		log.Info("stopped app service")
	}
}

func newRouter(
	appSvc application.Service, c clock.Clock, adminUser, adminPassword string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	h := newHandler(appSvc, c)
	v1 := router.Group("/v1")
	v1.GET("/info", h.getInfo)
	v1.GET("/rounds/:round", h.getRound)
	v1.POST("/rounds/switch", h.switchRound)
	v1.GET("/balances/:address", h.getBalance)
	v1.POST("/eligibility", h.checkEligibility)
	v1.POST("/buy", h.buy)
	v1.POST("/transfer", h.transfer)
	v1.GET("/purchases", h.getPurchases)
	v1.POST("/quote/approve", h.approveQuote)
	v1.GET("/quote/balances/:address", h.getQuoteBalance)
	v1.GET("/events", h.streamEvents)

	admin := &adminHandler{appSvc.Admin()}
	adminGroup := v1.Group("/admin", gin.BasicAuth(gin.Accounts{adminUser: adminPassword}))
	adminGroup.POST("/init", admin.initialize)
	adminGroup.POST("/whitelist", admin.addToWhitelist)
	adminGroup.POST("/merkle-root", admin.publishRoot)
	adminGroup.POST("/collect", admin.collect)
	adminGroup.POST("/quote/mint", admin.mintQuote)
	adminGroup.GET("/stats", admin.getStats)

	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("handled request")
	}
}
