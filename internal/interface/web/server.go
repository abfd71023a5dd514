package web

import (
	"context"
	"net/http"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/application"
	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/ArkLabsHQ/lnwatch/internal/infrastructure/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const defaultPayTimeout = 60 * time.Second

// EventHistory is a store of recently published events kept outside the
// journal, newest first.
type EventHistory interface {
	Recent(ctx context.Context, limit int64) ([]domain.Event, error)
}

type service struct {
	cfg        Config
	session    *application.Session
	journal    *application.Journal
	exporter   *metrics.Exporter
	history    EventHistory
	stream     *eventStream
	streamSub  string
	upgrader   websocket.Upgrader
	router     *gin.Engine
	httpServer *http.Server
}

// NewService builds the HTTP interface of the session. journal, exporter and
// history are optional, their routes are not registered when nil.
func NewService(
	cfg Config,
	session *application.Session,
	journal *application.Journal,
	exporter *metrics.Exporter,
	history EventHistory,
) *service {
	if cfg.PayTimeout <= 0 {
		cfg.PayTimeout = defaultPayTimeout
	}

	svc := &service{
		cfg:      cfg,
		session:  session,
		journal:  journal,
		exporter: exporter,
		history:  history,
		stream:   newEventStream(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	svc.streamSub = session.Events().SubscribeAll(svc.stream.broadcast)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware())
	svc.registerRoutes(router)
	svc.router = router

	svc.httpServer = &http.Server{
		Addr:              cfg.httpAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return svc
}

func (s *service) Handler() http.Handler {
	return s.router
}

func (s *service) Start() error {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()
	log.Infof("started HTTP server at %s", s.cfg.httpAddress())
	return nil
}

func (s *service) Stop() {
	s.session.Events().Unsubscribe(s.streamSub)
	s.stream.close()

	// nolint:all
	s.httpServer.Shutdown(context.Background())
	log.Info("stopped HTTP server")
}

func (s *service) registerRoutes(router *gin.Engine) {
	v1 := router.Group("/v1")

	v1.POST("/connect", s.connect)
	v1.POST("/disconnect", s.disconnect)
	v1.GET("/status", s.status)
	v1.GET("/balance", s.balance)

	v1.POST("/invoice", s.createInvoice)
	v1.GET("/invoice/qr", s.invoiceQR)
	v1.POST("/pay", s.pay)

	v1.GET("/address", s.address)
	v1.GET("/address/spark", s.sparkAddress)

	v1.POST("/monitoring/start", s.startMonitoring)
	v1.POST("/monitoring/stop", s.stopMonitoring)
	v1.POST("/monitoring/check", s.checkNow)

	v1.POST("/sync", s.syncWallet)
	v1.GET("/payments", s.listPayments)
	v1.GET("/deposits", s.listDeposits)
	v1.POST("/deposits/claim", s.claimDeposit)

	v1.GET("/events/stream", s.eventStream)
	if s.journal != nil {
		v1.GET("/events", s.listEvents)
		v1.GET("/journal/payments", s.journalPayments)
	}
	if s.history != nil {
		v1.GET("/events/recent", s.recentEvents)
	}
	if s.exporter != nil {
		v1.GET("/metrics", gin.WrapH(s.exporter.Handler()))
	}
}
