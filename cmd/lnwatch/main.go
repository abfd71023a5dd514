package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/config"
	"github.com/ArkLabsHQ/lnwatch/internal/core/application"
	"github.com/ArkLabsHQ/lnwatch/internal/core/ports"
	"github.com/ArkLabsHQ/lnwatch/internal/infrastructure/db"
	"github.com/ArkLabsHQ/lnwatch/internal/infrastructure/ledger/lnd"
	"github.com/ArkLabsHQ/lnwatch/internal/infrastructure/ledger/memory"
	"github.com/ArkLabsHQ/lnwatch/internal/infrastructure/metrics"
	redispub "github.com/ArkLabsHQ/lnwatch/internal/infrastructure/publisher/redis"
	scheduler "github.com/ArkLabsHQ/lnwatch/internal/infrastructure/scheduler/gocron"
	"github.com/ArkLabsHQ/lnwatch/internal/interface/web"
	"github.com/ArkLabsHQ/lnwatch/utils"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const connectRetryInterval = 5 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.SetLevel(log.Level(cfg.LogLevel))
	if log.GetLevel() < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("starting lnwatch...")

	dbConfig := []any{cfg.Datadir}
	switch cfg.DbType {
	case "badger":
		dbConfig = append(dbConfig, log.WithField("component", "badger"))
	case "postgres":
		dbConfig = []any{cfg.DbDsn}
	}
	dbSvc, err := db.NewService(db.ServiceConfig{
		DbType:   cfg.DbType,
		DbConfig: dbConfig,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to open db")
	}

	ledger, err := newLedger(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to init ledger client")
	}

	buildInfo := application.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	bus := application.NewEventBus()
	schedulerSvc := scheduler.NewScheduler()
	session, err := application.NewSession(
		buildInfo, ledger, schedulerSvc, bus, cfg.MonitorOptions(),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to init session")
	}

	journal := application.NewJournal(dbSvc)
	journal.Attach(bus)

	var exporter *metrics.Exporter
	if !cfg.DisableMetrics {
		exporter = metrics.NewExporter(bus.Failures)
		bus.SubscribeAll(exporter.Observe)
		session.SetCheckObserver(exporter.ObserveCheck)
	}

	var (
		publisher *redispub.Publisher
		history   web.EventHistory
	)
	if cfg.RedisUrl != "" {
		publisher, err = redispub.NewPublisher(cfg.RedisUrl)
		if err != nil {
			log.WithError(err).Fatal("failed to init event publisher")
		}
		bus.SubscribeAll(publisher.Publish)
		history = publisher
		log.Infof("publishing events to redis channel %s", publisher.Channel())
	}

	svcConfig := web.Config{
		HTTPPort:   cfg.HTTPPort,
		PayTimeout: cfg.PayTimeoutDuration(),
	}
	if err := svcConfig.Validate(); err != nil {
		log.WithError(err).Fatal("invalid http config")
	}
	svc := web.NewService(svcConfig, session, journal, exporter, history)

	ctx, cancel := context.WithCancel(context.Background())

	log.RegisterExitHandler(func() {
		cancel()
		svc.Stop()
		session.Disconnect()
		schedulerSvc.Stop()
		journal.Detach()
		dbSvc.Close()
		if publisher != nil {
			// nolint:errcheck
			publisher.Close()
		}
	})

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		log.Fatal(err)
	}

	if cfg.AutoConnect {
		go autoConnect(ctx, session, cfg, exporter)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
}

func newLedger(cfg *config.Config) (ports.LedgerClient, error) {
	if cfg.Ledger == config.LndLedger {
		return lnd.NewService(cfg.LndHost, cfg.LndTlsCertPath)
	}
	return memory.NewLedger(0), nil
}

// autoConnect keeps trying to connect until the ledger accepts, the config is
// rejected for good or ctx is cancelled.
func autoConnect(
	ctx context.Context, session *application.Session, cfg *config.Config,
	exporter *metrics.Exporter,
) {
	err := utils.Retry(ctx, connectRetryInterval, func(ctx context.Context) (bool, error) {
		err := session.Connect(ctx, cfg.ConnectionConfig())
		if err == nil || errors.Is(err, application.ErrAlreadyConnected) {
			return true, nil
		}
		if errors.Is(err, application.ErrConnectionFailed) {
			log.WithError(err).Warnf("ledger not reachable, retrying in %s", connectRetryInterval)
			return false, nil
		}
		return false, err
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("auto connect failed")
		}
		return
	}

	if exporter != nil {
		exporter.SetBalance(session.LastKnownBalance())
	}
}
