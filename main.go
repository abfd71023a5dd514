package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/application"
	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/ArkLabsHQ/lnwatch/internal/infrastructure/ledger/memory"
	log "github.com/sirupsen/logrus"
)

const (
	demoMnemonic  = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	payeeMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"
	demoApiKey    = "demo"
)

// Runs a session against an in-memory ledger, driving the balance checks by
// hand, and prints every event it emits.
func main() {
	ctx := context.Background()

	wallet := memory.NewLedger(1000)
	bus := application.NewEventBus()
	bus.SubscribeAll(func(event domain.Event) error {
		buf, err := json.Marshal(event)
		if err != nil {
			return err
		}
		log.Infof("event %s", buf)
		return nil
	})

	session, err := application.NewSession(
		application.BuildInfo{Version: "demo"}, wallet, nil, bus,
		domain.MonitorOptions{AutoMonitorPayments: true, CheckInterval: time.Second},
	)
	if err != nil {
		log.Fatal(err)
	}

	if err := session.Connect(ctx, domain.ConnectionConfig{
		Mnemonic: demoMnemonic,
		ApiKey:   demoApiKey,
		Network:  domain.NetworkRegtest,
	}); err != nil {
		log.Fatal(err)
	}
	defer session.Disconnect()

	invoice, err := session.CreateInvoice(ctx, 500, "demo invoice")
	if err != nil {
		log.Fatal(err)
	}
	if err := wallet.SettleInvoice(invoice); err != nil {
		log.Fatal(err)
	}
	tick(ctx, session)

	payee := memory.NewLedger(0)
	if err := payee.Connect(ctx, domain.ConnectionConfig{
		Mnemonic: payeeMnemonic,
		ApiKey:   demoApiKey,
		Network:  domain.NetworkRegtest,
	}); err != nil {
		log.Fatal(err)
	}
	payeeInvoice, err := payee.CreateInvoice(ctx, 300, "coffee")
	if err != nil {
		log.Fatal(err)
	}
	result, err := session.Pay(ctx, payeeInvoice, 10*time.Second)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("paid %d sats, fee %d", result.Amount, result.Fee)
	tick(ctx, session)

	addr, err := session.Address(ctx)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("deposit address %s", addr)
	log.Infof("final balance %d sats", session.Balance(ctx))
}

func tick(ctx context.Context, session *application.Session) {
	err := session.Tick(ctx)
	if errors.Is(err, application.ErrTickInFlight) {
		log.Debug("previous balance check still running, skipped")
		return
	}
	if err != nil {
		log.WithError(err).Warn("balance check failed")
	}
}
