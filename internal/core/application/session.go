package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/ArkLabsHQ/lnwatch/internal/core/ports"
	"github.com/sirupsen/logrus"
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Session manages the connection to a ledger and turns its balance changes
// into events.
//
// Lock order: lifecycleMu, monitorMu, tickMu, mu.
type Session struct {
	BuildInfo BuildInfo

	ledger   ports.LedgerClient
	oracle   BalanceOracle
	detector *ChangeDetector
	poller   *PollScheduler
	bus      *EventBus
	opts     domain.MonitorOptions

	lifecycleMu sync.Mutex
	monitorMu   sync.Mutex
	tickMu      sync.Mutex

	mu               sync.RWMutex
	initialized      bool
	lastKnownBalance int64
	monitoringActive bool
	pollCtx          context.Context
	pollCancel       context.CancelFunc
	checkObserver    CheckObserver
}

// CheckObserver is notified after every detection pass with its duration and
// outcome.
type CheckObserver func(elapsed time.Duration, err error)

func NewSession(
	buildInfo BuildInfo,
	ledger ports.LedgerClient,
	schedulerSvc ports.SchedulerService,
	bus *EventBus,
	opts domain.MonitorOptions,
) (*Session, error) {
	if ledger == nil {
		return nil, fmt.Errorf("missing ledger client")
	}
	if bus == nil {
		bus = NewEventBus()
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = domain.DefaultCheckInterval
	}

	oracle := NewBalanceOracle(ledger)
	s := &Session{
		BuildInfo: buildInfo,
		ledger:    ledger,
		oracle:    oracle,
		detector:  NewChangeDetector(oracle, bus),
		bus:       bus,
		opts:      opts,
	}
	s.poller = NewPollScheduler(schedulerSvc, opts.CheckInterval, s.onScheduledTick)
	return s, nil
}

func (s *Session) Events() *EventBus {
	return s.bus
}

func (s *Session) MonitorOptions() domain.MonitorOptions {
	return s.opts
}

func (s *Session) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *Session) IsMonitoring() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitoringActive
}

func (s *Session) IsConnected() bool {
	return s.IsInitialized() && s.ledger.IsConnected()
}

// LastKnownBalance is the balance the next tick compares against. It is 0
// while the session is not initialized.
func (s *Session) LastKnownBalance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastKnownBalance
}

func (s *Session) setLastKnownBalance(balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnownBalance = balance
}

func (s *Session) Connect(ctx context.Context, config domain.ConnectionConfig) error {
	if err := s.connect(ctx, config); err != nil {
		if errors.Is(err, ErrConnectionFailed) {
			s.bus.Publish(domain.NewConnectionFailedEvent(errors.Unwrap(err).Error()))
		}
		return err
	}

	s.bus.Publish(domain.NewConnectedEvent())
	s.bus.Publish(domain.NewReadyEvent())

	if s.opts.AutoMonitorPayments {
		if err := s.StartMonitoring(); err != nil {
			logrus.WithError(err).Warn("failed to start payment monitoring")
		}
	}
	return nil
}

func (s *Session) connect(ctx context.Context, config domain.ConnectionConfig) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.IsInitialized() {
		return ErrAlreadyConnected
	}

	logrus.Infof("connecting to %s ledger...", config.Network)

	if err := s.ledger.Connect(ctx, config); err != nil {
		logrus.WithError(err).Warn("failed to connect to ledger")
		return &connectionError{err}
	}

	baseline, err := s.oracle.Read(ctx)
	if err != nil {
		logrus.WithError(err).Warn("failed to read baseline balance, disconnecting")
		s.ledger.Disconnect()
		return &connectionError{err}
	}

	pollCtx, pollCancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.initialized = true
	s.lastKnownBalance = baseline
	s.pollCtx = pollCtx
	s.pollCancel = pollCancel
	s.mu.Unlock()

	logrus.WithField("balance", baseline).Info("connected to ledger")
	return nil
}

// Disconnect stops monitoring, waits for an in-flight tick and closes the
// ledger connection. Calling it on a disconnected session is a no-op.
// It must not be called synchronously from an event listener.
func (s *Session) Disconnect() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	s.monitorMu.Lock()
	defer s.monitorMu.Unlock()

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return
	}
	s.monitoringActive = false
	cancel := s.pollCancel
	s.mu.Unlock()

	s.poller.Stop()
	if cancel != nil {
		cancel()
	}

	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.ledger.Disconnect()

	s.mu.Lock()
	s.initialized = false
	s.lastKnownBalance = 0
	s.pollCtx = nil
	s.pollCancel = nil
	s.mu.Unlock()

	logrus.Info("disconnected from ledger")
}

// StartMonitoring is a no-op when monitoring is already active.
func (s *Session) StartMonitoring() error {
	s.monitorMu.Lock()
	defer s.monitorMu.Unlock()

	s.mu.RLock()
	initialized, active := s.initialized, s.monitoringActive
	s.mu.RUnlock()

	if !initialized {
		return ErrNotInitialized
	}
	if active {
		return nil
	}
	if err := s.poller.Start(); err != nil {
		return fmt.Errorf("failed to start poll scheduler: %w", err)
	}

	s.mu.Lock()
	s.monitoringActive = true
	s.mu.Unlock()

	logrus.Infof("payment monitoring started, checking every %s", s.poller.Interval())
	return nil
}

// StopMonitoring is a no-op when monitoring is not active. A tick already in
// progress completes, no new tick starts afterwards.
func (s *Session) StopMonitoring() {
	s.monitorMu.Lock()
	defer s.monitorMu.Unlock()

	s.mu.Lock()
	if !s.monitoringActive {
		s.mu.Unlock()
		return
	}
	s.monitoringActive = false
	s.mu.Unlock()

	s.poller.Stop()

	logrus.Info("payment monitoring stopped")
}

// Tick is the host-driven poll entry point: it runs a detection pass only
// while monitoring is active and skips if the previous pass has not returned.
func (s *Session) Tick(ctx context.Context) error {
	if !s.tickMu.TryLock() {
		return ErrTickInFlight
	}
	defer s.tickMu.Unlock()

	s.mu.RLock()
	active := s.initialized && s.monitoringActive
	s.mu.RUnlock()
	if !active {
		return nil
	}

	return s.check(ctx)
}

// CheckNow runs a detection pass right away, regardless of the monitoring
// flag. Like Tick it returns ErrTickInFlight when a pass is already running,
// which also covers listeners calling it from within a pass.
func (s *Session) CheckNow(ctx context.Context) error {
	if !s.tickMu.TryLock() {
		return ErrTickInFlight
	}
	defer s.tickMu.Unlock()

	if !s.IsInitialized() {
		return ErrNotInitialized
	}
	return s.check(ctx)
}

// SetCheckObserver installs o, replacing any previous observer. A nil o
// removes it.
func (s *Session) SetCheckObserver(o CheckObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkObserver = o
}

func (s *Session) check(ctx context.Context) error {
	start := time.Now()
	err := s.detector.Check(ctx, s)

	s.mu.RLock()
	observe := s.checkObserver
	s.mu.RUnlock()
	if observe != nil {
		observe(time.Since(start), err)
	}
	return err
}

func (s *Session) onScheduledTick() {
	s.mu.RLock()
	ctx := s.pollCtx
	s.mu.RUnlock()
	if ctx == nil {
		return
	}

	if err := s.Tick(ctx); err != nil {
		if errors.Is(err, ErrTickInFlight) {
			logrus.Debug("skipping tick, previous check still running")
			return
		}
		logrus.WithError(err).Warn("balance check failed")
	}
}

// Balance is a read-only query: 0 when not connected or when the ledger
// cannot be read. It never updates the tracked balance.
func (s *Session) Balance(ctx context.Context) int64 {
	if !s.IsInitialized() {
		logrus.Debug("balance requested before connect")
		return 0
	}

	balance, err := s.ledger.Balance(ctx)
	if err != nil {
		logrus.WithError(err).Warn("failed to get balance")
		return 0
	}
	return balance
}

func (s *Session) CreateInvoice(
	ctx context.Context, amount int64, description string,
) (string, error) {
	if !s.IsInitialized() {
		return "", ErrNotInitialized
	}
	if amount <= 0 {
		return "", ErrInvalidAmount
	}

	invoice, err := s.ledger.CreateInvoice(ctx, amount, description)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create invoice: %v", ErrEmptyResult, err)
	}
	if invoice == "" {
		return "", fmt.Errorf("%w: empty invoice", ErrEmptyResult)
	}

	s.bus.Publish(domain.NewInvoiceCreatedEvent(invoice, amount))
	return invoice, nil
}

// Pay returns the ledger result also when the payment failed, together with
// an error wrapping ErrEmptyResult.
func (s *Session) Pay(
	ctx context.Context, invoice string, timeout time.Duration,
) (domain.PaymentResult, error) {
	if !s.IsInitialized() {
		return domain.PaymentResult{}, ErrNotInitialized
	}

	result, err := s.ledger.Pay(ctx, invoice, timeout)
	if err != nil {
		result = &domain.PaymentResult{Error: err.Error()}
	}
	if result == nil {
		result = &domain.PaymentResult{Error: "no payment result"}
	}
	if !result.Success {
		return *result, fmt.Errorf("%w: payment failed: %s", ErrEmptyResult, result.Error)
	}

	s.bus.Publish(domain.NewPaymentSentEvent(invoice, *result))
	return *result, nil
}

func (s *Session) Address(ctx context.Context) (string, error) {
	return s.address(ctx, s.ledger.Address)
}

func (s *Session) SparkAddress(ctx context.Context) (string, error) {
	return s.address(ctx, s.ledger.SparkAddress)
}

func (s *Session) address(
	ctx context.Context, get func(context.Context) (string, error),
) (string, error) {
	if !s.IsInitialized() {
		return "", ErrNotInitialized
	}

	addr, err := get(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to get address: %v", ErrEmptyResult, err)
	}
	if addr == "" {
		return "", fmt.Errorf("%w: address unavailable", ErrEmptyResult)
	}
	return addr, nil
}

func (s *Session) SyncWallet(ctx context.Context) error {
	if !s.IsInitialized() {
		return ErrNotInitialized
	}
	syncer, ok := s.ledger.(ports.WalletSyncer)
	if !ok {
		return ErrNotSupported
	}
	return syncer.Sync(ctx)
}

func (s *Session) ListPayments(
	ctx context.Context, offset, limit int,
) ([]domain.Payment, error) {
	if !s.IsInitialized() {
		return nil, ErrNotInitialized
	}
	lister, ok := s.ledger.(ports.PaymentLister)
	if !ok {
		return nil, ErrNotSupported
	}
	return lister.ListPayments(ctx, max(offset, 0), max(limit, 0))
}

func (s *Session) ListUnclaimedDeposits(ctx context.Context) ([]domain.Deposit, error) {
	if !s.IsInitialized() {
		return nil, ErrNotInitialized
	}
	claimer, ok := s.ledger.(ports.DepositClaimer)
	if !ok {
		return nil, ErrNotSupported
	}
	return claimer.ListUnclaimedDeposits(ctx)
}

func (s *Session) ClaimDeposit(
	ctx context.Context, txid string, vout uint32, maxFee int64,
) (string, error) {
	if !s.IsInitialized() {
		return "", ErrNotInitialized
	}
	claimer, ok := s.ledger.(ports.DepositClaimer)
	if !ok {
		return "", ErrNotSupported
	}
	return claimer.ClaimDeposit(ctx, txid, vout, maxFee)
}

type connectionError struct {
	reason error
}

func (e *connectionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConnectionFailed, e.reason)
}

func (e *connectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

func (e *connectionError) Unwrap() error {
	return e.reason
}
