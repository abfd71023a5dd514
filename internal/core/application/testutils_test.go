package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
)

var errLedgerDown = errors.New("ledger unreachable")

type balanceStep struct {
	amount int64
	err    error
}

// fakeLedger replays scripted balance reads, repeating the last amount once
// the script is exhausted.
type fakeLedger struct {
	mu sync.Mutex

	connected   bool
	connectErr  error
	connects    int
	disconnects int

	steps        []balanceStep
	balanceCalls int
	lastBalance  int64
	// onBalance runs inside Balance, before the scripted value is returned.
	onBalance func()

	invoice    string
	invoiceErr error
	payResult  *domain.PaymentResult
	payErr     error
	address    string
	spark      string
}

func newFakeLedger(balances ...int64) *fakeLedger {
	l := &fakeLedger{
		invoice: "lnbcrt10u1fake",
		address: "bcrt1qfake",
	}
	for _, b := range balances {
		l.steps = append(l.steps, balanceStep{amount: b})
	}
	return l
}

func (l *fakeLedger) script(steps ...balanceStep) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, steps...)
}

func (l *fakeLedger) Connect(_ context.Context, _ domain.ConnectionConfig) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connects++
	if l.connectErr != nil {
		return l.connectErr
	}
	l.connected = true
	return nil
}

func (l *fakeLedger) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *fakeLedger) Balance(_ context.Context) (int64, error) {
	l.mu.Lock()
	hook := l.onBalance
	l.mu.Unlock()
	if hook != nil {
		hook()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.balanceCalls++
	if len(l.steps) == 0 {
		return l.lastBalance, nil
	}
	step := l.steps[0]
	l.steps = l.steps[1:]
	if step.err != nil {
		return 0, step.err
	}
	l.lastBalance = step.amount
	return step.amount, nil
}

func (l *fakeLedger) BalanceCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceCalls
}

func (l *fakeLedger) CreateInvoice(_ context.Context, _ int64, _ string) (string, error) {
	return l.invoice, l.invoiceErr
}

func (l *fakeLedger) Pay(
	_ context.Context, _ string, _ time.Duration,
) (*domain.PaymentResult, error) {
	return l.payResult, l.payErr
}

func (l *fakeLedger) Address(_ context.Context) (string, error) {
	return l.address, nil
}

func (l *fakeLedger) SparkAddress(_ context.Context) (string, error) {
	return l.spark, nil
}

func (l *fakeLedger) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnects++
	l.connected = false
}

// listingLedger adds the optional payment listing capability.
type listingLedger struct {
	*fakeLedger
	payments []domain.Payment
}

func (l *listingLedger) ListPayments(
	_ context.Context, offset, limit int,
) ([]domain.Payment, error) {
	if offset >= len(l.payments) {
		return nil, nil
	}
	end := len(l.payments)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return l.payments[offset:end], nil
}

// manualScheduler runs the scheduled job only when fire is called.
type manualScheduler struct {
	mu      sync.Mutex
	started bool
	job     func()
}

func (s *manualScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

func (s *manualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.job = nil
}

func (s *manualScheduler) ScheduleEvery(_ time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job = fn
	return nil
}

func (s *manualScheduler) Unschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job = nil
}

func (s *manualScheduler) IsScheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job != nil
}

func (s *manualScheduler) fire() bool {
	s.mu.Lock()
	job, started := s.job, s.started
	s.mu.Unlock()
	if job == nil || !started {
		return false
	}
	job()
	return true
}

// eventRecorder collects every event published on a bus.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func recordEvents(bus *EventBus) *eventRecorder {
	r := &eventRecorder{}
	bus.SubscribeAll(func(event domain.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, event)
		return nil
	})
	return r
}

func (r *eventRecorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *eventRecorder) types() []domain.EventType {
	events := r.all()
	types := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type memRepoManager struct {
	events   *memEventRepo
	payments *memPaymentRepo
}

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{
		events:   &memEventRepo{},
		payments: &memPaymentRepo{byId: map[string]domain.Payment{}},
	}
}

func (m *memRepoManager) Events() domain.EventRepository     { return m.events }
func (m *memRepoManager) Payments() domain.PaymentRepository { return m.payments }
func (m *memRepoManager) Close()                             {}

type memEventRepo struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (r *memEventRepo) Add(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *memEventRepo) GetLatest(_ context.Context, limit int) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, 0, len(r.events))
	for i := len(r.events) - 1; i >= 0; i-- {
		out = append(out, r.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memEventRepo) GetByType(
	_ context.Context, eventType domain.EventType,
) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, 0)
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEventRepo) Close() {}

type memPaymentRepo struct {
	mu   sync.Mutex
	byId map[string]domain.Payment
}

func (r *memPaymentRepo) GetAll(_ context.Context) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Payment, 0, len(r.byId))
	for _, p := range r.byId {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

func (r *memPaymentRepo) Get(_ context.Context, id string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byId[id]
	if !ok {
		return nil, errors.New("payment not found")
	}
	return &p, nil
}

func (r *memPaymentRepo) Add(_ context.Context, payment domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byId[payment.Id] = payment
	return nil
}

func (r *memPaymentRepo) Close() {}
