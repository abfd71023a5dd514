package metrics

import (
	"net/http"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lnwatch"

// Exporter keeps the Prometheus collectors fed by the session event bus and
// by balance checks.
type Exporter struct {
	registry *prometheus.Registry

	balanceSats   prometheus.Gauge
	eventsTotal   *prometheus.CounterVec
	paymentsSats  *prometheus.CounterVec
	checksTotal   *prometheus.CounterVec
	checkDur      prometheus.Summary
	lastSuccessTS prometheus.Gauge
}

// NewExporter registers the collectors on a dedicated registry. listenerFailures,
// if not nil, is sampled on every scrape.
func NewExporter(listenerFailures func() uint64) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
	}

	e.balanceSats = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "balance_sats",
		Help:      "Last known ledger balance in satoshis",
	})
	e.eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Number of published events by type",
	}, []string{"type"})
	e.paymentsSats = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_sats_total",
		Help:      "Satoshis moved by observed payments by direction",
	}, []string{"direction"})
	e.checksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_checks_total",
		Help:      "Number of balance checks by status",
	}, []string{"status"})
	e.checkDur = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "balance_check_duration_seconds",
		Help:      "Time spent reading the ledger balance",
	})
	e.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful balance check",
	})

	e.registry.MustRegister(
		e.balanceSats, e.eventsTotal, e.paymentsSats,
		e.checksTotal, e.checkDur, e.lastSuccessTS,
	)

	if listenerFailures != nil {
		e.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_failures_total",
			Help:      "Number of event listener invocations that failed or panicked",
		}, func() float64 {
			return float64(listenerFailures())
		}))
	}

	return e
}

// Observe is an event bus listener.
func (e *Exporter) Observe(event domain.Event) error {
	e.eventsTotal.WithLabelValues(string(event.Type)).Inc()

	switch event.Type {
	case domain.EventBalanceChanged:
		if event.BalanceChanged != nil {
			e.balanceSats.Set(float64(event.BalanceChanged.NewBalance))
		}
	case domain.EventPaymentReceived:
		if event.PaymentReceived != nil {
			e.paymentsSats.WithLabelValues("in").Add(float64(event.PaymentReceived.Amount))
		}
	case domain.EventPaymentSent:
		if event.PaymentSent != nil {
			result := event.PaymentSent.Result
			e.paymentsSats.WithLabelValues("out").Add(float64(result.Amount + result.Fee))
		}
	}
	return nil
}

// SetBalance records a balance read outside of a balance change, such as the
// baseline taken at connect.
func (e *Exporter) SetBalance(balance int64) {
	e.balanceSats.Set(float64(balance))
}

// ObserveCheck records the outcome of one balance check.
func (e *Exporter) ObserveCheck(elapsed time.Duration, err error) {
	e.checkDur.Observe(elapsed.Seconds())
	if err != nil {
		e.checksTotal.WithLabelValues("error").Inc()
		return
	}
	e.checksTotal.WithLabelValues("ok").Inc()
	e.lastSuccessTS.Set(float64(time.Now().Unix()))
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
