package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		renewalChargesTotal,
		renewalWarningsTotal,
		autoRenewDisabledTotal,
		pendingSweptTotal,
	)
}

var (
	renewalChargesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renewal_charges_total",
			Help: "Scheduled recurring charge attempts by outcome.",
		},
		[]string{"outcome"},
	)

	renewalWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "renewal_warnings_total",
			Help: "Pre-renewal warning emails sent.",
		},
	)

	autoRenewDisabledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auto_renew_disabled_total",
			Help: "Memberships whose auto-renew was disabled after hitting the attempt cap.",
		},
	)

	pendingSweptTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pending_swept_total",
			Help: "Orphaned pending resources cancelled by the sweeper, per kind.",
		},
		[]string{"kind"},
	)
)

func IncRenewalCharge(outcome string) {
	renewalChargesTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncRenewalWarning() { renewalWarningsTotal.Inc() }

func IncAutoRenewDisabled() { autoRenewDisabledTotal.Inc() }

func AddPendingSwept(kind string, n int) {
	if n > 0 {
		pendingSweptTotal.WithLabelValues(norm(kind)).Add(float64(n))
	}
}
