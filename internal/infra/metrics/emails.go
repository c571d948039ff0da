package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(emailsTotal)
}

var emailsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "emails_total",
		Help: "Outbound emails by kind and send success.",
	},
	[]string{"kind", "success"},
)

func IncEmail(kind string, success bool) {
	emailsTotal.WithLabelValues(norm(kind), strconv.FormatBool(success)).Inc()
}
