package login

import "github.com/prometheus/client_golang/prometheus"

var (
	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admindash",
			Name:      "login_attempts_total",
			Help:      "Login calls made against the panel API by strategy and result",
		}, []string{"strategy", "result"})

	rejectedForms = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "admindash",
			Name:      "login_rejected_forms_total",
			Help:      "Submissions blocked by field validation",
		})

	suppressedSubmissions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "admindash",
			Name:      "login_suppressed_submissions_total",
			Help:      "Submissions that joined a login already in flight",
		})

	tokenStoreErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "admindash",
			Name:      "login_token_store_errors_total",
			Help:      "Successful logins whose token could not be written to the session",
		})

	waitingSubmissions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "admindash",
			Name:      "login_waiting",
			Help:      "Submissions attached to a login call in flight",
		})

	pendingLogins = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "admindash",
			Name:      "login_pending",
			Help:      "Login calls currently in flight",
		})
)

func init() {
	prometheus.MustRegister(loginAttempts)
	prometheus.MustRegister(rejectedForms)
	prometheus.MustRegister(suppressedSubmissions)
	prometheus.MustRegister(tokenStoreErrors)
	prometheus.MustRegister(waitingSubmissions)
	prometheus.MustRegister(pendingLogins)
}
