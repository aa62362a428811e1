package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"telegram-p2p-trading/internal/wizard"
)

func init() {
	register(
		wizardSessionsStarted,
		wizardSessionsFinished,
		wizardStepResults,
		wizardSessionsActive,
	)
}

var (
	wizardSessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_sessions_started_total",
			Help: "Wizard sessions entered, per wizard.",
		},
		[]string{"wizard"},
	)

	wizardSessionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_sessions_finished_total",
			Help: "Wizard sessions that ended, per wizard and outcome.",
		},
		[]string{"wizard", "outcome"},
	)

	wizardStepResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_step_results_total",
			Help: "Step handler results, per wizard, step and result kind.",
		},
		[]string{"wizard", "step", "result"},
	)

	wizardSessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wizard_sessions_active",
			Help: "Sessions started minus sessions finished, per wizard.",
		},
		[]string{"wizard"},
	)
)

// WizardObserver feeds engine lifecycle events into Prometheus.
type WizardObserver struct{}

var _ wizard.Observer = WizardObserver{}

func (WizardObserver) SessionStarted(wizardID string) {
	wizardSessionsStarted.WithLabelValues(wizardID).Inc()
	wizardSessionsActive.WithLabelValues(wizardID).Inc()
}

func (WizardObserver) StepResult(wizardID, step string, kind wizard.Kind) {
	wizardStepResults.WithLabelValues(wizardID, norm(step), kind.String()).Inc()
}

func (WizardObserver) SessionFinished(wizardID string, outcome wizard.Outcome) {
	wizardSessionsFinished.WithLabelValues(wizardID, string(outcome)).Inc()
	wizardSessionsActive.WithLabelValues(wizardID).Dec()
}
