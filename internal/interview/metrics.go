package interview

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	sessionsStarted prometheus.Counter
	questions       *prometheus.CounterVec
	callSeconds     *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &metrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interview_sessions_started_total",
			Help: "Interview sessions started.",
		}),
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_questions_total",
			Help: "Questions asked, by source and fallback reason.",
		}, []string{"source", "reason"}),
		callSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interview_external_call_seconds",
			Help:    "Duration of embedding, search and generation calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"call"}),
	}

	var err error
	if m.sessionsStarted, err = register(reg, m.sessionsStarted); err != nil {
		return nil, err
	}
	if m.questions, err = register(reg, m.questions); err != nil {
		return nil, err
	}
	if m.callSeconds, err = register(reg, m.callSeconds); err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses an already registered collector of the same shape.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) question(o Outcome) {
	reason := string(o.Reason)
	if reason == "" {
		reason = "none"
	}
	m.questions.WithLabelValues(string(o.Source), reason).Inc()
}
