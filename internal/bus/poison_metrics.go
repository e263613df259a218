package bus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// poisonCounter counts messages forwarded to the poison topic, labelled by
// the topic they arrived on and the handler that gave up on them.
type poisonCounter struct {
	messages *prometheus.CounterVec
}

func newPoisonCounter(registerer prometheus.Registerer) (*poisonCounter, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choreo",
			Subsystem: "poison",
			Name:      "messages_total",
			Help:      "Total number of messages forwarded to the poison topic.",
		},
		[]string{"topic", "handler"},
	)

	if err := registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}

	return &poisonCounter{messages: vec}, nil
}

// record increments the counter for one poisoned message. Empty label values
// happen when the middleware runs outside a router context.
func (p *poisonCounter) record(topic, handler string) {
	if topic == "" {
		topic = "unknown"
	}
	if handler == "" {
		handler = "unknown"
	}
	p.messages.WithLabelValues(topic, handler).Inc()
}
