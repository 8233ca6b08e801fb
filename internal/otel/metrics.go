package otel

import "go.opentelemetry.io/otel/metric"

// Metrics holds all gyeol metric instruments.
type Metrics struct {
	RequestDuration  metric.Float64Histogram
	ChatDuration     metric.Float64Histogram
	SkillErrors      metric.Int64Counter
	HeartbeatCycles  metric.Int64Counter
	SecurityBlocks   metric.Int64Counter
	ProactiveSent    metric.Int64Counter
	RateLimitRejects metric.Int64Counter
}

// NewMetrics creates all metric instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.RequestDuration, err = meter.Float64Histogram("gyeol.request.duration",
		metric.WithDescription("Gateway request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.ChatDuration, err = meter.Float64Histogram("gyeol.chat.duration",
		metric.WithDescription("Chat exchange duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.SkillErrors, err = meter.Int64Counter("gyeol.skill.errors",
		metric.WithDescription("Skill executions that reported failure"),
	)
	if err != nil {
		return nil, err
	}

	m.HeartbeatCycles, err = meter.Int64Counter("gyeol.heartbeat.cycles",
		metric.WithDescription("Completed heartbeat cycles"),
	)
	if err != nil {
		return nil, err
	}

	m.SecurityBlocks, err = meter.Int64Counter("gyeol.security.blocks",
		metric.WithDescription("Messages blocked by the content filter"),
	)
	if err != nil {
		return nil, err
	}

	m.ProactiveSent, err = meter.Int64Counter("gyeol.proactive.sent",
		metric.WithDescription("Proactive messages generated"),
	)
	if err != nil {
		return nil, err
	}

	m.RateLimitRejects, err = meter.Int64Counter("gyeol.ratelimit.rejects",
		metric.WithDescription("Requests rejected by rate limiter"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
