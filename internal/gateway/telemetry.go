package gateway

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/basket/gyeol/internal/bus"
	gyeolotel "github.com/basket/gyeol/internal/otel"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// relayMetrics counts activity events from the bus into the metric
// instruments. The caller checks that Bus and Metrics are set.
func (s *Server) relayMetrics(ctx context.Context) {
	sub := s.cfg.Bus.Subscribe("activity.")
	defer s.cfg.Bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Ch():
			if !ok {
				return
			}
			switch ev.Topic {
			case bus.TopicHeartbeatCycle:
				s.cfg.Metrics.HeartbeatCycles.Add(ctx, 1)
			case bus.TopicSecurityBlock:
				s.cfg.Metrics.SecurityBlocks.Add(ctx, 1)
			case bus.TopicProactiveSent:
				s.cfg.Metrics.ProactiveSent.Add(ctx, 1)
			case bus.TopicSkillResult:
				if res, ok := ev.Payload.(bus.SkillResultEvent); ok && !res.OK {
					s.cfg.Metrics.SkillErrors.Add(ctx, 1,
						metric.WithAttributes(attribute.String("skill", res.Skill)))
				}
			}
		}
	}
}

// telemetryMiddleware records a server span and the request-duration
// histogram for every request. Streaming endpoints are skipped so a
// long-lived connection does not show up as one giant request.
func (s *Server) telemetryMiddleware(next http.Handler) http.Handler {
	if s.cfg.Tracer == nil && s.cfg.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/activity/stream" || r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if s.cfg.Tracer != nil {
			spanCtx, span := gyeolotel.StartServerSpan(ctx, s.cfg.Tracer, r.Method+" "+r.URL.Path)
			defer func() {
				span.SetAttributes(attribute.Int("http.status_code", rec.status))
				if rec.status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(rec.status))
				}
				span.End()
			}()
			ctx = spanCtx
		}

		next.ServeHTTP(rec, r.WithContext(ctx))

		if s.cfg.Metrics != nil {
			s.cfg.Metrics.RequestDuration.Record(r.Context(), time.Since(start).Seconds(),
				metric.WithAttributes(
					attribute.String("http.route", r.URL.Path),
					attribute.String("http.method", r.Method),
					attribute.Int("http.status_code", rec.status),
				))
		}
	})
}
