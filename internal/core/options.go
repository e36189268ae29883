package core

import "budgetcore/pkg/domain"

// Option customises a Service or SyncCoordinator.
type Option func(*options)

type options struct {
	observability
	remote domain.RemoteStore
	auth   domain.AuthProvider
}

func buildOptions(opts []Option) options {
	o := options{observability: defaultObservability()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithAuditRecorder sets the audit sink for state-changing operations.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(o *options) {
		if a != nil {
			o.audit = a
		}
	}
}

// WithClock overrides the time source used for ids and remote timestamps.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRemoteStore enables cloud sync against r.
func WithRemoteStore(r domain.RemoteStore) Option {
	return func(o *options) { o.remote = r }
}

// WithAuthProvider connects the backend authentication provider.
func WithAuthProvider(a domain.AuthProvider) Option {
	return func(o *options) { o.auth = a }
}
