package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/execution"
	"github.com/dukex/flowforge/pkg/idgen"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"github.com/dukex/flowforge/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Lifecycle owns the draft and live flow collections and is the only sanctioned way to
// mutate them. Read-modify-write sequences are serialised by an internal mutex; writers in
// other processes are last-write-wins unless callers pass IfRevision.
type Lifecycle struct {
	persistence persistence.Persistence
	catalog     models.Catalog
	ids         *idgen.Clock
	executor    execution.Executor
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger

	mu sync.Mutex
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

func WithCatalog(catalog models.Catalog) Option {
	return func(l *Lifecycle) {
		l.catalog = catalog
	}
}

func WithIDs(ids *idgen.Clock) Option {
	return func(l *Lifecycle) {
		l.ids = ids
	}
}

func WithExecutor(executor execution.Executor) Option {
	return func(l *Lifecycle) {
		l.executor = executor
	}
}

// WithEventPublisher enables lifecycle events. Without it no events are emitted.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(l *Lifecycle) {
		l.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(l *Lifecycle) {
		l.tracer = tracer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Lifecycle) {
		l.logger = logger
	}
}

// NewLifecycle creates the lifecycle service over persistence. Defaults: the built-in
// catalog, a fresh id clock, the mock executor and no tracing.
func NewLifecycle(persistence persistence.Persistence, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		persistence: persistence,
		catalog:     models.DefaultCatalog(),
		ids:         idgen.NewClock(),
		executor:    execution.NewMockExecutor(),
		tracer:      otelhelper.NoopTracer(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.logger = l.logger.With("module", "lifecycle")

	return l
}

// Catalog returns the server and service enumeration cells are validated against.
func (l *Lifecycle) Catalog() models.Catalog {
	return l.catalog
}

// Init advances the id clock past every id already stored, so ids allocated by this process
// never collide with records written by an earlier one.
func (l *Lifecycle) Init(ctx context.Context) error {
	drafts, err := l.persistence.Drafts(ctx)
	if err != nil {
		return persistenceError("Init", 0, err)
	}

	for _, draft := range drafts {
		l.ids.Observe(draft.ID)
	}

	flows, err := l.persistence.LiveFlows(ctx)
	if err != nil {
		return persistenceError("Init", 0, err)
	}

	for _, flow := range flows {
		l.ids.Observe(flow.ID)

		for _, version := range flow.Versions {
			l.ids.Observe(version.ID)
		}
	}

	l.logger.InfoContext(ctx, "lifecycle store ready", "drafts", len(drafts), "live_flows", len(flows))

	return nil
}

// HealthCheck checks the health of the persistence layer.
func (l *Lifecycle) HealthCheck(ctx context.Context) (string, bool) {
	if l.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := l.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// begin opens a span for op. The returned func ends it, recording *errp when set.
//
// nolint:spancheck // the span is ended by the returned func
func (l *Lifecycle) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	attrs = append(attrs, attribute.String(otelhelper.OperationKey, op))
	ctx, span := otelhelper.StartSpan(ctx, l.tracer, "lifecycle."+op, attrs...)

	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			otelhelper.SetError(span, *errp)
		}

		span.End()
	}
}

// emit publishes event when a publisher is configured. Failures are logged; the state change
// that produced the event stands.
func (l *Lifecycle) emit(ctx context.Context, key string, event eventbus.Event) {
	if l.publisher == nil {
		return
	}

	if err := l.publisher.Publish(ctx, key, event); err != nil {
		l.logger.ErrorContext(ctx, "failed to publish lifecycle event", "event_type", event.GetType(), "key", key, "error", err)
	}
}

// loadDraft returns the stored draft or a NotFound FlowError.
func (l *Lifecycle) loadDraft(ctx context.Context, op string, id int64) (models.Draft, error) {
	draft, err := l.persistence.DraftByID(ctx, id)
	if err != nil {
		return models.Draft{}, persistenceError(op, id, err)
	}

	if draft == nil {
		return models.Draft{}, newFlowError(op, id, models.ErrDraftNotFound)
	}

	return *draft, nil
}

// loadLiveFlow returns the stored live flow or a NotFound FlowError.
func (l *Lifecycle) loadLiveFlow(ctx context.Context, op string, id int64) (models.LiveFlow, error) {
	flow, err := l.persistence.LiveFlowByID(ctx, id)
	if err != nil {
		return models.LiveFlow{}, persistenceError(op, id, err)
	}

	if flow == nil {
		return models.LiveFlow{}, newFlowError(op, id, models.ErrLiveFlowNotFound)
	}

	return *flow, nil
}

func (l *Lifecycle) saveDraft(ctx context.Context, op string, draft models.Draft) error {
	if err := l.persistence.SaveDraft(ctx, &draft); err != nil {
		return persistenceError(op, draft.ID, err)
	}

	return nil
}

func (l *Lifecycle) saveLiveFlow(ctx context.Context, op string, flow models.LiveFlow) error {
	if err := l.persistence.SaveLiveFlow(ctx, &flow); err != nil {
		return persistenceError(op, flow.ID, err)
	}

	return nil
}
