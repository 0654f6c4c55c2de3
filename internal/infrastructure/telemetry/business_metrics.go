package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterRequired is returned by NewBusinessMetrics without a meter
var ErrMeterRequired = errors.New("business metrics: meter is required")

// Attribute keys of the business instruments
var (
	AttrOrderStatus    = attribute.Key("order_status")
	AttrSweepFailed    = attribute.Key("sweep_failed")
	AttrFreightBilled  = attribute.Key("freight_billed")
	AttrProposalAction = attribute.Key("proposal_action")
	AttrActorRole      = attribute.Key("actor_role")
	AttrEventType      = attribute.Key("event_type")
	AttrOutcome        = attribute.Key("outcome")
)

// defaultCollectInterval applies when StartPeriodicCollection gets no interval
const defaultCollectInterval = 5 * time.Minute

// NegotiationMetricsProvider reports negotiation state for the open negotiations gauge
type NegotiationMetricsProvider interface {
	CountOpenNegotiations(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics
type BusinessMetricsConfig struct {
	Meter               metric.Meter
	Logger              *zap.Logger
	NegotiationProvider NegotiationMetricsProvider
}

// BusinessMetrics counts negotiation lifecycle, deadline enforcement,
// transport allocation and event delivery outcomes.
type BusinessMetrics struct {
	logger   *zap.Logger
	provider NegotiationMetricsProvider

	ordersCreated    *Counter
	proposals        *Counter
	ordersClosed     *Counter
	ordersCancelled  *Counter
	deadlineWarnings *Counter
	transports       *Counter
	freightCents     *Counter
	eventDeliveries  *Counter
	sweepDuration    *Histogram
	openNegotiations *Gauge

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
}

// NewBusinessMetrics creates the instruments on cfg.Meter
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterRequired
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		logger:   logger,
		provider: cfg.NegotiationProvider,
		stop:     make(chan struct{}),
	}

	counters := map[string]struct {
		target       **Counter
		descr, unit string
	}{
		"agro_order_created_total":       {&bm.ordersCreated, "Negotiations opened", "{order}"},
		"agro_proposal_recorded_total":   {&bm.proposals, "Proposal records appended", "{proposal}"},
		"agro_order_closed_total":        {&bm.ordersClosed, "Negotiations accepted by the buyer", "{order}"},
		"agro_order_cancelled_total":     {&bm.ordersCancelled, "Negotiations cancelled", "{order}"},
		"agro_deadline_warning_total":    {&bm.deadlineWarnings, "Deadline warnings raised", "{warning}"},
		"agro_transport_scheduled_total": {&bm.transports, "Transports scheduled", "{transport}"},
		"agro_freight_billed_total":      {&bm.freightCents, "Billed freight in cents", "{cent}"},
		"agro_event_delivery_total":      {&bm.eventDeliveries, "Domain event deliveries by outcome", "{event}"},
	}
	for name, c := range counters {
		counter, err := NewCounter(cfg.Meter, name, c.descr, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	if bm.sweepDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "agro_deadline_sweep_duration_seconds",
		Description: "Duration of one deadline enforcement sweep",
		Unit:        "s",
		Boundaries:  []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	}); err != nil {
		return nil, err
	}
	if bm.openNegotiations, err = NewGauge(cfg.Meter, "agro_open_negotiations",
		"Orders currently in negotiation", "{order}"); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordOrderCreated counts a new negotiation
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context) {
	bm.ordersCreated.Inc(ctx)
}

// RecordProposal counts an appended proposal row
func (bm *BusinessMetrics) RecordProposal(ctx context.Context, action, actorRole string) {
	bm.proposals.Inc(ctx, AttrProposalAction.String(action), AttrActorRole.String(actorRole))
}

// RecordOrderClosed counts an accepted negotiation
func (bm *BusinessMetrics) RecordOrderClosed(ctx context.Context) {
	bm.ordersClosed.Inc(ctx)
}

// RecordOrderCancelled counts a cancellation. status separates buyer and deadline cancellations.
func (bm *BusinessMetrics) RecordOrderCancelled(ctx context.Context, status string) {
	bm.ordersCancelled.Inc(ctx, AttrOrderStatus.String(status))
}

// RecordDeadlineWarning counts a raised deadline warning
func (bm *BusinessMetrics) RecordDeadlineWarning(ctx context.Context) {
	bm.deadlineWarnings.Inc(ctx)
}

// RecordSweepDuration records how long one deadline sweep took
func (bm *BusinessMetrics) RecordSweepDuration(ctx context.Context, d time.Duration, failed bool) {
	bm.sweepDuration.RecordDuration(ctx, d, AttrSweepFailed.Bool(failed))
}

// RecordTransportScheduled counts a transport and adds its freight when billed
func (bm *BusinessMetrics) RecordTransportScheduled(ctx context.Context, freight decimal.Decimal, billed bool) {
	bm.transports.Inc(ctx, AttrFreightBilled.Bool(billed))
	if billed {
		bm.freightCents.Add(ctx, freight.Shift(2).IntPart())
	}
}

// RecordEventDelivery counts one domain event delivery attempt
func (bm *BusinessMetrics) RecordEventDelivery(ctx context.Context, eventType, outcome string) {
	bm.eventDeliveries.Inc(ctx, AttrEventType.String(eventType), AttrOutcome.String(outcome))
}

// RecordOpenNegotiations sets the open negotiations gauge
func (bm *BusinessMetrics) RecordOpenNegotiations(ctx context.Context, count int64) {
	bm.openNegotiations.Record(ctx, count)
}

// StartPeriodicCollection samples the open negotiations gauge now and on every
// interval until Stop is called or ctx is done. Later calls do nothing.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.startOnce.Do(func() {
		if interval <= 0 {
			interval = defaultCollectInterval
		}
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				bm.sampleOpenNegotiations(ctx)
				select {
				case <-ticker.C:
				case <-bm.stop:
					bm.logger.Debug("Business metrics collection stopped")
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	})
}

func (bm *BusinessMetrics) sampleOpenNegotiations(ctx context.Context) {
	if bm.provider == nil {
		return
	}
	count, err := bm.provider.CountOpenNegotiations(ctx)
	if err != nil {
		bm.logger.Warn("Failed to count open negotiations", zap.Error(err))
		return
	}
	bm.RecordOpenNegotiations(ctx, count)
}

// Stop ends periodic collection. Safe to call more than once.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() { close(bm.stop) })
}
