package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DeadlineExpiredNote is recorded on the proposal written when the sweep cancels an order
const DeadlineExpiredNote = "Negotiation deadline expired"

// DeadlineConfig holds deadline enforcement settings
type DeadlineConfig struct {
	// WarningWindow is how long before the deadline a warning is raised
	WarningWindow time.Duration
	// WarningTTL is how long a raised warning is remembered
	WarningTTL time.Duration
	// BatchSize caps the orders handled per step of one sweep
	BatchSize int
}

// DefaultDeadlineConfig returns a 24h warning window
func DefaultDeadlineConfig() DeadlineConfig {
	return DeadlineConfig{
		WarningWindow: 24 * time.Hour,
		WarningTTL:    48 * time.Hour,
		BatchSize:     500,
	}
}

// SweepResult reports what one deadline sweep did
type SweepResult struct {
	Cancelled int
	Conflicts int
	Failed    int
	Warned    int
	Duration  time.Duration
}

// DeadlineService cancels expired negotiations and warns about approaching deadlines.
// Every order is cancelled in its own transaction so one failure never blocks the others.
type DeadlineService struct {
	orderRepo       ordering.OrderRepository
	txScope         TransactionScope
	warnings        shared.IdempotencyStore
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	config          DeadlineConfig
	logger          *zap.Logger
	now             func() time.Time
}

// NewDeadlineService creates a new DeadlineService
func NewDeadlineService(
	orderRepo ordering.OrderRepository,
	txScope TransactionScope,
	warnings shared.IdempotencyStore,
	config DeadlineConfig,
	logger *zap.Logger,
) *DeadlineService {
	defaults := DefaultDeadlineConfig()
	if config.WarningWindow <= 0 {
		config.WarningWindow = defaults.WarningWindow
	}
	if config.WarningTTL <= 0 {
		config.WarningTTL = defaults.WarningTTL
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineService{
		orderRepo: orderRepo,
		txScope:   txScope,
		warnings:  warnings,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// SetEventPublisher sets the event publisher used for warnings and cancellations
func (s *DeadlineService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *DeadlineService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetClock overrides the time source
func (s *DeadlineService) SetClock(now func() time.Time) {
	s.now = now
}

// Sweep cancels expired negotiations, then raises warnings. A failing step does not skip the other.
func (s *DeadlineService) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "deadline", "sweep")
	defer span.End()

	start := time.Now()
	var result SweepResult

	cancelErr := s.cancelExpired(ctx, &result)
	warnErr := s.warnApproaching(ctx, &result)
	err := errors.Join(cancelErr, warnErr)

	result.Duration = time.Since(start)
	telemetry.SetAttributes(span,
		"cancelled", result.Cancelled,
		"conflicts", result.Conflicts,
		"failed", result.Failed,
		"warned", result.Warned,
	)
	telemetry.RecordError(span, err)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordSweepDuration(ctx, result.Duration, err != nil)
	}

	s.logger.Info("deadline sweep finished",
		zap.Int("cancelled", result.Cancelled),
		zap.Int("conflicts", result.Conflicts),
		zap.Int("failed", result.Failed),
		zap.Int("warned", result.Warned),
		zap.Duration("duration", result.Duration),
	)

	return result, err
}

// CancelExpired cancels every negotiation whose deadline has passed
func (s *DeadlineService) CancelExpired(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	err := s.cancelExpired(ctx, &result)
	return result, err
}

// WarnApproaching raises one warning per order and deadline for negotiations inside the warning window
func (s *DeadlineService) WarnApproaching(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	err := s.warnApproaching(ctx, &result)
	return result, err
}

func (s *DeadlineService) cancelExpired(ctx context.Context, result *SweepResult) error {
	now := s.now()
	orders, err := s.orderRepo.FindExpiredNegotiations(ctx, now, s.config.BatchSize)
	if err != nil {
		return fmt.Errorf("find expired negotiations: %w", err)
	}

	for i := range orders {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		order := &orders[i]
		err := s.cancelOrder(ctx, order)
		switch {
		case err == nil:
			result.Cancelled++
		case errors.Is(err, shared.ErrConcurrencyConflict):
			// Someone changed the order since it was listed; the next sweep sees the new state
			result.Conflicts++
			s.logger.Info("skipping expired order modified concurrently",
				zap.String("order_id", order.ID.String()),
			)
		default:
			result.Failed++
			s.logger.Error("failed to cancel expired order",
				zap.String("order_id", order.ID.String()),
				zap.Time("interaction_deadline", order.InteractionDeadline),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (s *DeadlineService) cancelOrder(ctx context.Context, order *ordering.Order) error {
	if err := order.CancelByDeadline(); err != nil {
		return err
	}
	order.RecordProposal(ordering.ProposalActionCancelled, ordering.System{}, DeadlineExpiredNote)

	appended, err := saveOrderWithProposals(ctx, s.txScope, order)
	if err != nil {
		return err
	}

	recordProposals(ctx, s.businessMetrics, appended)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderCancelled(ctx, string(order.Status))
	}
	publishEvents(ctx, s.eventPublisher, s.logger, order)

	s.logger.Info("negotiation cancelled by deadline",
		zap.String("order_id", order.ID.String()),
		zap.Time("interaction_deadline", order.InteractionDeadline),
	)
	return nil
}

func (s *DeadlineService) warnApproaching(ctx context.Context, result *SweepResult) error {
	now := s.now()
	orders, err := s.orderRepo.FindDeadlineApproaching(ctx, now, now.Add(s.config.WarningWindow), s.config.BatchSize)
	if err != nil {
		return fmt.Errorf("find approaching deadlines: %w", err)
	}

	for i := range orders {
		order := &orders[i]
		first, err := s.markWarned(ctx, order)
		if err != nil {
			s.logger.Warn("failed to record deadline warning, skipping",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !first {
			continue
		}

		if s.eventPublisher != nil {
			if err := s.eventPublisher.Publish(ctx, ordering.NewDeadlineApproachingEvent(order, now)); err != nil {
				s.logger.Warn("failed to publish deadline warning",
					zap.String("order_id", order.ID.String()),
					zap.Error(err),
				)
				s.releaseWarning(ctx, order)
				continue
			}
		}

		result.Warned++
		if s.businessMetrics != nil {
			s.businessMetrics.RecordDeadlineWarning(ctx)
		}
	}

	return nil
}

// markWarned reports whether this is the first warning for the order's current deadline.
// Extending the deadline produces a new key, so the new deadline is warned about again.
func (s *DeadlineService) markWarned(ctx context.Context, order *ordering.Order) (bool, error) {
	if s.warnings == nil {
		return true, nil
	}
	return s.warnings.MarkProcessed(ctx, DeadlineWarningKey(order), s.config.WarningTTL)
}

// releaseWarning lets the next sweep retry a warning that was claimed but not delivered
func (s *DeadlineService) releaseWarning(ctx context.Context, order *ordering.Order) {
	if s.warnings == nil {
		return
	}
	if err := s.warnings.Release(ctx, DeadlineWarningKey(order)); err != nil {
		s.logger.Warn("failed to release deadline warning",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

// DeadlineWarningKey identifies a warning for one order and deadline
func DeadlineWarningKey(order *ordering.Order) string {
	return fmt.Sprintf("deadline-warning:%s:%d", order.ID, order.InteractionDeadline.Unix())
}
