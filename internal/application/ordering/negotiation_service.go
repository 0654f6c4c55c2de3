package ordering

import (
	"context"
	"time"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NegotiationService records buyer and supplier actions on an order.
// Loading, the state transition and the proposal insert run in one transaction.
type NegotiationService struct {
	txScope         TransactionScope
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
	now             func() time.Time
}

// NewNegotiationService creates a new NegotiationService
func NewNegotiationService(txScope TransactionScope, logger *zap.Logger) *NegotiationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NegotiationService{
		txScope: txScope,
		logger:  logger,
		now:     time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *NegotiationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *NegotiationService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetClock overrides the time source used for the deadline check
func (s *NegotiationService) SetClock(now func() time.Time) {
	s.now = now
}

// RecordAction applies a negotiation action requested by the buyer or the supplier
func (s *NegotiationService) RecordAction(ctx context.Context, actor ordering.Actor, orderID uuid.UUID, req SubmitProposalRequest) (*NegotiationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "negotiation", "record_action",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID),
		telemetry.WithAttribute(telemetry.SpanAttrActorRole, string(actor.Role())),
	)
	defer span.End()

	action, ok := ordering.ParseProposalAction(req.Action)
	if !ok || action == ordering.ProposalActionCartChanged {
		err := shared.NewValidationError("Unknown negotiation action: " + req.Action)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		order    *ordering.Order
		outcome  ordering.NegotiationOutcome
		appended []ordering.Proposal
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsInNegotiation() && !order.IsWithinDeadlineAt(s.now()) {
			return shared.NewInvalidStateError("The negotiation deadline has passed")
		}

		outcome, err = ordering.Negotiate(order, ordering.NegotiationRequest{
			Actor:           actor,
			RequestedAction: action,
			Note:            req.Note,
		})
		if err != nil {
			return err
		}

		// A suppressed duplicate with no transition leaves nothing to write
		if !outcome.ProposalAppended && outcome.PreviousStatus == outcome.Status {
			return nil
		}

		appended = order.PendingProposals()
		if err := repos.OrderRepo().SaveWithLock(ctx, order); err != nil {
			return err
		}
		return repos.ProposalRepo().Append(ctx, appended...)
	})
	if err != nil {
		err = boundaryError(s.logger, "RecordAction", err,
			zap.String("order_id", orderID.String()),
			zap.String("requested_action", req.Action),
		)
		telemetry.RecordError(span, err)
		return nil, err
	}
	order.ClearPendingProposals()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrProposalAction, string(outcome.RecordedAction),
		telemetry.SpanAttrOrderStatus, string(outcome.Status),
		"proposal_appended", outcome.ProposalAppended,
	)

	recordProposals(ctx, s.businessMetrics, appended)
	s.recordTransition(ctx, outcome)
	publishEvents(ctx, s.eventPublisher, s.logger, order)

	s.logger.Info("negotiation action recorded",
		zap.String("order_id", order.ID.String()),
		zap.String("actor_role", string(actor.Role())),
		zap.String("recorded_action", string(outcome.RecordedAction)),
		zap.Bool("proposal_appended", outcome.ProposalAppended),
		zap.String("status", string(outcome.Status)),
	)

	return &NegotiationResult{
		RecordedAction:   string(outcome.RecordedAction),
		ProposalAppended: outcome.ProposalAppended,
		PreviousStatus:   string(outcome.PreviousStatus),
		Order:            ToOrderSummary(order),
	}, nil
}

func (s *NegotiationService) recordTransition(ctx context.Context, outcome ordering.NegotiationOutcome) {
	if s.businessMetrics == nil || outcome.PreviousStatus == outcome.Status {
		return
	}
	switch {
	case outcome.Status == ordering.OrderStatusClosed:
		s.businessMetrics.RecordOrderClosed(ctx)
	case outcome.Status.IsCancelled():
		s.businessMetrics.RecordOrderCancelled(ctx, string(outcome.Status))
	}
}
