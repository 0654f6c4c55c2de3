package ordering

import (
	"fmt"
	"strings"
	"time"

	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxScheduleDaysAhead is how far in the future a transport may be scheduled
const MaxScheduleDaysAhead = 90

// Audit history entry types
const (
	AuditEntryScheduled    = "SCHEDULED"
	AuditEntryRescheduled  = "RESCHEDULED"
	AuditEntryFreightValue = "FREIGHT_VALUE_UPDATED"
	AuditEntryCancelled    = "CANCELLED"
)

const observationTimeLayout = "2006-01-02 15:04"

// TransportAuditInfo is the structured audit document of a transport, stored as JSON
type TransportAuditInfo struct {
	Calculation *FreightCalculationResult `json:"calculation,omitempty"`
	Scheduling  SchedulingAudit           `json:"scheduling"`
	History     []AuditHistoryEntry       `json:"history"`
}

// SchedulingAudit captures how the transport was created
type SchedulingAudit struct {
	ScheduledBy           uuid.UUID       `json:"scheduled_by"`
	ScheduledAt           time.Time       `json:"scheduled_at"`
	OriginalDate          time.Time       `json:"original_date"`
	FreightBilled         bool            `json:"freight_billed"`
	DescriptiveDistanceKm decimal.Decimal `json:"descriptive_distance_km"`
	Notes                 string          `json:"notes,omitempty"`
}

// AuditHistoryEntry is one append-only history record
type AuditHistoryEntry struct {
	Type        string    `json:"type"`
	At          time.Time `json:"at"`
	ActorUserID uuid.UUID `json:"actor_user_id"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// Transport is a shipment allocating part of an order item's quantity
type Transport struct {
	ID            uuid.UUID
	OrderItemID   uuid.UUID
	OrderID       uuid.UUID
	Quantity      decimal.Decimal
	FreightValue  decimal.Decimal
	ScheduledDate time.Time
	Origin        string
	Destination   string
	DistanceKm    decimal.Decimal
	TotalWeightKg decimal.Decimal
	TotalVolumeM3 decimal.Decimal
	Observations  string
	AuditInfo     TransportAuditInfo
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewTransportParams holds the inputs of NewTransport
type NewTransportParams struct {
	OrderID       uuid.UUID
	OrderItemID   uuid.UUID
	Quantity      decimal.Decimal
	ScheduledDate time.Time
	Origin        string
	Destination   string
	DistanceKm    decimal.Decimal
	Notes         string
	ScheduledBy   uuid.UUID
	// Calculation is the freight computation; nil when no distance was given
	Calculation *FreightCalculationResult
	// Descriptive carries weight/volume when no billable calculation exists
	Descriptive           *FreightCalculationResult
	DescriptiveDistanceKm decimal.Decimal
}

// NewTransport creates a transport. Availability and date checks are the scheduler's job.
func NewTransport(p NewTransportParams) (*Transport, error) {
	if p.OrderItemID == uuid.Nil {
		return nil, shared.NewValidationError("Order item ID cannot be empty")
	}
	if p.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Transport quantity must be positive")
	}

	now := time.Now()
	t := &Transport{
		ID:            uuid.New(),
		OrderItemID:   p.OrderItemID,
		OrderID:       p.OrderID,
		Quantity:      p.Quantity,
		FreightValue:  decimal.Zero,
		ScheduledDate: p.ScheduledDate,
		Origin:        strings.TrimSpace(p.Origin),
		Destination:   strings.TrimSpace(p.Destination),
		DistanceKm:    p.DistanceKm,
		TotalWeightKg: decimal.Zero,
		TotalVolumeM3: decimal.Zero,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if p.Calculation != nil {
		t.FreightValue = p.Calculation.FreightValue
		t.TotalWeightKg = p.Calculation.TotalWeightKg
		t.TotalVolumeM3 = p.Calculation.TotalVolumeM3
	} else if p.Descriptive != nil {
		t.TotalWeightKg = p.Descriptive.TotalWeightKg
		t.TotalVolumeM3 = p.Descriptive.TotalVolumeM3
	}

	t.AuditInfo = TransportAuditInfo{
		Calculation: p.Calculation,
		Scheduling: SchedulingAudit{
			ScheduledBy:           p.ScheduledBy,
			ScheduledAt:           now,
			OriginalDate:          p.ScheduledDate,
			FreightBilled:         p.Calculation != nil,
			DescriptiveDistanceKm: p.DescriptiveDistanceKm,
			Notes:                 p.Notes,
		},
		History: []AuditHistoryEntry{{
			Type:        AuditEntryScheduled,
			At:          now,
			ActorUserID: p.ScheduledBy,
			To:          p.ScheduledDate.Format(time.DateOnly),
			Notes:       p.Notes,
		}},
	}

	line := fmt.Sprintf("Scheduled %s for %s", p.Quantity.String(), p.ScheduledDate.Format(time.DateOnly))
	t.appendObservation(now, line, p.Notes)

	return t, nil
}

// ValidateScheduleDate requires date to be strictly after now and at most maxDays ahead
func ValidateScheduleDate(date, now time.Time, maxDays int) error {
	if !date.After(now) {
		return shared.NewValidationError("Scheduled date must be in the future")
	}
	if date.After(now.AddDate(0, 0, maxDays)) {
		return shared.NewValidationError(fmt.Sprintf("Scheduled date cannot be more than %d days ahead", maxDays))
	}
	return nil
}

// Reschedule moves the transport to a new date
func (t *Transport) Reschedule(newDate time.Time, notes string, actorUserID uuid.UUID, now time.Time, maxDays int) error {
	if err := ValidateScheduleDate(newDate, now, maxDays); err != nil {
		return err
	}

	from := t.ScheduledDate.Format(time.DateOnly)
	to := newDate.Format(time.DateOnly)

	t.ScheduledDate = newDate
	t.AuditInfo.History = append(t.AuditInfo.History, AuditHistoryEntry{
		Type:        AuditEntryRescheduled,
		At:          now,
		ActorUserID: actorUserID,
		From:        from,
		To:          to,
		Notes:       notes,
	})
	t.appendObservation(now, fmt.Sprintf("Rescheduled from %s to %s", from, to), notes)
	t.UpdatedAt = now

	return nil
}

// UpdateFreightValue overrides the billed freight
func (t *Transport) UpdateFreightValue(newValue decimal.Decimal, reason string, actorUserID uuid.UUID, now time.Time) error {
	if newValue.IsNegative() {
		return shared.NewValidationError("Freight value cannot be negative")
	}

	from := t.FreightValue.StringFixed(2)
	to := newValue.StringFixed(2)

	t.FreightValue = newValue
	t.AuditInfo.History = append(t.AuditInfo.History, AuditHistoryEntry{
		Type:        AuditEntryFreightValue,
		At:          now,
		ActorUserID: actorUserID,
		From:        from,
		To:          to,
		Notes:       reason,
	})
	t.appendObservation(now, fmt.Sprintf("Freight value changed from %s to %s", from, to), reason)
	t.UpdatedAt = now

	return nil
}

// MarkCancelled appends the cancellation note before the transport is deleted
func (t *Transport) MarkCancelled(reason string, actorUserID uuid.UUID, now time.Time) {
	t.AuditInfo.History = append(t.AuditInfo.History, AuditHistoryEntry{
		Type:        AuditEntryCancelled,
		At:          now,
		ActorUserID: actorUserID,
		Notes:       reason,
	})
	t.appendObservation(now, fmt.Sprintf("Cancelled, releasing %s", t.Quantity.String()), reason)
	t.UpdatedAt = now
}

func (t *Transport) appendObservation(at time.Time, line, notes string) {
	entry := fmt.Sprintf("[%s] %s", at.Format(observationTimeLayout), line)
	if notes = strings.TrimSpace(notes); notes != "" {
		entry += ": " + notes
	}
	if t.Observations == "" {
		t.Observations = entry
		return
	}
	t.Observations += "\n" + entry
}
