/*
service.go - Invoicing service over persisted profiles

PURPOSE:
  Wraps billing's pure rules with persistence. The service owns the
  mutations the core never performs: recording periods off, recording
  expenses and re-anchoring. Every read-only question (invoice number,
  quantity, full invoice plan) loads the profile and asks billing.

INVARIANTS (kept on every write):
  - The anchor's period is never recorded as off.
  - Periods off at or before the anchor are dropped when re-anchoring,
    since they can no longer affect any number.

LOGGING:
  Mutations log at Info with the profile ID and the normalized period.
  Rejected input is returned, not logged.
*/
package invoicing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/calendar"
)

type Service struct {
	store  ProfileStore
	clock  calendar.Clock
	logger *zap.Logger
}

type Option func(*Service)

// WithClock replaces the system clock used to resolve relative periods.
func WithClock(clock calendar.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func NewService(store ProfileStore, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: store, clock: calendar.SystemClock{}, logger: logger.Named("invoicing")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// PROFILES
// =============================================================================

// CreateProfile validates and stores a new profile. An empty ID gets a
// generated one and the anchor period is normalized for the fee cadence.
func (s *Service) CreateProfile(ctx context.Context, p billing.Profile) (billing.Profile, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Version == 0 {
		p.Version = billing.DataVersion
	}
	if p.Information.PeriodsOff == nil {
		p.Information.PeriodsOff = billing.NewRecordOfPeriodsOff()
	}
	if p.Expenses == nil {
		p.Expenses = billing.NewExpensedPeriods()
	}
	p.Expenses.EnsureIDs(uuid.NewString)
	if !p.Information.Anchor.Period.IsZero() {
		p.Information.Anchor.Period = calendar.Normalize(p.Information.Anchor.Period, p.Cadence())
	}
	if err := p.Validate(); err != nil {
		return billing.Profile{}, err
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		return billing.Profile{}, err
	}
	s.logger.Info("profile created",
		zap.String("profile_id", p.ID),
		zap.Stringer("cadence", p.Cadence()),
		zap.Stringer("anchor_period", p.Information.Anchor.Period),
		zap.Int("anchor_offset", int(p.Information.Anchor.Offset)))
	return p, nil
}

func (s *Service) Profile(ctx context.Context, id string) (billing.Profile, error) {
	return s.store.GetProfile(ctx, id)
}

func (s *Service) Profiles(ctx context.Context) ([]billing.Profile, error) {
	return s.store.ListProfiles(ctx)
}

func (s *Service) DeleteProfile(ctx context.Context, id string) error {
	if err := s.store.DeleteProfile(ctx, id); err != nil {
		return err
	}
	s.logger.Info("profile deleted", zap.String("profile_id", id))
	return nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// RecordPeriodOff marks the period named by label as having no invoice.
// Recording an already recorded period is a no-op.
func (s *Service) RecordPeriodOff(ctx context.Context, id, label string) (calendar.Date, error) {
	var period calendar.Date
	_, err := s.store.UpdateProfile(ctx, id, func(p *billing.Profile) error {
		parsed, err := billing.ParsePeriodLabelForCadence(label, p.Cadence())
		if err != nil {
			return err
		}
		period, err = p.Information.InsertPeriodOff(parsed, p.Cadence())
		return err
	})
	if err != nil {
		return calendar.Date{}, err
	}
	s.logger.Info("period off recorded", zap.String("profile_id", id), zap.Stringer("period", period))
	return period, nil
}

// RecordExpenses adds items to the period named by label. Items without an
// ID get a generated one; an ID already used in the profile is rejected.
func (s *Service) RecordExpenses(ctx context.Context, id, label string, items []billing.ExpenseItem) (calendar.Date, error) {
	var period calendar.Date
	_, err := s.store.UpdateProfile(ctx, id, func(p *billing.Profile) error {
		parsed, err := billing.ParsePeriodLabelForCadence(label, p.Cadence())
		if err != nil {
			return err
		}
		period = parsed
		if p.Expenses == nil {
			p.Expenses = billing.NewExpensedPeriods()
		}
		seen := make(map[string]bool, len(items))
		withIDs := make([]billing.ExpenseItem, len(items))
		for i, item := range items {
			switch {
			case item.ID == "":
				item.ID = uuid.NewString()
			case seen[item.ID] || p.Expenses.HasID(item.ID):
				return &billing.DuplicateExpenseIDError{ID: item.ID}
			}
			seen[item.ID] = true
			withIDs[i] = item
		}
		p.Expenses.Insert(period, withIDs...)
		return nil
	})
	if err != nil {
		return calendar.Date{}, err
	}
	s.logger.Info("expenses recorded",
		zap.String("profile_id", id),
		zap.Stringer("period", period),
		zap.Int("items", len(items)))
	return period, nil
}

// Reanchor replaces the anchor and drops periods off that no longer lie
// after it.
func (s *Service) Reanchor(ctx context.Context, id string, anchor billing.Anchor) (billing.Profile, error) {
	if anchor.Offset < 0 {
		return billing.Profile{}, fmt.Errorf("%w: %d", billing.ErrInvalidInvoiceNumber, anchor.Offset)
	}
	if anchor.Period.IsZero() {
		return billing.Profile{}, fmt.Errorf("%w: anchor period is required", billing.ErrInvalidProfile)
	}
	dropped := 0
	updated, err := s.store.UpdateProfile(ctx, id, func(p *billing.Profile) error {
		cadence := p.Cadence()
		anchor.Period = calendar.Normalize(anchor.Period, cadence)
		before := p.Information.PeriodsOff.Len()
		p.Information.PeriodsOff.Retain(func(d calendar.Date) bool {
			return calendar.Normalize(d, cadence).After(anchor.Period)
		})
		dropped = before - p.Information.PeriodsOff.Len()
		p.Information.Anchor = anchor
		return p.Validate()
	})
	if err != nil {
		return billing.Profile{}, err
	}
	s.logger.Info("profile re-anchored",
		zap.String("profile_id", id),
		zap.Stringer("anchor_period", anchor.Period),
		zap.Int("anchor_offset", int(anchor.Offset)),
		zap.Int("dropped_periods_off", dropped))
	return updated, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Target names the date to invoice: an explicit date, a period relative to
// today, or today when both are unset.
type Target struct {
	Date     *calendar.Date
	Relative *calendar.RelativeTime
}

// ResolveDate turns a Target into a concrete date using the service clock.
func (s *Service) ResolveDate(target Target) (calendar.Date, error) {
	switch {
	case target.Date != nil:
		return *target.Date, nil
	case target.Relative != nil:
		return calendar.PeriodEndFromRelativeTime(*target.Relative, s.clock)
	default:
		return s.clock.Today(), nil
	}
}

func (s *Service) InvoiceNumber(ctx context.Context, id string, target calendar.Date, isExpenses bool) (billing.InvoiceNumber, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return 0, err
	}
	return billing.CalculateInvoiceNumber(p.Information.Anchor, target, p.Cadence(), isExpenses, p.Information.PeriodsOff)
}

// Quantity is the billable quantity of the profile's rate unit in the period
// containing target, before time off.
func (s *Service) Quantity(ctx context.Context, id string, target calendar.Date) (billing.Quantity, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return billing.Quantity{}, err
	}
	return billing.QuantityInPeriod(target, p.ServiceFees.Rate.Granularity, p.Cadence(), p.Information.PeriodsOff)
}

func (s *Service) Prepare(ctx context.Context, id string, req billing.Request) (billing.Plan, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return billing.Plan{}, err
	}
	plan, err := billing.Prepare(p, req)
	if err != nil {
		return billing.Plan{}, err
	}
	s.logger.Debug("invoice prepared",
		zap.String("profile_id", id),
		zap.Int("number", int(plan.Number)),
		zap.String("file", plan.FileName()))
	return plan, nil
}
