package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/voltline-backend/internal/dealers"
	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/outbox"
	"github.com/angelmondragon/voltline-backend/pkg/outbox/payloads"
)

// ReasonUnavailable narrows STATE_CONFLICT errors from BookTestRide.
const ReasonUnavailable = "TEST_RIDE_UNAVAILABLE"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages dealer availability and books test rides against it.
type Service interface {
	GetSettings(ctx context.Context, actor auth.Actor, dealerID uuid.UUID) (Settings, error)
	PutSettings(ctx context.Context, actor auth.Actor, dealerID uuid.UUID, settings Settings) (Settings, error)
	AddHoliday(ctx context.Context, actor auth.Actor, dealerID uuid.UUID, date string) (Settings, error)
	RemoveHoliday(ctx context.Context, actor auth.Actor, dealerID uuid.UUID, date string) (Settings, error)
	CheckAvailability(ctx context.Context, dealerID uuid.UUID, date, clock string) (Availability, error)
	BookTestRide(ctx context.Context, input BookTestRideInput) (*models.TestRideBooking, error)
}

// BookTestRideInput is a customer's request for a slot. UserID is set when
// the customer is signed in.
type BookTestRideInput struct {
	DealerID  uuid.UUID
	Date      string
	Time      string
	Name      string
	Email     string
	Phone     *string
	VehicleID *uuid.UUID
	UserID    *uuid.UUID
}

type ServiceParams struct {
	Repo                Repository
	Counter             SlotCounter
	Dealers             dealers.Repository
	Tx                  txRunner
	Outbox              outbox.Emitter
	Logger              *logger.Logger
	Limits              Limits
	DefaultSlotDuration int
}

type service struct {
	repo        Repository
	counter     SlotCounter
	dealers     dealers.Repository
	tx          txRunner
	outbox      outbox.Emitter
	logg        *logger.Logger
	limits      Limits
	defaultSlot int
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("availability repository required")
	}
	if params.Dealers == nil {
		return nil, fmt.Errorf("dealers repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	counter := params.Counter
	if counter == nil {
		counter = NewBookingCounter(params.Repo)
	}
	limits := params.Limits
	if limits.MinSlotDuration == 0 && limits.MaxSlotDuration == 0 {
		limits = DefaultLimits
	}
	defaultSlot := params.DefaultSlotDuration
	if defaultSlot == 0 {
		defaultSlot = 30
	}
	return &service{
		repo:        params.Repo,
		counter:     counter,
		dealers:     params.Dealers,
		tx:          params.Tx,
		outbox:      params.Outbox,
		logg:        params.Logger,
		limits:      limits,
		defaultSlot: defaultSlot,
		now:         time.Now,
	}, nil
}

func (s *service) GetSettings(ctx context.Context, actor auth.Actor, dealerID uuid.UUID) (Settings, error) {
	if !actor.ActsForDealer(dealerID) {
		return Settings{}, pkgerrors.New(pkgerrors.CodeForbidden, "availability access denied")
	}
	return s.load(ctx, s.repo, dealerID)
}

func (s *service) PutSettings(ctx context.Context, actor auth.Actor, dealerID uuid.UUID, settings Settings) (Settings, error) {
	if !actor.ActsForDealer(dealerID) {
		return Settings{}, pkgerrors.New(pkgerrors.CodeForbidden, "availability access denied")
	}
	if settings.WorkingHours == nil {
		settings.WorkingHours = map[string]DayHours{}
	}
	settings = settings.Normalized()
	if err := settings.Validate(s.limits); err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid availability settings")
	}
	dealer, err := s.dealers.FindByID(ctx, dealerID)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}
	if dealer == nil {
		return Settings{}, pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
	}
	if err := s.save(ctx, s.repo, dealerID, settings); err != nil {
		return Settings{}, err
	}
	s.info(ctx, "availability.settings.updated", map[string]any{"dealer_id": dealerID.String()})
	return settings, nil
}

func (s *service) AddHoliday(ctx context.Context, actor auth.Actor, dealerID uuid.UUID, date string) (Settings, error) {
	return s.editHolidays(ctx, actor, dealerID, date, Settings.AddHoliday)
}

func (s *service) RemoveHoliday(ctx context.Context, actor auth.Actor, dealerID uuid.UUID, date string) (Settings, error) {
	return s.editHolidays(ctx, actor, dealerID, date, Settings.RemoveHoliday)
}

// editHolidays serializes read-modify-write on the dealer row so concurrent
// edits do not drop each other's dates.
func (s *service) editHolidays(ctx context.Context, actor auth.Actor, dealerID uuid.UUID, date string, edit func(Settings, string) Settings) (Settings, error) {
	if !actor.ActsForDealer(dealerID) {
		return Settings{}, pkgerrors.New(pkgerrors.CodeForbidden, "availability access denied")
	}
	date = strings.TrimSpace(date)
	if _, err := time.Parse(dateLayout, date); err != nil {
		return Settings{}, pkgerrors.New(pkgerrors.CodeValidation, "date must be yyyy-MM-dd")
	}

	var out Settings
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.lockDealer(ctx, tx, dealerID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, dealerID)
		if err != nil {
			return err
		}
		out = edit(current, date)
		return s.save(ctx, repo, dealerID, out)
	})
	if err != nil {
		return Settings{}, asTyped(err, "update holidays")
	}
	return out, nil
}

func (s *service) CheckAvailability(ctx context.Context, dealerID uuid.UUID, date, clock string) (Availability, error) {
	if err := s.rejectPast(date); err != nil {
		return Availability{}, err
	}
	settings, err := s.load(ctx, s.repo, dealerID)
	if err != nil {
		return Availability{}, err
	}
	return s.evaluate(ctx, nil, settings, dealerID, date, clock)
}

// rejectPast accepts today and later, in UTC.
func (s *service) rejectPast(date string) error {
	day, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "date must be yyyy-MM-dd")
	}
	if day.Before(s.now().UTC().Truncate(24 * time.Hour)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "date cannot be in the past")
	}
	return nil
}

func (s *service) evaluate(ctx context.Context, tx *gorm.DB, settings Settings, dealerID uuid.UUID, date, clock string) (Availability, error) {
	result, err := settings.IsAvailable(strings.TrimSpace(date), strings.TrimSpace(clock))
	if err != nil {
		return Availability{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid availability query")
	}
	if !result.Available {
		return result, nil
	}
	remaining, err := s.counter.RemainingSlots(ctx, tx, dealerID, result.Date, result.Capacity)
	if err != nil {
		return Availability{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count booked slots")
	}
	result.Remaining = remaining
	if remaining <= 0 {
		result.Available = false
		result.Reason = ReasonFullyBooked
	}
	return result, nil
}

func (s *service) BookTestRide(ctx context.Context, input BookTestRideInput) (*models.TestRideBooking, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if input.DealerID == uuid.Nil || name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dealer_id, name and email are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email")
	}
	date := strings.TrimSpace(input.Date)
	if err := s.rejectPast(date); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	var booking *models.TestRideBooking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		dealer, err := s.dealers.WithTx(tx).FindByIDForUpdate(ctx, input.DealerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
		}
		if dealer == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
		}
		if dealer.ApprovalStatus != enums.DealerApprovalApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dealer is not accepting test rides").
				WithReason(ReasonUnavailable)
		}

		repo := s.repo.WithTx(tx)
		settings, err := s.load(ctx, repo, dealer.ID)
		if err != nil {
			return err
		}
		result, err := s.evaluate(ctx, tx, settings, dealer.ID, date, input.Time)
		if err != nil {
			return err
		}
		if !result.Available {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no test-ride slot available").
				WithReason(ReasonUnavailable).
				WithDetails(result)
		}

		booking = &models.TestRideBooking{
			ID:            uuid.New(),
			DealerID:      dealer.ID,
			VehicleID:     input.VehicleID,
			BookingDate:   date,
			SlotTime:      trimmed(&input.Time),
			CustomerName:  name,
			CustomerEmail: email,
			CustomerPhone: trimmed(input.Phone),
			UserID:        input.UserID,
			CreatedAt:     now,
		}
		if err := repo.CreateBooking(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
		}

		event := payloads.TestRideBookedEvent{
			BookingID:     booking.ID,
			DealerID:      dealer.ID,
			DealerUserID:  dealer.OwnerUserID,
			DealerName:    dealer.Name,
			VehicleID:     booking.VehicleID,
			Date:          date,
			CustomerName:  name,
			CustomerEmail: email,
		}
		if booking.SlotTime != nil {
			event.Time = *booking.SlotTime
		}
		var actor *outbox.ActorRef
		if input.UserID != nil {
			actor = &outbox.ActorRef{UserID: *input.UserID, Role: string(enums.ActorRoleCustomer)}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTestRideBooked,
			AggregateType: enums.AggregateTestRideBooking,
			AggregateID:   booking.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data:          event,
		})
	})
	if err != nil {
		return nil, asTyped(err, "book test ride")
	}

	s.info(ctx, "test_ride.booked", map[string]any{
		"booking_id": booking.ID.String(),
		"dealer_id":  booking.DealerID.String(),
		"date":       booking.BookingDate,
	})
	return booking, nil
}

func (s *service) lockDealer(ctx context.Context, tx *gorm.DB, dealerID uuid.UUID) error {
	dealer, err := s.dealers.WithTx(tx).FindByIDForUpdate(ctx, dealerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}
	if dealer == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
	}
	return nil
}

// load returns the stored settings or the defaults when the dealer has none.
func (s *service) load(ctx context.Context, repo Repository, dealerID uuid.UUID) (Settings, error) {
	row, err := repo.FindSettings(ctx, dealerID)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load availability settings")
	}
	if row == nil {
		return DefaultSettings(s.defaultSlot), nil
	}
	var settings Settings
	if err := json.Unmarshal(row.Settings, &settings); err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode availability settings")
	}
	if settings.WorkingHours == nil {
		settings.WorkingHours = map[string]DayHours{}
	}
	if settings.Holidays == nil {
		settings.Holidays = []string{}
	}
	return settings, nil
}

func (s *service) save(ctx context.Context, repo Repository, dealerID uuid.UUID, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode availability settings")
	}
	if err := repo.UpsertSettings(ctx, dealerID, raw, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save availability settings")
	}
	return nil
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func asTyped(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
