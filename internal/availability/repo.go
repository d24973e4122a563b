package availability

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/voltline-backend/pkg/db/models"
)

// Repository persists settings blobs and test-ride bookings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSettings(ctx context.Context, dealerID uuid.UUID) (*models.AvailabilitySettings, error)
	UpsertSettings(ctx context.Context, dealerID uuid.UUID, raw json.RawMessage, now time.Time) error
	CountBookings(ctx context.Context, dealerID uuid.UUID, date string) (int64, error)
	CreateBooking(ctx context.Context, booking *models.TestRideBooking) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindSettings(ctx context.Context, dealerID uuid.UUID) (*models.AvailabilitySettings, error) {
	var row models.AvailabilitySettings
	if err := r.db.WithContext(ctx).Where("dealer_id = ?", dealerID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpsertSettings(ctx context.Context, dealerID uuid.UUID, raw json.RawMessage, now time.Time) error {
	row := models.AvailabilitySettings{
		DealerID:  dealerID,
		Settings:  raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dealer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"settings", "updated_at"}),
	}).Create(&row).Error
}

func (r *repository) CountBookings(ctx context.Context, dealerID uuid.UUID, date string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TestRideBooking{}).
		Where("dealer_id = ? AND booking_date = ?", dealerID, date).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateBooking(ctx context.Context, booking *models.TestRideBooking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

// SlotCounter reports how many test-ride slots are left on a date given
// the day's capacity.
type SlotCounter interface {
	RemainingSlots(ctx context.Context, tx *gorm.DB, dealerID uuid.UUID, date string, capacity int) (int, error)
}

type bookingCounter struct {
	repo Repository
}

// NewBookingCounter counts rows in test_ride_bookings.
func NewBookingCounter(repo Repository) SlotCounter {
	return bookingCounter{repo: repo}
}

func (c bookingCounter) RemainingSlots(ctx context.Context, tx *gorm.DB, dealerID uuid.UUID, date string, capacity int) (int, error) {
	booked, err := c.repo.WithTx(tx).CountBookings(ctx, dealerID, date)
	if err != nil {
		return 0, err
	}
	remaining := capacity - int(booked)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
