package repository

import (
	"context"
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var terminalStatuses = []models.BookingStatus{models.StatusCancelled, models.StatusCompleted}

const DefaultPageSize = 20

type BookingFilter struct {
	ClientID   *uint
	EmployeeID *uint
	Status     *models.BookingStatus
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	Update(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error
	ReplaceItems(ctx context.Context, tx *gorm.DB, bookingID uint, items []models.BookingItem) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	FindActiveBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	FindActiveByEmployee(ctx context.Context, tx *gorm.DB, employeeID uint, from, to time.Time) ([]models.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]models.Booking, int64, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Omit("Items").Create(booking).Error
}

func (r *bookingRepository) Update(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Omit("Items", "CreatedAt").Save(booking).Error
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status).Error
}

// ReplaceItems swaps the booking's service snapshot for items.
func (r *bookingRepository) ReplaceItems(ctx context.Context, tx *gorm.DB, bookingID uint, items []models.BookingItem) error {
	if err := tx.WithContext(ctx).Where("booking_id = ?", bookingID).Delete(&models.BookingItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].ID = 0
		items[i].BookingID = bookingID
	}
	return tx.WithContext(ctx).Omit("Service").Create(&items).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Preload("Items.Service").First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate acquires a row-level lock on the booking within the given transaction.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindActiveBetween returns non-terminal bookings of any employee that
// intersect [from, to).
func (r *bookingRepository) FindActiveBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status NOT IN ? AND scheduled_at < ? AND ends_at > ?", terminalStatuses, to, from).
		Order("scheduled_at ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) FindActiveByEmployee(ctx context.Context, tx *gorm.DB, employeeID uint, from, to time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := tx.WithContext(ctx).
		Where("employee_id = ? AND status NOT IN ? AND scheduled_at < ? AND ends_at > ?", employeeID, terminalStatuses, to, from).
		Order("scheduled_at ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter) ([]models.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Booking{})
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if filter.EmployeeID != nil {
		q = q.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		q = q.Where("scheduled_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("scheduled_at < ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, size := NormalizePage(filter.Page, filter.PageSize)
	var bookings []models.Booking
	err := q.Preload("Items.Service").
		Order("scheduled_at DESC, id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&bookings).Error
	return bookings, total, err
}

// NormalizePage applies the first page and DefaultPageSize when unset.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return page, size
}
