package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/lifecycle"
	"github.com/AngelAdrianVR/WashApp/internal/lock"
	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/AngelAdrianVR/WashApp/internal/repository"
	"github.com/AngelAdrianVR/WashApp/internal/scheduling"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dayLockTTL  = 10 * time.Second
	dayLockWait = 2 * time.Second
)

// Routing keys for booking events.
const (
	EventBookingCreated       = "booking.created"
	EventBookingUpdated       = "booking.updated"
	EventBookingCancelled     = "booking.cancelled"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingAssigned      = "booking.assigned"
	EventBookingReminder      = "booking.reminder"
)

type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, actor lifecycle.Actor, in BookingInput) (*models.Booking, error)
	UpdateBooking(ctx context.Context, actor lifecycle.Actor, id uint, in BookingInput) (*models.Booking, error)
	CancelBooking(ctx context.Context, actor lifecycle.Actor, id uint, reason string) (*models.Booking, error)
	UpdateNotes(ctx context.Context, actor lifecycle.Actor, id uint, notes string) (*models.Booking, error)
	AdvanceStatus(ctx context.Context, actor lifecycle.Actor, id uint, to models.BookingStatus) (*models.Booking, error)
	AssignEmployee(ctx context.Context, actor lifecycle.Actor, id uint, employeeID uint) (*models.Booking, error)
	GetBooking(ctx context.Context, actor lifecycle.Actor, id uint) (*models.Booking, error)
	ListBookings(ctx context.Context, actor lifecycle.Actor, status *models.BookingStatus, page int) ([]models.Booking, int64, error)
}

type BookingServiceDeps struct {
	Tx        repository.Transactor
	Bookings  repository.BookingRepository
	Services  repository.ServiceRepository
	Users     repository.UserRepository
	Slots     *scheduling.SlotEnumerator
	Resolver  *scheduling.Resolver
	Locker    lock.Locker
	LockWait  time.Duration
	Publisher EventPublisher
	Logger    *zap.Logger
}

type bookingService struct {
	tx          repository.Transactor
	bookingRepo repository.BookingRepository
	serviceRepo repository.ServiceRepository
	userRepo    repository.UserRepository
	slots       *scheduling.SlotEnumerator
	resolver    *scheduling.Resolver
	locker      lock.Locker
	lockWait    time.Duration
	publisher   EventPublisher
	log         *zap.Logger
}

// NewBookingService wires the booking coordinator. A nil Publisher skips
// event publishing and a nil Locker disables the cross-instance day lock.
// LockWait bounds how long a request queues behind the day lock before it
// proceeds on row locks alone.
func NewBookingService(d BookingServiceDeps) BookingService {
	s := &bookingService{
		tx:          d.Tx,
		bookingRepo: d.Bookings,
		serviceRepo: d.Services,
		userRepo:    d.Users,
		slots:       d.Slots,
		resolver:    d.Resolver,
		locker:      d.Locker,
		lockWait:    d.LockWait,
		publisher:   d.Publisher,
		log:         d.Logger,
	}
	if s.resolver == nil {
		s.resolver = scheduling.NewResolver(nil)
	}
	if s.slots == nil {
		s.slots = scheduling.NewSlotEnumerator(scheduling.DefaultBusinessHours(), time.Local, s.resolver, nil)
	}
	if s.locker == nil {
		s.locker = lock.Noop{}
	}
	if s.lockWait <= 0 {
		s.lockWait = dayLockWait
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

type bookingPlan struct {
	window  scheduling.Window
	minutes int
	total   decimal.Decimal
	items   []models.BookingItem
}

func (s *bookingService) CreateBooking(ctx context.Context, actor lifecycle.Actor, in BookingInput) (*models.Booking, error) {
	if err := lifecycle.AuthorizeCreate(actor); err != nil {
		return nil, err
	}
	v, err := validateBooking(in, s.slots.Location(), s.slots.Now())
	if err != nil {
		return nil, err
	}
	plan, err := s.plan(ctx, v)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		GuestName:     v.name,
		GuestPhone:    v.phone,
		Status:        models.StatusPending,
		PaymentMethod: v.payment,
		Address:       v.address,
		Latitude:      v.latitude,
		Longitude:     v.longitude,
		Notes:         v.notes,
	}
	if actor.Role == models.RoleClient {
		clientID := actor.UserID
		booking.ClientID = &clientID
	}

	if err := s.reserve(ctx, booking, plan, nil); err != nil {
		return nil, err
	}

	if booking.ClientID != nil {
		s.syncProfile(ctx, *booking.ClientID, v.name, v.phone)
	}
	s.publish(EventBookingCreated, booking)
	return booking, nil
}

func (s *bookingService) UpdateBooking(ctx context.Context, actor lifecycle.Actor, id uint, in BookingInput) (*models.Booking, error) {
	v, err := validateBooking(in, s.slots.Location(), s.slots.Now())
	if err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeOwnerEdit(actor, current); err != nil {
		return nil, err
	}
	if !lifecycle.IsOwnerEditable(current.Status) {
		return nil, lifecycle.ErrImmutableBooking
	}
	plan, err := s.plan(ctx, v)
	if err != nil {
		return nil, err
	}

	booking := *current
	booking.Items = nil
	booking.GuestName = v.name
	booking.GuestPhone = v.phone
	booking.PaymentMethod = v.payment
	booking.Address = v.address
	booking.Latitude = v.latitude
	booking.Longitude = v.longitude
	booking.Notes = v.notes

	recheck := func(tx *gorm.DB) error {
		locked, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if !lifecycle.IsOwnerEditable(locked.Status) {
			return lifecycle.ErrImmutableBooking
		}
		booking.Status = locked.Status
		booking.CancellationReason = locked.CancellationReason
		return nil
	}
	if err := s.reserve(ctx, &booking, plan, recheck); err != nil {
		return nil, err
	}

	s.publish(EventBookingUpdated, &booking)
	return &booking, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, actor lifecycle.Actor, id uint, reason string) (*models.Booking, error) {
	reason, err := validateReason(reason)
	if err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeCancel(actor, current); err != nil {
		return nil, err
	}
	if err := lifecycle.CheckCancel(current.Status); err != nil {
		return nil, err
	}

	var result *models.Booking
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		b, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckCancel(b.Status); err != nil {
			return err
		}
		b.Status = models.StatusCancelled
		b.Notes = lifecycle.AppendCancellation(b.Notes, actor.Role, reason)
		b.CancellationReason = reason
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err := s.txError("cancel booking", err); err != nil {
		return nil, err
	}

	result.Items = current.Items
	s.publish(EventBookingCancelled, result)
	return result, nil
}

func (s *bookingService) UpdateNotes(ctx context.Context, actor lifecycle.Actor, id uint, notes string) (*models.Booking, error) {
	notes, err := validateNotes(notes)
	if err != nil {
		return nil, err
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeOwnerEdit(actor, current); err != nil {
		return nil, err
	}
	if !lifecycle.IsOwnerEditable(current.Status) {
		return nil, lifecycle.ErrImmutableBooking
	}

	var result *models.Booking
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		b, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if !lifecycle.IsOwnerEditable(b.Status) {
			return lifecycle.ErrImmutableBooking
		}
		b.Notes = notes
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err := s.txError("update notes", err); err != nil {
		return nil, err
	}

	result.Items = current.Items
	s.publish(EventBookingUpdated, result)
	return result, nil
}

func (s *bookingService) AdvanceStatus(ctx context.Context, actor lifecycle.Actor, id uint, to models.BookingStatus) (*models.Booking, error) {
	if !to.Valid() {
		return nil, fieldError("status", "unknown status")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeAdvance(actor, current); err != nil {
		return nil, err
	}
	if err := lifecycle.CheckAdvance(current.Status, to); err != nil {
		return nil, err
	}

	var result *models.Booking
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		b, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckAdvance(b.Status, to); err != nil {
			return err
		}
		if err := s.bookingRepo.UpdateStatus(ctx, tx, id, to); err != nil {
			return err
		}
		b.Status = to
		result = b
		return nil
	})
	if err := s.txError("advance status", err); err != nil {
		return nil, err
	}

	result.Items = current.Items
	s.publish(EventBookingStatusChanged, result)
	return result, nil
}

// AssignEmployee moves a booking to another employee after checking the
// employee is free for the booking's window.
func (s *bookingService) AssignEmployee(ctx context.Context, actor lifecycle.Actor, id uint, employeeID uint) (*models.Booking, error) {
	if err := lifecycle.AuthorizeAssign(actor); err != nil {
		return nil, err
	}
	if employeeID == 0 {
		return nil, fieldError("employee_id", "employee_id is required")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, lifecycle.ErrImmutableBooking
	}
	emp, err := s.userRepo.FindByID(ctx, employeeID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load employee: %w", err)
	}
	if emp == nil || emp.Role != models.RoleEmployee || !emp.IsActive {
		return nil, fieldError("employee_id", "employee not found or inactive")
	}

	window := scheduling.BookingWindow(current)
	var result *models.Booking
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		b, err := s.lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.Status.IsTerminal() {
			return lifecycle.ErrImmutableBooking
		}
		if _, err := s.userRepo.LockEmployee(ctx, tx, employeeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fieldError("employee_id", "employee not found or inactive")
			}
			return err
		}
		existing, err := s.bookingRepo.FindActiveByEmployee(ctx, tx, employeeID, window.Start, window.End)
		if err != nil {
			return err
		}
		if scheduling.IsBusy(employeeID, window, existing, id) {
			return scheduling.ErrNoAvailableEmployee
		}
		b.EmployeeID = employeeID
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err := s.txError("assign employee", err); err != nil {
		return nil, err
	}

	result.Items = current.Items
	s.publish(EventBookingAssigned, result)
	return result, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor lifecycle.Actor, id uint) (*models.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.AuthorizeView(actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBookings scopes the listing to the actor: clients see their own
// bookings, employees their assigned jobs and admins everything.
func (s *bookingService) ListBookings(ctx context.Context, actor lifecycle.Actor, status *models.BookingStatus, page int) ([]models.Booking, int64, error) {
	if status != nil && !status.Valid() {
		return nil, 0, fieldError("status", "unknown status")
	}
	filter := repository.BookingFilter{Status: status, Page: page}
	id := actor.UserID
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleEmployee:
		filter.EmployeeID = &id
	case models.RoleClient:
		filter.ClientID = &id
	default:
		return nil, 0, lifecycle.ErrUnauthorized
	}
	bookings, total, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, total, nil
}

// plan resolves the selected services into the booking window, the frozen
// total and the per-service snapshot rows.
func (s *bookingService) plan(ctx context.Context, v *validBooking) (*bookingPlan, error) {
	ids := scheduling.UniqueIDs(v.serviceIDs)
	services, err := s.serviceRepo.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	catalog := scheduling.NewCatalog(services)
	minutes, err := scheduling.TotalDuration(ids, catalog)
	if err != nil {
		return nil, err
	}
	if minutes <= 0 {
		return nil, fieldError("services", "selected services have no duration")
	}

	window := scheduling.NewWindow(v.start, minutes)
	if !s.slots.WithinBusinessHours(window) {
		return nil, fieldError("scheduled_at", "booking must start and end within business hours")
	}

	p := &bookingPlan{window: window, minutes: minutes, total: decimal.Zero}
	for _, id := range ids {
		svc := catalog[id]
		p.total = p.total.Add(svc.Price)
		p.items = append(p.items, models.BookingItem{
			ServiceID:                svc.ID,
			PriceAtBooking:           svc.Price,
			DurationMinutesAtBooking: svc.DurationMinutes,
		})
	}
	if !p.total.Equal(v.totalPrice) {
		return nil, fieldError("total_price", "total_price does not match the selected services, expected "+p.total.StringFixed(2))
	}
	return p, nil
}

// reserve assigns an employee and writes the booking with its service
// snapshot. Availability is checked once against a plain read so hopeless
// requests fail before a transaction opens, then checked again inside the
// transaction with each candidate employee row locked.
func (s *bookingService) reserve(ctx context.Context, booking *models.Booking, plan *bookingPlan, recheck func(tx *gorm.DB) error) error {
	excludeID := booking.ID

	employees, err := s.userRepo.ListActiveEmployees(ctx)
	if err != nil {
		return s.txError("list employees", err)
	}
	existing, err := s.bookingRepo.FindActiveBetween(ctx, plan.window.Start, plan.window.End)
	if err != nil {
		return s.txError("load bookings", err)
	}
	if _, err := s.resolver.Resolve(ctx, employees, scheduling.SnapshotBusy(plan.window, existing, excludeID)); err != nil {
		return s.txError("resolve employee", err)
	}

	key := "bookings:" + plan.window.Start.In(s.slots.Location()).Format(DateLayout)
	token, acquired, err := lock.Acquire(ctx, s.locker, key, dayLockTTL, s.lockWait)
	switch {
	case err != nil:
		s.log.Warn("day lock unavailable, relying on row locks", zap.String("key", key), zap.Error(err))
	case !acquired:
		s.log.Info("day lock still held, relying on row locks", zap.String("key", key), zap.Duration("waited", s.lockWait))
	default:
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				s.log.Warn("release day lock", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		if recheck != nil {
			if err := recheck(tx); err != nil {
				return err
			}
		}

		busy := func(ctx context.Context, employeeID uint) (bool, error) {
			if _, err := s.userRepo.LockEmployee(ctx, tx, employeeID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return true, nil
				}
				return false, err
			}
			current, err := s.bookingRepo.FindActiveByEmployee(ctx, tx, employeeID, plan.window.Start, plan.window.End)
			if err != nil {
				return false, err
			}
			return scheduling.IsBusy(employeeID, plan.window, current, excludeID), nil
		}
		emp, err := s.resolver.Resolve(ctx, employees, busy)
		if err != nil {
			return err
		}

		booking.EmployeeID = emp.ID
		booking.ScheduledAt = plan.window.Start
		booking.EndsAt = plan.window.End
		booking.DurationMinutes = plan.minutes
		booking.TotalPrice = plan.total

		if booking.ID == 0 {
			err = s.bookingRepo.Create(ctx, tx, booking)
		} else {
			err = s.bookingRepo.Update(ctx, tx, booking)
		}
		if err != nil {
			return err
		}

		items := make([]models.BookingItem, len(plan.items))
		for i, it := range plan.items {
			it.BookingID = booking.ID
			items[i] = it
		}
		if err := s.bookingRepo.ReplaceItems(ctx, tx, booking.ID, items); err != nil {
			return err
		}
		booking.Items = items
		return nil
	})
	if err != nil && excludeID == 0 {
		booking.ID = 0
	}
	return s.txError("reserve booking", err)
}

// txError keeps domain errors as they are, maps capacity conflicts to
// ErrSlotUnavailable and hides everything else behind ErrTransactionFailed.
func (s *bookingService) txError(op string, err error) error {
	var verr *ValidationError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scheduling.ErrNoAvailableEmployee), repository.IsOverlapViolation(err):
		return ErrSlotUnavailable
	case errors.Is(err, ErrBookingNotFound),
		errors.Is(err, lifecycle.ErrImmutableBooking),
		errors.Is(err, lifecycle.ErrUnauthorized),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.As(err, &verr):
		return err
	default:
		s.log.Error("booking transaction failed", zap.String("op", op), zap.Error(err))
		return ErrTransactionFailed
	}
}

func (s *bookingService) load(ctx context.Context, id uint) (*models.Booking, error) {
	b, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking %d: %w", id, err)
	}
	return b, nil
}

func (s *bookingService) lockBooking(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	b, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// syncProfile copies the submitted contact details onto the client's
// profile. Failures are logged and never fail the booking.
func (s *bookingService) syncProfile(ctx context.Context, userID uint, name, phone string) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.log.Warn("profile sync skipped", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	if phone == "" {
		phone = user.PhoneNumber
	}
	if user.Name == name && user.PhoneNumber == phone {
		return
	}
	if err := s.userRepo.UpdateContact(ctx, userID, name, phone); err != nil {
		s.log.Warn("profile sync failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func (s *bookingService) publish(routingKey string, b *models.Booking) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, b); err != nil {
		s.log.Warn("publish booking event",
			zap.String("routing_key", routingKey),
			zap.Uint("booking_id", b.ID),
			zap.Error(err),
		)
	}
}
