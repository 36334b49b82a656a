// Package memory is an in-process implementation of the repository
// interfaces. Transactions are serialized and rolled back on error, which
// gives the same isolation the postgres repositories get from row locks.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/AngelAdrianVR/WashApp/internal/repository"
	"gorm.io/gorm"
)

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	services map[uint]models.Service
	users    map[uint]models.User
	bookings map[uint]models.Booking
	nextID   uint

	// FailWrite, when set, is returned by a booking write once FailAfter
	// writes have succeeded.
	FailWrite error
	FailAfter int
}

func New() *Store {
	return &Store{
		services: map[uint]models.Service{},
		users:    map[uint]models.User{},
		bookings: map[uint]models.Booking{},
	}
}

func (s *Store) Services() repository.ServiceRepository { return serviceRepo{s} }
func (s *Store) Users() repository.UserRepository       { return userRepo{s} }
func (s *Store) Bookings() repository.BookingRepository { return bookingRepo{s} }

// Transaction runs fn with a nil tx handle while holding the store-wide
// transaction lock. State is restored if fn fails.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type state struct {
	services map[uint]models.Service
	users    map[uint]models.User
	bookings map[uint]models.Booking
	nextID   uint
}

func (s *Store) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := state{
		services: make(map[uint]models.Service, len(s.services)),
		users:    make(map[uint]models.User, len(s.users)),
		bookings: make(map[uint]models.Booking, len(s.bookings)),
		nextID:   s.nextID,
	}
	for k, v := range s.services {
		st.services[k] = v
	}
	for k, v := range s.users {
		st.users[k] = v
	}
	for k, v := range s.bookings {
		st.bookings[k] = cloneBooking(v)
	}
	return st
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services, s.users, s.bookings, s.nextID = st.services, st.users, st.bookings, st.nextID
}

// AddService seeds a service.
func (s *Store) AddService(svc models.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

func (s *Store) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// AddBooking seeds a booking and returns its ID.
func (s *Store) AddBooking(b models.Booking) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	} else if b.ID > s.nextID {
		s.nextID = b.ID
	}
	s.bookings[b.ID] = cloneBooking(b)
	return b.ID
}

// AllBookings returns every stored booking ordered by ID.
func (s *Store) AllBookings() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, cloneBooking(b))
	}
	slices.SortFunc(out, func(a, b models.Booking) int { return int(a.ID) - int(b.ID) })
	return out
}

func (s *Store) User(id uint) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *Store) takeFailure() error {
	if s.FailWrite == nil {
		return nil
	}
	if s.FailAfter > 0 {
		s.FailAfter--
		return nil
	}
	err := s.FailWrite
	s.FailWrite = nil
	return err
}

func cloneBooking(b models.Booking) models.Booking {
	if b.ClientID != nil {
		id := *b.ClientID
		b.ClientID = &id
	}
	b.Items = slices.Clone(b.Items)
	return b
}

func overlaps(b models.Booking, from, to time.Time) bool {
	return !b.Status.IsTerminal() && b.ScheduledAt.Before(to) && b.EndsAt.After(from)
}

// --- services ---

type serviceRepo struct{ s *Store }

func (r serviceRepo) FindActiveByIDs(ctx context.Context, ids []uint) ([]models.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Service
	for _, id := range ids {
		if svc, ok := r.s.services[id]; ok && svc.IsActive {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (r serviceRepo) ListActive(ctx context.Context) ([]models.Service, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Service
	for _, svc := range r.s.services {
		if svc.IsActive {
			out = append(out, svc)
		}
	}
	slices.SortFunc(out, func(a, b models.Service) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out, nil
}

func (r serviceRepo) Upsert(ctx context.Context, svc *models.Service) error {
	r.s.AddService(*svc)
	return nil
}

// --- users ---

type userRepo struct{ s *Store }

func (r userRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	u, ok := r.s.User(id)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r userRepo) ListActiveEmployees(ctx context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.User
	for _, u := range r.s.users {
		if u.Role == models.RoleEmployee && u.IsActive {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b models.User) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (r userRepo) LockEmployee(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	u, ok := r.s.User(id)
	if !ok || u.Role != models.RoleEmployee || !u.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r userRepo) UpdateContact(ctx context.Context, id uint, name, phone string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Name, u.PhoneNumber = name, phone
	r.s.users[id] = u
	return nil
}

func (r userRepo) Upsert(ctx context.Context, user *models.User) error {
	r.s.AddUser(*user)
	return nil
}

// --- bookings ---

type bookingRepo struct{ s *Store }

func (r bookingRepo) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	r.s.nextID++
	booking.ID = r.s.nextID
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	stored := cloneBooking(*booking)
	stored.Items = nil
	r.s.bookings[booking.ID] = stored
	return nil
}

func (r bookingRepo) Update(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	prev, ok := r.s.bookings[booking.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	booking.UpdatedAt = time.Now()
	stored := cloneBooking(*booking)
	stored.Items = prev.Items
	r.s.bookings[booking.ID] = stored
	return nil
}

func (r bookingRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID uint, status models.BookingStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	b, ok := r.s.bookings[bookingID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Status = status
	r.s.bookings[bookingID] = b
	return nil
}

func (r bookingRepo) ReplaceItems(ctx context.Context, tx *gorm.DB, bookingID uint, items []models.BookingItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	b, ok := r.s.bookings[bookingID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Items = make([]models.BookingItem, len(items))
	for i, it := range items {
		it.ID = uint(i + 1)
		it.BookingID = bookingID
		b.Items[i] = it
	}
	r.s.bookings[bookingID] = b
	return nil
}

func (r bookingRepo) find(id uint) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := cloneBooking(b)
	return &c, nil
}

func (r bookingRepo) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	return r.find(id)
}

func (r bookingRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	return r.find(id)
}

func (r bookingRepo) FindActiveBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, b := range r.s.bookings {
		if overlaps(b, from, to) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (r bookingRepo) FindActiveByEmployee(ctx context.Context, tx *gorm.DB, employeeID uint, from, to time.Time) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Booking
	for _, b := range r.s.bookings {
		if b.EmployeeID == employeeID && overlaps(b, from, to) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (r bookingRepo) List(ctx context.Context, f repository.BookingFilter) ([]models.Booking, int64, error) {
	r.s.mu.Lock()
	var matched []models.Booking
	for _, b := range r.s.bookings {
		switch {
		case f.ClientID != nil && (b.ClientID == nil || *b.ClientID != *f.ClientID):
		case f.EmployeeID != nil && b.EmployeeID != *f.EmployeeID:
		case f.Status != nil && b.Status != *f.Status:
		case f.From != nil && b.ScheduledAt.Before(*f.From):
		case f.To != nil && !b.ScheduledAt.Before(*f.To):
		default:
			matched = append(matched, cloneBooking(b))
		}
	}
	r.s.mu.Unlock()

	slices.SortFunc(matched, func(a, b models.Booking) int {
		if c := b.ScheduledAt.Compare(a.ScheduledAt); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})

	page, size := repository.NormalizePage(f.Page, f.PageSize)
	total := int64(len(matched))
	start := (page - 1) * size
	if start >= len(matched) {
		return []models.Booking{}, total, nil
	}
	end := min(start+size, len(matched))
	return matched[start:end], total, nil
}
