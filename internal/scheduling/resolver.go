package scheduling

import (
	"context"
	"slices"

	"github.com/AngelAdrianVR/WashApp/internal/models"
)

// BusyFunc answers whether an employee is occupied for the window being resolved.
type BusyFunc func(ctx context.Context, employeeID uint) (bool, error)

// EmployeeSelector picks one employee out of candidates already sorted by ascending ID.
type EmployeeSelector interface {
	Select(ctx context.Context, employees []models.User, busy BusyFunc) (*models.User, error)
}

// FirstFit returns the lowest-ID employee that is free. Work concentrates on
// the first free employee; there is no load balancing.
type FirstFit struct{}

func (FirstFit) Select(ctx context.Context, employees []models.User, busy BusyFunc) (*models.User, error) {
	for i := range employees {
		occupied, err := busy(ctx, employees[i].ID)
		if err != nil {
			return nil, err
		}
		if !occupied {
			return &employees[i], nil
		}
	}
	return nil, ErrNoAvailableEmployee
}

type Resolver struct {
	selector EmployeeSelector
}

func NewResolver(selector EmployeeSelector) *Resolver {
	if selector == nil {
		selector = FirstFit{}
	}
	return &Resolver{selector: selector}
}

// Resolve hands the active employees to the selector in ascending ID order.
func (r *Resolver) Resolve(ctx context.Context, employees []models.User, busy BusyFunc) (*models.User, error) {
	candidates := make([]models.User, 0, len(employees))
	for _, e := range employees {
		if e.Role == models.RoleEmployee && e.IsActive {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoAvailableEmployee
	}
	slices.SortFunc(candidates, func(a, b models.User) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return r.selector.Select(ctx, candidates, busy)
}

// SnapshotBusy checks employees against a prefetched set of bookings.
func SnapshotBusy(candidate Window, bookings []models.Booking, excludeID uint) BusyFunc {
	return func(_ context.Context, employeeID uint) (bool, error) {
		return IsBusy(employeeID, candidate, bookings, excludeID), nil
	}
}
