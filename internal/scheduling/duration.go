package scheduling

import "github.com/AngelAdrianVR/WashApp/internal/models"

// Catalog indexes bookable services by ID.
type Catalog map[uint]models.Service

func NewCatalog(services []models.Service) Catalog {
	c := make(Catalog, len(services))
	for _, s := range services {
		c[s.ID] = s
	}
	return c
}

// TotalDuration sums the duration of the selected services. Repeated IDs count once.
func TotalDuration(ids []uint, catalog Catalog) (int, error) {
	if len(ids) == 0 {
		return 0, ErrInvalidServiceSet
	}
	total := 0
	for _, id := range UniqueIDs(ids) {
		svc, ok := catalog[id]
		if !ok {
			return 0, ErrInvalidServiceSet
		}
		total += svc.DurationMinutes
	}
	return total, nil
}

// UniqueIDs drops repeated IDs while keeping first-seen order.
func UniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
