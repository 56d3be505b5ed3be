package pos

import (
	"context"

	"restaurant-pos/internal/models"
)

// ListStations reports the kitchen stations. An online station that has
// missed its heartbeats is shown offline.
func (s *Service) ListStations(ctx context.Context) ([]models.KitchenStation, error) {
	stations, err := s.store.ListStations(ctx)
	if err != nil {
		return nil, wrapf(err, "failed to list stations")
	}
	now := s.now()
	for i := range stations {
		if stations[i].Status == models.StationOnline && !stations[i].Live(now) {
			stations[i].Status = models.StationOffline
		}
	}
	return stations, nil
}
