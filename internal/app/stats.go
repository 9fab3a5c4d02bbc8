package service

import (
	"context"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/okian/penaltyhub/internal/domain/model"
	"github.com/okian/penaltyhub/internal/domain/stats"
)

// Stats derives statistics for the given players from closed matches and the
// ledger. With no names, every non-guest who played a closed match is
// included, sorted by name.
func (s *Service) Stats(ctx context.Context, names []string) ([]model.UserStats, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	history, txs, err := s.history(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		seen := mapset.NewThreadUnsafeSet[string]()
		for _, m := range history {
			for _, p := range m.Participants {
				if !p.IsGuest() {
					seen.Add(p.Name)
				}
			}
		}
		names = seen.ToSlice()
		slices.Sort(names)
	}
	return stats.Compute(names, history, txs), nil
}
