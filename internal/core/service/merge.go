package service

import "github.com/niksmo/prodmng/internal/core/domain"

// Merge builds the merged view: every snapshot product in snapshot order,
// followed by the overlay products whose id the snapshot does not know,
// in overlay order. The snapshot wins on id collisions.
func Merge(snapshot, overlay []domain.Product) []domain.Product {
	remote := domain.IDSet(snapshot)

	merged := make([]domain.Product, 0, len(snapshot)+len(overlay))
	merged = append(merged, snapshot...)
	for _, p := range overlay {
		if _, ok := remote[p.ID]; ok {
			continue
		}
		merged = append(merged, p)
	}
	return merged
}
