package embedjobs

import (
	"context"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/catalog"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/observability"
)

// Publisher enqueues product ids for batch embedding.
type Publisher interface {
	PublishEmbedJob(ctx context.Context, productIDs []uint64) error
}

// Sweep finds products that still lack an embedding and enqueues them for
// batch embedding. Fire and forget: failures are logged, request serving is
// never blocked on the sweep.
func Sweep(ctx context.Context, catalogSvc *catalog.Service, pub Publisher) {
	log := observability.Logger()

	products, err := catalogSvc.ListWithoutEmbedding(ctx)
	if err != nil {
		log.Error("embedding sweep: list products", "err", err)
		return
	}
	if len(products) == 0 {
		log.Info("embedding sweep: nothing to embed")
		return
	}

	ids := make([]uint64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	if err := pub.PublishEmbedJob(ctx, ids); err != nil {
		log.Error("embedding sweep: publish", "err", err, "products", len(ids))
		return
	}
	log.Info("embedding sweep: job published", "products", len(ids))
}
