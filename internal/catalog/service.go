package catalog

import (
	"context"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/vector"
)

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

type StoreRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type CatalogProduct struct {
	ID        uint64           `json:"id"`
	Name      string           `json:"name"`
	Price     int64            `json:"price"`
	Embedding vector.Embedding `json:"embedding,omitempty"`
	Store     StoreRef         `json:"store"`
}

func (s *Service) GetCatalog(ctx context.Context, search string) ([]CatalogProduct, error) {
	rows, err := s.repo.ListProducts(ctx, search)
	if err != nil {
		return nil, err
	}
	out := make([]CatalogProduct, 0, len(rows))
	for _, row := range rows {
		out = append(out, CatalogProduct{
			ID:        row.ID,
			Name:      row.Name,
			Price:     row.Price,
			Embedding: row.Embedding,
			Store:     StoreRef{ID: row.StoreID, Name: row.StoreName},
		})
	}
	return out, nil
}

type StoreStats struct {
	Store         StoreRef `json:"store"`
	TotalProducts int64    `json:"total_products"`
	MinPrice      *int64   `json:"min_price"`
	MaxPrice      *int64   `json:"max_price"`
	AvgPrice      *float64 `json:"avg_price"`
}

func (s *Service) GetProductStats(ctx context.Context) ([]StoreStats, error) {
	rows, err := s.repo.ProductStats(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StoreStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, StoreStats{
			Store:         StoreRef{ID: row.StoreID, Name: row.StoreName},
			TotalProducts: row.TotalProducts,
			MinPrice:      row.MinPrice,
			MaxPrice:      row.MaxPrice,
			AvgPrice:      row.AvgPrice,
		})
	}
	return out, nil
}

func (s *Service) GetProductsByPrice(ctx context.Context, ascending bool) ([]CatalogProduct, error) {
	rows, err := s.repo.ProductsByPrice(ctx, ascending)
	if err != nil {
		return nil, err
	}
	out := make([]CatalogProduct, 0, len(rows))
	for _, row := range rows {
		out = append(out, CatalogProduct{
			ID:    row.ID,
			Name:  row.Name,
			Price: row.Price,
			Store: StoreRef{ID: row.StoreID, Name: row.StoreName},
		})
	}
	return out, nil
}

type StoreProducts struct {
	StoreID  uint64
	Products []SimilarProduct
}

// FindSimilarByStore retrieves products within the distance threshold and
// groups them by owning store, preserving retrieval order within each group.
func (s *Service) FindSimilarByStore(ctx context.Context, emb vector.Embedding, threshold float64) ([]StoreProducts, error) {
	rows, err := s.repo.FindSimilar(ctx, emb, threshold)
	if err != nil {
		return nil, err
	}
	byStore := make(map[uint64]int)
	var groups []StoreProducts
	for _, row := range rows {
		idx, ok := byStore[row.StoreID]
		if !ok {
			idx = len(groups)
			byStore[row.StoreID] = idx
			groups = append(groups, StoreProducts{StoreID: row.StoreID})
		}
		groups[idx].Products = append(groups[idx].Products, row)
	}
	return groups, nil
}

func (s *Service) ListWithoutEmbedding(ctx context.Context) ([]Product, error) {
	return s.repo.ListWithoutEmbedding(ctx)
}

func (s *Service) ListByIDs(ctx context.Context, ids []uint64) ([]Product, error) {
	return s.repo.ListByIDs(ctx, ids)
}

func (s *Service) UpdateEmbedding(ctx context.Context, productID uint64, emb vector.Embedding) error {
	return s.repo.UpdateEmbedding(ctx, productID, emb)
}
