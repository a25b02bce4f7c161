package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/vector"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

type productRow struct {
	ID        uint64
	Name      string
	Price     int64
	Embedding vector.Embedding
	StoreID   uint64
	StoreName string
}

// ListProducts returns products joined with their store. A non-empty search
// narrows by case-insensitive substring match on the product name. Products
// without a resolvable store are excluded.
func (r *Repo) ListProducts(ctx context.Context, search string) ([]productRow, error) {
	q := r.db.WithContext(ctx).
		Table("products").
		Select("products.id, products.name, products.price, products.embedding, stores.id AS store_id, stores.name AS store_name").
		Joins("INNER JOIN stores ON stores.id = products.store_id")

	if search != "" {
		q = q.Where("LOWER(products.name) LIKE LOWER(?)", "%"+search+"%")
	}

	var rows []productRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type statsRow struct {
	StoreID       uint64
	StoreName     string
	TotalProducts int64
	MinPrice      *int64
	MaxPrice      *int64
	AvgPrice      *float64
}

// ProductStats aggregates per store; stores with no products still appear.
func (r *Repo) ProductStats(ctx context.Context) ([]statsRow, error) {
	var rows []statsRow
	err := r.db.WithContext(ctx).
		Table("stores").
		Select("stores.id AS store_id, stores.name AS store_name, COUNT(products.id) AS total_products, MIN(products.price) AS min_price, MAX(products.price) AS max_price, AVG(products.price) AS avg_price").
		Joins("LEFT JOIN products ON products.store_id = stores.id").
		Group("stores.id, stores.name").
		Order("COUNT(products.id) DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repo) ProductsByPrice(ctx context.Context, ascending bool) ([]productRow, error) {
	order := "products.price DESC"
	if ascending {
		order = "products.price ASC"
	}
	var rows []productRow
	err := r.db.WithContext(ctx).
		Table("products").
		Select("products.id, products.name, products.price, stores.id AS store_id, stores.name AS store_name").
		Joins("INNER JOIN stores ON stores.id = products.store_id").
		Order(order).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type SimilarProduct struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	StoreID uint64 `json:"store_id"`
}

// FindSimilar returns products whose embedding distance to the query is
// strictly below threshold. On postgres the pgvector cosine operator does the
// work; on other dialects the distance is computed in process so the exact
// cutoff semantics hold everywhere.
func (r *Repo) FindSimilar(ctx context.Context, emb vector.Embedding, threshold float64) ([]SimilarProduct, error) {
	if r.db.Dialector.Name() == "postgres" {
		lit, err := emb.Value()
		if err != nil {
			return nil, err
		}
		var rows []SimilarProduct
		err = r.db.WithContext(ctx).
			Raw(`SELECT id, name, price, store_id FROM products
			     WHERE embedding IS NOT NULL AND embedding <=> ?::vector < ?
			     ORDER BY embedding <=> ?::vector`, lit, threshold, lit).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		return rows, nil
	}

	var products []Product
	if err := r.db.WithContext(ctx).
		Where("embedding IS NOT NULL").
		Find(&products).Error; err != nil {
		return nil, err
	}
	var rows []SimilarProduct
	for _, p := range products {
		if vector.CosineDistance(emb, p.Embedding) < threshold {
			rows = append(rows, SimilarProduct{ID: p.ID, Name: p.Name, Price: p.Price, StoreID: p.StoreID})
		}
	}
	return rows, nil
}

// ListWithoutEmbedding feeds the startup batch-embedding sweep.
func (r *Repo) ListWithoutEmbedding(ctx context.Context) ([]Product, error) {
	var products []Product
	err := r.db.WithContext(ctx).
		Select("id, name, price, store_id").
		Where("embedding IS NULL").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *Repo) ListByIDs(ctx context.Context, ids []uint64) ([]Product, error) {
	var products []Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateEmbedding backfills a single product embedding (webhook path).
func (r *Repo) UpdateEmbedding(ctx context.Context, productID uint64, emb vector.Embedding) error {
	return r.db.WithContext(ctx).Model(&Product{}).
		Where("id = ?", productID).
		Update("embedding", emb).Error
}
