package catalog

import "github.com/Natanaelvich/ai-smart-marketplace/internal/vector"

type Store struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

func (Store) TableName() string { return "stores" }

// Product rows are immutable once created except for the embedding backfill.
type Product struct {
	ID        uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string           `gorm:"type:varchar(255);not null" json:"name"`
	Price     int64            `gorm:"not null" json:"price"` // minor currency units
	StoreID   uint64           `gorm:"index;not null" json:"store_id"`
	Embedding vector.Embedding `json:"embedding,omitempty"`
}

func (Product) TableName() string { return "products" }
