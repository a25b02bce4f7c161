package embedjobs

import "time"

type BatchStatus string

const (
	BatchSubmitted BatchStatus = "submitted"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// Batch tracks one provider-hosted embedding job from submission to the
// webhook that reports completion.
type Batch struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID

	InputFileID     string      `gorm:"type:varchar(64);not null" json:"input_file_id"`
	ProviderBatchID string      `gorm:"type:varchar(64);index;not null" json:"provider_batch_id"`
	Status          BatchStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	ProductCount    int         `gorm:"not null" json:"product_count"`

	// Filled when failed
	Error *string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Batch) TableName() string { return "embedding_batches" }
