package embedjobs

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, b *Batch) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// MarkCompletedByProviderID flips every row tracking the provider batch.
// Unknown provider ids are a no-op: the webhook may report batches submitted
// by another deployment.
func (r *Repo) MarkCompletedByProviderID(ctx context.Context, providerBatchID string) error {
	return r.db.WithContext(ctx).Model(&Batch{}).
		Where("provider_batch_id = ? AND status = ?", providerBatchID, BatchSubmitted).
		Update("status", BatchCompleted).Error
}

func (r *Repo) MarkFailed(ctx context.Context, id, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Batch{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": BatchFailed,
			"error":  errMsg,
		}).Error
}
