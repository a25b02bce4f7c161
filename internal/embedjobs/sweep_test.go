package embedjobs

import (
	"context"
	"errors"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/catalog"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/vector"
)

type fakePublisher struct {
	published [][]uint64
	err       error
}

func (f *fakePublisher) PublishEmbedJob(ctx context.Context, productIDs []uint64) error {
	_ = ctx
	f.published = append(f.published, productIDs)
	return f.err
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&catalog.Store{}, &catalog.Product{}, &Batch{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestSweep_PublishesPendingProducts(t *testing.T) {
	db := openTestDB(t)
	store := catalog.Store{Name: "Loja"}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	pending := catalog.Product{Name: "pending", Price: 1, StoreID: store.ID}
	embedded := catalog.Product{Name: "done", Price: 1, StoreID: store.ID, Embedding: vector.Embedding{1, 0}}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if err := db.Create(&embedded).Error; err != nil {
		t.Fatalf("create embedded: %v", err)
	}

	pub := &fakePublisher{}
	Sweep(context.Background(), catalog.NewService(catalog.NewRepo(db)), pub)

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.published))
	}
	if len(pub.published[0]) != 1 || pub.published[0][0] != pending.ID {
		t.Fatalf("expected only the pending product, got %v", pub.published[0])
	}
}

func TestSweep_NothingToEmbed(t *testing.T) {
	db := openTestDB(t)

	pub := &fakePublisher{}
	Sweep(context.Background(), catalog.NewService(catalog.NewRepo(db)), pub)

	if len(pub.published) != 0 {
		t.Fatalf("expected no publishes, got %d", len(pub.published))
	}
}

func TestSweep_PublishFailureDoesNotPanic(t *testing.T) {
	db := openTestDB(t)
	store := catalog.Store{Name: "Loja"}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("create store: %v", err)
	}
	if err := db.Create(&catalog.Product{Name: "pending", Price: 1, StoreID: store.ID}).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	pub := &fakePublisher{err: errors.New("broker down")}
	Sweep(context.Background(), catalog.NewService(catalog.NewRepo(db)), pub)
}

func TestRepo_StatusTransitions(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	b := &Batch{
		ID:              "01TESTBATCHULID0000000000A",
		InputFileID:     "file_1",
		ProviderBatchID: "batch_1",
		Status:          BatchSubmitted,
		ProductCount:    3,
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.MarkCompletedByProviderID(ctx, "batch_1"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	var got Batch
	if err := db.First(&got, "id = ?", b.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != BatchCompleted {
		t.Fatalf("expected completed, got %q", got.Status)
	}

	// A second completion for the same provider batch is a no-op.
	if err := repo.MarkCompletedByProviderID(ctx, "batch_1"); err != nil {
		t.Fatalf("re-mark completed: %v", err)
	}

	// Unknown provider batches are ignored.
	if err := repo.MarkCompletedByProviderID(ctx, "batch_unknown"); err != nil {
		t.Fatalf("unknown batch: %v", err)
	}

	f := &Batch{ID: "01TESTBATCHULID0000000000B", InputFileID: "file_2", ProviderBatchID: "batch_2", Status: BatchSubmitted}
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if err := repo.MarkFailed(ctx, f.ID, "upload rejected"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got = Batch{}
	if err := db.First(&got, "id = ?", f.ID).Error; err != nil {
		t.Fatalf("reload failed batch: %v", err)
	}
	if got.Status != BatchFailed || got.Error == nil || *got.Error != "upload rejected" {
		t.Fatalf("unexpected failed batch: %+v", got)
	}
}
