package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/ai"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/catalog"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/common"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/config"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/db"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/embedjobs"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/store/rabbitmq"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	catalogSvc := catalog.NewService(catalog.NewRepo(gdb))
	batches := embedjobs.NewRepo(gdb)

	provider := ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIEmbedModel)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m rabbitmq.EmbedJobMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || len(m.ProductIDs) == 0 {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleJob(ctx, catalogSvc, provider, batches, m.ProductIDs); err != nil {
					log.Printf("worker=%d embed batch failed products=%d cost=%s err=%v",
						workerID, len(m.ProductIDs), time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed products=%d err=%v", workerID, len(m.ProductIDs), err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

// handleJob submits one provider-hosted embedding batch for the given
// products and records it so the completion webhook can match it later.
func handleJob(ctx context.Context, catalogSvc *catalog.Service, provider *ai.OpenAIProvider, batches *embedjobs.Repo, productIDs []uint64) error {
	products, err := catalogSvc.ListByIDs(ctx, productIDs)
	if err != nil {
		return err
	}

	// Products already embedded since the job was published are skipped.
	items := make([]ai.BatchInput, 0, len(products))
	for _, p := range products {
		if len(p.Embedding) > 0 {
			continue
		}
		items = append(items, ai.BatchInput{ProductID: p.ID, Text: p.Name})
	}
	if len(items) == 0 {
		log.Printf("embed batch: nothing left to embed, products=%d", len(productIDs))
		return nil
	}

	id, err := common.NewULID()
	if err != nil {
		return err
	}
	record := &embedjobs.Batch{
		ID:           id,
		Status:       embedjobs.BatchSubmitted,
		ProductCount: len(items),
	}

	sub, err := provider.SubmitEmbeddingBatch(ctx, items)
	if err != nil {
		record.Status = embedjobs.BatchFailed
		msg := err.Error()
		record.Error = &msg
		if createErr := batches.Create(ctx, record); createErr != nil {
			log.Printf("embed batch: record failed submission: %v", createErr)
		}
		return err
	}

	record.InputFileID = sub.InputFileID
	record.ProviderBatchID = sub.BatchID
	if err := batches.Create(ctx, record); err != nil {
		return err
	}

	log.Printf("embed batch submitted, batch=%s provider_batch=%s products=%d",
		record.ID, sub.BatchID, len(items))
	return nil
}
