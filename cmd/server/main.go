package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/catalog"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/config"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/db"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/embedjobs"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/httpapi"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/store/rabbitmq"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	// Enqueue embeddings for products that still lack one. Non-fatal: the
	// catalog and cart still serve without the assistant's retrieval.
	if !cfg.IsTest() {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Printf("rabbit connect: %v (embedding sweep skipped)", err)
		} else {
			defer pub.Close()
			catalogSvc := catalog.NewService(catalog.NewRepo(gdb))
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				embedjobs.Sweep(ctx, catalogSvc, pub)
			}()
		}
	}

	router := httpapi.NewRouter(gdb, cfg, rds)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
