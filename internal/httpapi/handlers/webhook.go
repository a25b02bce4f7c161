package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/ai"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/observability"
)

// OpenAIWebhook receives provider events. Completed embedding batches have
// their output fetched and applied to product rows by id.
func (h *Handler) OpenAIWebhook(c *gin.Context) {
	log := observability.Logger()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		fail(c, http.StatusBadRequest, "unreadable body")
		return
	}

	event, err := ai.VerifyWebhook(h.Cfg.OpenAIWebhookSecret, c.Request.Header, body)
	if err != nil {
		if errors.Is(err, ai.ErrInvalidWebhook) {
			fail(c, http.StatusUnauthorized, "invalid signature")
			return
		}
		fail(c, http.StatusBadRequest, "bad payload")
		return
	}

	// The provider retries deliveries; process each event once.
	if h.Redis != nil {
		first, err := h.Redis.MarkEventProcessed(c.Request.Context(), event.ID)
		if err != nil {
			log.Error("webhook dedupe", "err", err, "event", event.ID)
		} else if !first {
			c.JSON(http.StatusOK, gin.H{"ok": true, "duplicate": true})
			return
		}
	}

	if event.Type != "batch.completed" {
		log.Info("webhook ignored", "type", event.Type, "event", event.ID)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	results, err := h.LLM.RetrieveBatchEmbeddings(c.Request.Context(), event.Data.ID)
	if err != nil {
		log.Error("webhook batch retrieve", "err", err, "batch", event.Data.ID)
		fail(c, http.StatusBadGateway, "failed to retrieve batch output")
		return
	}

	applied := 0
	for _, r := range results {
		if err := h.CatalogSvc.UpdateEmbedding(c.Request.Context(), r.ProductID, r.Embedding); err != nil {
			log.Error("webhook embedding update", "err", err, "product", r.ProductID)
			continue
		}
		applied++
	}

	if err := h.Batches.MarkCompletedByProviderID(c.Request.Context(), event.Data.ID); err != nil {
		log.Error("webhook batch status", "err", err, "batch", event.Data.ID)
	}

	log.Info("webhook batch applied", "batch", event.Data.ID, "embeddings", applied)
	c.JSON(http.StatusOK, gin.H{"ok": true, "applied": applied})
}
