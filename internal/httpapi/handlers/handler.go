package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/ai"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/cart"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/catalog"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/chat"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/common"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/config"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/embedjobs"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/httpapi/middleware"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/store/redisstore"
)

type Handler struct {
	DB         *gorm.DB
	Cfg        config.Config
	Redis      *redisstore.Store
	LLM        *ai.OpenAIProvider
	CartSvc    *cart.Service
	CatalogSvc *catalog.Service
	ChatSvc    *chat.Service
	Batches    *embedjobs.Repo
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store) *Handler {
	provider := ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIEmbedModel)

	catalogSvc := catalog.NewService(catalog.NewRepo(db))
	cartSvc := cart.NewService(cart.NewRepo(db))
	chatSvc := chat.NewService(
		chat.NewRepo(db),
		cartSvc,
		catalogSvc,
		provider, // classifier
		provider, // cart suggester
		provider, // embedder
		cfg.SimilarityThreshold,
		cfg.ChatContextWindowSize,
	)

	return &Handler{
		DB:         db,
		Cfg:        cfg,
		Redis:      rds,
		LLM:        provider,
		CartSvc:    cartSvc,
		CatalogSvc: catalogSvc,
		ChatSvc:    chatSvc,
		Batches:    embedjobs.NewRepo(db),
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// failErr maps the domain error taxonomy onto status codes.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrConflict):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrGateway):
		fail(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, common.ErrUnsupportedAction):
		fail(c, http.StatusInternalServerError, err.Error())
	default:
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
