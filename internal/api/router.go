package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shop-assistant/internal/chat"
	apperrors "shop-assistant/internal/common/errors"
	"shop-assistant/internal/common/validation"
	"shop-assistant/internal/models"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Catalogue interface {
	Len() int
	Products() []models.ClientProduct
}

type ChatService interface {
	Handle(ctx context.Context, req chat.Request) (*models.ChatResponse, error)
}

type Options struct {
	AppName      string
	Version      string
	CORSOrigins  []string
	MaxBodyBytes int64
}

type Handler struct {
	catalogue Catalogue
	chat      ChatService
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	logger    Logger
	opts      Options
}

func NewHandler(catalogue Catalogue, chatService ChatService, log Logger, opts Options) *Handler {
	return &Handler{
		catalogue: catalogue,
		chat:      chatService,
		validator: validation.MustChatRequestValidator(),
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
		opts:      opts,
	}
}

// NewRouter wires middleware and routes onto a fresh engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(h.logger))
	r.Use(RequestID())
	r.Use(AccessLog(h.logger))
	r.Use(CORS(h.opts.CORSOrigins))

	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/products", h.Products)
		api.POST("/chat", BodyLimit(h.opts.MaxBodyBytes), h.Chat)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Not found"})
	})

	return r
}
