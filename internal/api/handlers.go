package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shop-assistant/internal/chat"
	apperrors "shop-assistant/internal/common/errors"
	"shop-assistant/internal/models"
)

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": h.opts.AppName,
		"version": h.opts.Version,
		"status":  "running",
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{OK: true, Products: h.catalogue.Len()})
}

func (h *Handler) Products(c *gin.Context) {
	products := h.catalogue.Products()
	c.JSON(http.StatusOK, models.ProductsResponse{Count: len(products), Products: products})
}

func (h *Handler) Chat(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errors.Respond(c, apperrors.NewPayloadTooLargeError(tooLarge.Limit))
			return
		}
		h.errors.Respond(c, apperrors.NewInvalidRequestError(err.Error()))
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}

	if res := h.validator.ValidateBytes(body); !res.Valid {
		h.errors.Respond(c, apperrors.NewInvalidRequestError(res.Summary()))
		return
	}

	var req models.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.errors.Respond(c, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	resp, err := h.chat.Handle(c.Request.Context(), chat.Request{
		Messages:  req.Messages,
		Context:   req.Context,
		Strict:    req.Strict,
		Origin:    requestOrigin(c.Request),
		RequestID: c.GetString(ctxRequestID),
	})
	if err != nil {
		h.errors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// requestOrigin names the site the assistant speaks for: the Origin header,
// else the Host.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return r.Host
}
