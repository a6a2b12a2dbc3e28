package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"recyclemart/internal/domain/marketplace"
	"recyclemart/internal/infra/api"
)

type CatalogAPI interface {
	ListAds(ctx context.Context, q marketplace.AdQuery) (marketplace.AdPage, error)
	Categories(ctx context.Context) ([]marketplace.Category, error)
}

// CatalogHandler proxies public catalog reads to the marketplace API.
type CatalogHandler struct {
	API    CatalogAPI
	Logger *slog.Logger
}

func (h CatalogHandler) Ads(c *gin.Context) {
	q := marketplace.AdQuery{
		Search:   strings.TrimSpace(c.Query("searchTerm")),
		Category: strings.TrimSpace(c.Query("category")),
		Location: strings.TrimSpace(c.Query("location")),
		MinPrice: parseFloat(c.Query("minPrice")),
		MaxPrice: parseFloat(c.Query("maxPrice")),
		Sort:     strings.TrimSpace(c.Query("sort")),
		Page:     parsePositiveIntStrict(c.Query("page"), 1),
		Limit:    parsePositiveIntStrict(c.Query("limit"), 20),
	}
	if q.MaxPrice > 0 && q.MinPrice > q.MaxPrice {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minPrice exceeds maxPrice"})
		return
	}
	page, err := h.API.ListAds(c.Request.Context(), q)
	if err != nil {
		h.respondAPIError(c, err, "list ads")
		return
	}
	items := page.Items
	if items == nil {
		items = []marketplace.Ad{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "meta": page.Meta, "hasNext": page.Meta.HasNext()})
}

func (h CatalogHandler) Categories(c *gin.Context) {
	items, err := h.API.Categories(c.Request.Context())
	if err != nil {
		h.respondAPIError(c, err, "list categories")
		return
	}
	if items == nil {
		items = []marketplace.Category{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h CatalogHandler) respondAPIError(c *gin.Context, err error, action string) {
	if h.Logger != nil {
		h.Logger.Error("api call failed", "action", action, "error", err)
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "marketplace unavailable"})
}

func parsePositiveIntStrict(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func parseFloat(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

var _ CatalogHTTP = CatalogHandler{}
