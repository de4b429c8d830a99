package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentme-app/internal/app/commands"
	"rentme-app/internal/app/dto"
	swaphandlers "rentme-app/internal/app/handlers/swaps"
	"rentme-app/internal/app/queries"
	swapstore "rentme-app/internal/app/swaps"
	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/swap"
	"rentme-app/internal/domain/user"
)

type SwapHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h SwapHandler) List(c *gin.Context) {
	q := swaphandlers.ListSwapsQuery{
		UserID: user.ID(strings.TrimSpace(c.Query("user_id"))),
		Status: swap.Status(strings.TrimSpace(c.Query("status"))),
	}
	items, err := queries.Ask[swaphandlers.ListSwapsQuery, []swap.Request](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err, "list swaps")
		return
	}
	if items == nil {
		items = []swap.Request{}
	}
	c.JSON(http.StatusOK, dto.SwapList{Items: items})
}

func (h SwapHandler) Create(c *gin.Context) {
	var req dto.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := swaphandlers.CreateSwapCommand{Params: swapstore.CreateParams{
		RequestedProduct: req.RequestedProduct,
		OfferedProduct:   req.OfferedProduct,
		Requester:        req.Requester,
		Message:          req.Message,
		SwapDuration:     req.SwapDuration,
	}}
	created, err := commands.Dispatch[swaphandlers.CreateSwapCommand, swap.Request](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err, "create swap")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h SwapHandler) Get(c *gin.Context) {
	r, err := queries.Ask[swaphandlers.GetSwapQuery, swap.Request](c.Request.Context(), h.Queries, swaphandlers.GetSwapQuery{ID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err, "get swap", "swap_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h SwapHandler) Accept(c *gin.Context)   { h.changeStatus(c, swaphandlers.ActionAccept) }
func (h SwapHandler) Decline(c *gin.Context)  { h.changeStatus(c, swaphandlers.ActionDecline) }
func (h SwapHandler) Cancel(c *gin.Context)   { h.changeStatus(c, swaphandlers.ActionCancel) }
func (h SwapHandler) Complete(c *gin.Context) { h.changeStatus(c, swaphandlers.ActionComplete) }

func (h SwapHandler) changeStatus(c *gin.Context, action swaphandlers.Action) {
	cmd := swaphandlers.ChangeSwapStatusCommand{ID: c.Param("id"), Action: action}
	updated, err := commands.Dispatch[swaphandlers.ChangeSwapStatusCommand, swap.Request](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err, "change swap status", "swap_id", cmd.ID, "action", action)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h SwapHandler) Stats(c *gin.Context) {
	q := swaphandlers.SwapStatsQuery{UserID: user.ID(c.Param("userID"))}
	stats, err := queries.Ask[swaphandlers.SwapStatsQuery, swapstore.Stats](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err, "swap stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h SwapHandler) Items(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := swaphandlers.SwappableItemsQuery{UserID: user.ID(strings.TrimSpace(c.Query("user_id"))), Filter: filter}
	items, err := queries.Ask[swaphandlers.SwappableItemsQuery, []catalog.Product](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err, "list swappable items")
		return
	}
	if items == nil {
		items = []catalog.Product{}
	}
	c.JSON(http.StatusOK, dto.ProductList{Items: items})
}

func (h SwapHandler) AddItem(c *gin.Context) {
	var p catalog.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := commands.Dispatch[swaphandlers.AddSwappableItemCommand, catalog.Product](c.Request.Context(), h.Commands,
		swaphandlers.AddSwappableItemCommand{Product: p})
	if err != nil {
		respondError(c, h.Logger, err, "add swappable item")
		return
	}
	c.JSON(http.StatusCreated, added)
}

func (h SwapHandler) RemoveItem(c *gin.Context) {
	cmd := swaphandlers.RemoveSwappableItemCommand{ID: catalog.ProductID(c.Param("id"))}
	if _, err := commands.Dispatch[swaphandlers.RemoveSwappableItemCommand, bool](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err, "remove swappable item", "product_id", cmd.ID)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseFilter reads catalog filter criteria from the query string.
func parseFilter(c *gin.Context) (catalog.FilterOptions, error) {
	opts := catalog.FilterOptions{
		Query:      strings.TrimSpace(c.Query("q")),
		Categories: c.QueryArray("category"),
	}
	for _, raw := range c.QueryArray("condition") {
		opts.Conditions = append(opts.Conditions, catalog.Condition(raw))
	}
	minPrice, err := parseFloat(c.Query("min_price"))
	if err != nil {
		return opts, fmt.Errorf("min_price: %w", err)
	}
	maxPrice, err := parseFloat(c.Query("max_price"))
	if err != nil {
		return opts, fmt.Errorf("max_price: %w", err)
	}
	if minPrice > 0 || maxPrice > 0 {
		opts.PriceRange = &catalog.PriceRange{Min: minPrice, Max: maxPrice}
	}
	if opts.Rating, err = parseFloat(c.Query("rating")); err != nil {
		return opts, fmt.Errorf("rating: %w", err)
	}
	if opts.SwapOnly, err = parseBool(c.Query("swap_only")); err != nil {
		return opts, fmt.Errorf("swap_only: %w", err)
	}
	if opts.RentalOnly, err = parseBool(c.Query("rental_only")); err != nil {
		return opts, fmt.Errorf("rental_only: %w", err)
	}
	if opts.Available, err = parseBool(c.Query("available")); err != nil {
		return opts, fmt.Errorf("available: %w", err)
	}
	return opts, nil
}

func parseFloat(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseBool(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

var _ SwapHTTP = SwapHandler{}
