package swaps

import (
	"context"
	"strings"

	"rentme-app/internal/app/queries"
	swapstore "rentme-app/internal/app/swaps"
	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/swap"
	"rentme-app/internal/domain/user"
)

const (
	listSwapsKey     = "swaps.list"
	getSwapKey       = "swaps.get"
	swapStatsKey     = "swaps.stats"
	swappableItemKey = "swaps.items.list"
)

// ListSwapsQuery lists requests, optionally narrowed to a participant and a status.
type ListSwapsQuery struct {
	UserID user.ID
	Status swap.Status
}

func (ListSwapsQuery) Key() string { return listSwapsKey }

func (q ListSwapsQuery) Validate() error {
	if q.Status != "" && !q.Status.Valid() {
		return invalid("unknown status %q", q.Status)
	}
	return nil
}

type ListSwapsHandler struct {
	Store *swapstore.Store
}

func (h ListSwapsHandler) Handle(_ context.Context, q ListSwapsQuery) ([]swap.Request, error) {
	var list []swap.Request
	switch {
	case q.UserID != "":
		list = h.Store.ForUser(q.UserID)
	case q.Status != "":
		return h.Store.ByStatus(q.Status), nil
	default:
		list = h.Store.Snapshot().SwapRequests
	}
	if q.Status == "" {
		return list, nil
	}
	out := list[:0]
	for _, r := range list {
		if r.Status == q.Status {
			out = append(out, r)
		}
	}
	return out, nil
}

type GetSwapQuery struct {
	ID string
}

func (GetSwapQuery) Key() string { return getSwapKey }

type GetSwapHandler struct {
	Store *swapstore.Store
}

func (h GetSwapHandler) Handle(_ context.Context, q GetSwapQuery) (swap.Request, error) {
	r, ok := h.Store.Request(q.ID)
	if !ok {
		return swap.Request{}, ErrNotFound
	}
	return r, nil
}

type SwapStatsQuery struct {
	UserID user.ID
}

func (SwapStatsQuery) Key() string { return swapStatsKey }

func (q SwapStatsQuery) Validate() error {
	if strings.TrimSpace(string(q.UserID)) == "" {
		return invalid("user id is required")
	}
	return nil
}

type SwapStatsHandler struct {
	Store *swapstore.Store
}

func (h SwapStatsHandler) Handle(_ context.Context, q SwapStatsQuery) (swapstore.Stats, error) {
	return h.Store.Stats(q.UserID), nil
}

// SwappableItemsQuery lists a user's swappable items that pass Filter.
type SwappableItemsQuery struct {
	UserID user.ID
	Filter catalog.FilterOptions
}

func (SwappableItemsQuery) Key() string { return swappableItemKey }

func (q SwappableItemsQuery) Validate() error {
	if strings.TrimSpace(string(q.UserID)) == "" {
		return invalid("user id is required")
	}
	return nil
}

type SwappableItemsHandler struct {
	Store *swapstore.Store
}

func (h SwappableItemsHandler) Handle(_ context.Context, q SwappableItemsQuery) ([]catalog.Product, error) {
	return catalog.Filter(h.Store.SwappableItems(q.UserID), q.Filter), nil
}

var (
	_ queries.Handler[ListSwapsQuery, []swap.Request]         = ListSwapsHandler{}
	_ queries.Handler[GetSwapQuery, swap.Request]             = GetSwapHandler{}
	_ queries.Handler[SwapStatsQuery, swapstore.Stats]        = SwapStatsHandler{}
	_ queries.Handler[SwappableItemsQuery, []catalog.Product] = SwappableItemsHandler{}
)
