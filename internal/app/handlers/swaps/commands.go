package swaps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentme-app/internal/app/commands"
	swapstore "rentme-app/internal/app/swaps"
	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/swap"
)

const (
	createSwapKey       = "swaps.create"
	changeSwapStatusKey = "swaps.change_status"
	addItemKey          = "swaps.items.add"
	removeItemKey       = "swaps.items.remove"
)

var (
	ErrInvalidInput = errors.New("swaps: invalid input")
	ErrNotFound     = errors.New("swaps: not found")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

type CreateSwapCommand struct {
	Params swapstore.CreateParams
}

func (CreateSwapCommand) Key() string { return createSwapKey }

func (c CreateSwapCommand) Validate() error {
	p := c.Params
	if strings.TrimSpace(string(p.RequestedProduct.ID)) == "" {
		return invalid("requested product id is required")
	}
	if strings.TrimSpace(string(p.OfferedProduct.ID)) == "" {
		return invalid("offered product id is required")
	}
	if strings.TrimSpace(string(p.Requester.ID)) == "" {
		return invalid("requester id is required")
	}
	if strings.TrimSpace(string(p.RequestedProduct.Owner.ID)) == "" {
		return invalid("requested product owner is required")
	}
	if p.SwapDuration != nil {
		if err := p.SwapDuration.Validate(); err != nil {
			return invalid("swap duration: %v", err)
		}
	}
	return nil
}

type CreateSwapHandler struct {
	Store *swapstore.Store
}

func (h CreateSwapHandler) Handle(ctx context.Context, cmd CreateSwapCommand) (swap.Request, error) {
	return h.Store.CreateSwapRequest(ctx, cmd.Params), nil
}

// Action names a lifecycle step a participant can take on a request.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

type ChangeSwapStatusCommand struct {
	ID     string
	Action Action
}

func (ChangeSwapStatusCommand) Key() string { return changeSwapStatusKey }

func (c ChangeSwapStatusCommand) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return invalid("swap id is required")
	}
	switch c.Action {
	case ActionAccept, ActionDecline, ActionCancel, ActionComplete:
		return nil
	default:
		return invalid("unknown action %q", c.Action)
	}
}

type ChangeSwapStatusHandler struct {
	Store *swapstore.Store
}

func (h ChangeSwapStatusHandler) Handle(ctx context.Context, cmd ChangeSwapStatusCommand) (swap.Request, error) {
	if _, ok := h.Store.Request(cmd.ID); !ok {
		return swap.Request{}, ErrNotFound
	}
	var err error
	switch cmd.Action {
	case ActionAccept:
		err = h.Store.AcceptSwapRequest(ctx, cmd.ID)
	case ActionDecline:
		err = h.Store.DeclineSwapRequest(ctx, cmd.ID)
	case ActionCancel:
		err = h.Store.CancelSwapRequest(ctx, cmd.ID)
	case ActionComplete:
		err = h.Store.CompleteSwapRequest(ctx, cmd.ID)
	}
	if err != nil {
		return swap.Request{}, err
	}
	updated, _ := h.Store.Request(cmd.ID)
	return updated, nil
}

type AddSwappableItemCommand struct {
	Product catalog.Product
}

func (AddSwappableItemCommand) Key() string { return addItemKey }

func (c AddSwappableItemCommand) Validate() error {
	if strings.TrimSpace(string(c.Product.ID)) == "" {
		return invalid("product id is required")
	}
	if strings.TrimSpace(string(c.Product.Owner.ID)) == "" {
		return invalid("product owner is required")
	}
	return nil
}

type AddSwappableItemHandler struct {
	Store *swapstore.Store
}

func (h AddSwappableItemHandler) Handle(ctx context.Context, cmd AddSwappableItemCommand) (catalog.Product, error) {
	h.Store.AddSwappableItem(ctx, cmd.Product)
	return cmd.Product.Clone(), nil
}

type RemoveSwappableItemCommand struct {
	ID catalog.ProductID
}

func (RemoveSwappableItemCommand) Key() string { return removeItemKey }

func (c RemoveSwappableItemCommand) Validate() error {
	if strings.TrimSpace(string(c.ID)) == "" {
		return invalid("product id is required")
	}
	return nil
}

type RemoveSwappableItemHandler struct {
	Store *swapstore.Store
}

func (h RemoveSwappableItemHandler) Handle(ctx context.Context, cmd RemoveSwappableItemCommand) (bool, error) {
	if !h.Store.RemoveSwappableItem(ctx, cmd.ID) {
		return false, ErrNotFound
	}
	return true, nil
}

var (
	_ commands.Handler[CreateSwapCommand, swap.Request]          = CreateSwapHandler{}
	_ commands.Handler[ChangeSwapStatusCommand, swap.Request]    = ChangeSwapStatusHandler{}
	_ commands.Handler[AddSwappableItemCommand, catalog.Product] = AddSwappableItemHandler{}
	_ commands.Handler[RemoveSwappableItemCommand, bool]         = RemoveSwappableItemHandler{}
)
