package dto

import (
	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/shared/daterange"
	"rentme-app/internal/domain/swap"
	"rentme-app/internal/domain/user"
)

type CreateSwapRequest struct {
	RequestedProduct catalog.Product      `json:"requestedProduct"`
	OfferedProduct   catalog.Product      `json:"offeredProduct"`
	Requester        user.User            `json:"requester"`
	Message          string               `json:"message,omitempty"`
	SwapDuration     *daterange.DateRange `json:"swapDuration,omitempty"`
}

type SwapList struct {
	Items []swap.Request `json:"items"`
}

type ProductList struct {
	Items []catalog.Product `json:"items"`
}
