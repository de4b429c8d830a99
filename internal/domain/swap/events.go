package swap

import (
	"time"

	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/user"
)

type Requested struct {
	RequestID   string            `json:"request_id"`
	RequesterID user.ID           `json:"requester_id"`
	OwnerID     user.ID           `json:"owner_id"`
	RequestedID catalog.ProductID `json:"requested_product_id"`
	OfferedID   catalog.ProductID `json:"offered_product_id"`
	At          time.Time         `json:"at"`
}

func (e Requested) EventName() string     { return "swap.requested" }
func (e Requested) AggregateID() string   { return e.RequestID }
func (e Requested) OccurredAt() time.Time { return e.At }

type StatusChanged struct {
	RequestID string    `json:"request_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	At        time.Time `json:"at"`
}

// EventName is derived from the target status, e.g. "swap.accepted".
func (e StatusChanged) EventName() string     { return "swap." + string(e.To) }
func (e StatusChanged) AggregateID() string   { return e.RequestID }
func (e StatusChanged) OccurredAt() time.Time { return e.At }
