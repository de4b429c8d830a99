package swap

import (
	"errors"
	"time"

	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/shared/daterange"
	"rentme-app/internal/domain/shared/events"
	"rentme-app/internal/domain/user"
)

var (
	ErrInvalidTransition = errors.New("swap: invalid status transition")
	ErrUnknownStatus     = errors.New("swap: unknown status")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// transitions is consulted only in strict mode. Nothing leads back to pending.
var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusDeclined, StatusCancelled, StatusCompleted},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether the lifecycle table allows from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Request is a barter proposal: the requester offers OfferedProduct in exchange for
// RequestedProduct. Owner is copied from RequestedProduct.Owner at creation.
type Request struct {
	ID               string               `json:"id"`
	RequestedProduct catalog.Product      `json:"requestedProduct"`
	OfferedProduct   catalog.Product      `json:"offeredProduct"`
	Requester        user.User            `json:"requester"`
	Owner            user.User            `json:"owner"`
	Status           Status               `json:"status"`
	Message          string               `json:"message,omitempty"`
	SwapDuration     *daterange.DateRange `json:"swapDuration,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        *time.Time           `json:"updatedAt,omitempty"`
	events.EventRecorder
}

type CreateParams struct {
	ID               string
	RequestedProduct catalog.Product
	OfferedProduct   catalog.Product
	Requester        user.User
	Message          string
	SwapDuration     *daterange.DateRange
	CreatedAt        time.Time
}

// New builds a pending request. No validation is applied; callers own input checks.
func New(params CreateParams) *Request {
	now := params.CreatedAt.UTC()
	r := &Request{
		ID:               params.ID,
		RequestedProduct: params.RequestedProduct.Clone(),
		OfferedProduct:   params.OfferedProduct.Clone(),
		Requester:        params.Requester.Clone(),
		Owner:            params.RequestedProduct.Owner.Clone(),
		Status:           StatusPending,
		Message:          params.Message,
		CreatedAt:        now,
	}
	if params.SwapDuration != nil {
		d := *params.SwapDuration
		r.SwapDuration = &d
	}
	r.Record(Requested{
		RequestID:   r.ID,
		RequesterID: r.Requester.ID,
		OwnerID:     r.Owner.ID,
		RequestedID: r.RequestedProduct.ID,
		OfferedID:   r.OfferedProduct.ID,
		At:          now,
	})
	return r
}

// Transition moves the request to the target status and stamps UpdatedAt.
// Without strict, any move is accepted, including one that repeats the current
// status. With strict, the lifecycle table is enforced and a repeat is a no-op.
func (r *Request) Transition(to Status, now time.Time, strict bool) error {
	if !to.Valid() {
		return ErrUnknownStatus
	}
	if strict {
		if r.Status == to {
			return nil
		}
		if !CanTransition(r.Status, to) {
			return ErrInvalidTransition
		}
	}
	from := r.Status
	at := now.UTC()
	r.Status = to
	r.UpdatedAt = &at
	r.Record(StatusChanged{RequestID: r.ID, From: from, To: to, At: at})
	return nil
}

// Involves reports whether the user is the requester or the owner.
func (r Request) Involves(id user.ID) bool {
	return r.Requester.ID == id || r.Owner.ID == id
}

// Clone returns a deep copy without pending events.
func (r Request) Clone() Request {
	out := r
	out.EventRecorder = events.EventRecorder{}
	out.RequestedProduct = r.RequestedProduct.Clone()
	out.OfferedProduct = r.OfferedProduct.Clone()
	out.Requester = r.Requester.Clone()
	out.Owner = r.Owner.Clone()
	if r.SwapDuration != nil {
		d := *r.SwapDuration
		out.SwapDuration = &d
	}
	if r.UpdatedAt != nil {
		t := *r.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}
