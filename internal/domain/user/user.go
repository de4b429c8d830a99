package user

import (
	"strings"
	"time"
)

type ID string

// Type describes how a member uses the marketplace.
type Type string

const (
	TypeRenter Type = "renter"
	TypeOwner  Type = "owner"
	TypeBoth   Type = "both"
)

func (t Type) Valid() bool {
	switch t {
	case TypeRenter, TypeOwner, TypeBoth:
		return true
	default:
		return false
	}
}

// User is a member profile. Products, swap requests and chats embed copies of it,
// so a snapshot held elsewhere may lag behind the session's live record.
type User struct {
	ID         ID        `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Location   string    `json:"location,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	UserType   Type      `json:"userType"`
	Verified   bool      `json:"verified"`
	Rating     float64   `json:"rating"`
	JoinedDate time.Time `json:"joinedDate"`
	SwapCount  *int      `json:"swapCount,omitempty"`
	RentCount  *int      `json:"rentCount,omitempty"`
}

// Patch carries a partial profile update. Nil fields are left untouched.
type Patch struct {
	Name      *string  `json:"name,omitempty"`
	Email     *string  `json:"email,omitempty"`
	Phone     *string  `json:"phone,omitempty"`
	Location  *string  `json:"location,omitempty"`
	Avatar    *string  `json:"avatar,omitempty"`
	UserType  *Type    `json:"userType,omitempty"`
	Verified  *bool    `json:"verified,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	SwapCount *int     `json:"swapCount,omitempty"`
	RentCount *int     `json:"rentCount,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Apply returns a copy of u with the patch merged in. The id is never patched.
func (u User) Apply(p Patch) User {
	out := u
	if p.Name != nil {
		out.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		out.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.Phone != nil {
		out.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.Avatar != nil {
		out.Avatar = *p.Avatar
	}
	if p.UserType != nil {
		out.UserType = *p.UserType
	}
	if p.Verified != nil {
		out.Verified = *p.Verified
	}
	if p.Rating != nil {
		out.Rating = *p.Rating
	}
	if p.SwapCount != nil {
		v := *p.SwapCount
		out.SwapCount = &v
	}
	if p.RentCount != nil {
		v := *p.RentCount
		out.RentCount = &v
	}
	return out
}

// Clone returns a copy that shares no pointers with u.
func (u User) Clone() User {
	out := u
	if u.SwapCount != nil {
		v := *u.SwapCount
		out.SwapCount = &v
	}
	if u.RentCount != nil {
		v := *u.RentCount
		out.RentCount = &v
	}
	return out
}
