package domain

import "strings"

// DraftAddressPrefix marks addresses created locally and not yet saved by
// the backend.
const DraftAddressPrefix = "new_"

type Address struct {
	ID      string `json:"_id,omitempty"`
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zip     string `json:"zip" validate:"required"`
	Default bool   `json:"default"`
}

func (a Address) IsDraft() bool {
	return a.ID == "" || strings.HasPrefix(a.ID, DraftAddressPrefix)
}

// User is the authenticated identity as returned by the auth endpoints. The
// token travels with it so a persisted user is a complete session.
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	Addresses []Address `json:"addresses"`
	Token     string    `json:"token,omitempty"`
}

// AddressByID returns the address with the given id.
func (u *User) AddressByID(id string) (Address, bool) {
	if u == nil {
		return Address{}, false
	}
	for _, a := range u.Addresses {
		if a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}
