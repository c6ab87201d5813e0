package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Owner identifies who a cart belongs to: a registered user or a guest.
type Owner struct {
	UserID  uint
	GuestID string
}

func UserOwner(id uint) Owner { return Owner{UserID: id} }
func GuestOwner(id string) Owner { return Owner{GuestID: strings.TrimSpace(id)} }
func (o Owner) IsGuest() bool { return o.UserID == 0 }
func (o Owner) Valid() bool { return (o.UserID != 0) != (o.GuestID != "") }

func (o Owner) Key() string {
	if o.IsGuest() {
		return "guest:" + o.GuestID
	}
	return "user:" + strconv.FormatUint(uint64(o.UserID), 10)
}

func (o Owner) Validate() error {
	if !o.Valid() {
		return fmt.Errorf("cart owner must be exactly one of user or guest: %w", ErrInvalidRequest)
	}
	if len(o.GuestID) > 64 {
		return fmt.Errorf("guest id too long: %w", ErrInvalidRequest)
	}
	return nil
}
