package storage

import (
	"fmt"
	"unicode/utf8"
)

// Client is a person record with identifying and contact fields
type Client struct {
	ID        int
	FirstName string
	LastName  string
	Email     string
}

// Phone is a contact number owned by exactly one client. Number is nil when
// the row was stored without a value.
type Phone struct {
	ID       int
	ClientID int
	Number   *string
}

// ClientPhone is one row of a client lookup: the client's fields joined with
// one of its phones. A client without phones yields a single row with a nil
// Phone.
type ClientPhone struct {
	ClientID  int
	FirstName string
	LastName  string
	Email     string
	Phone     *string
}

// ClientChanges lists the fields to update on a client. Nil fields are left
// untouched.
//
// Phone is applied to every phone row of the client, replacing all of its
// numbers with the one value.
type ClientChanges struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
}

// Empty reports whether no change was requested
func (c ClientChanges) Empty() bool {
	return c.FirstName == nil && c.LastName == nil && c.Email == nil && c.Phone == nil
}

// ClientFilter selects the client for a lookup. Filters are evaluated in the
// order FirstName, LastName, Email, Phone and only the last one supplied
// decides which client is returned.
type ClientFilter struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
}

// FilterField names one ClientFilter field
type FilterField string

const (
	FilterFirstName FilterField = "first_name"
	FilterLastName  FilterField = "last_name"
	FilterEmail     FilterField = "email"
	FilterPhone     FilterField = "phone"
)

// Effective returns the filter that takes effect and its value. ok is false
// when no filter was supplied.
func (f ClientFilter) Effective() (field FilterField, value string, ok bool) {
	if f.FirstName != nil {
		field, value, ok = FilterFirstName, *f.FirstName, true
	}
	if f.LastName != nil {
		field, value, ok = FilterLastName, *f.LastName, true
	}
	if f.Email != nil {
		field, value, ok = FilterEmail, *f.Email, true
	}
	if f.Phone != nil {
		field, value, ok = FilterPhone, *f.Phone, true
	}
	return field, value, ok
}

// String returns a pointer to s, for filling optional fields
func String(s string) *string {
	return &s
}

// Column widths of the registry tables, in characters
const (
	MaxNameLength  = 100
	MaxEmailLength = 255
	MaxPhoneLength = 15
)

// CheckLength returns ErrValueTooLong when value has more than limit characters
func CheckLength(column, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrValueTooLong, column, limit)
	}
	return nil
}
