// Package user defines the user record shape consumed from the remote source.
package user

// Address holds the part of a user's address that the list displays.
type Address struct {
	City string `json:"city"`
}

// User is a single record as returned by the remote source.
// Identity is ID; fields other than those below are ignored on decode.
type User struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Address Address `json:"address"`
}

// RecordSet is an ordered sequence of users. Order is display order.
type RecordSet []User

// IDs returns the user IDs in order.
func (rs RecordSet) IDs() []int {
	ids := make([]int, len(rs))
	for i, u := range rs {
		ids[i] = u.ID
	}
	return ids
}

// Without returns a copy of rs with every user matching id removed.
// The receiver is not modified.
func (rs RecordSet) Without(id int) RecordSet {
	out := make(RecordSet, 0, len(rs))
	for _, u := range rs {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}

// Contains reports whether a user with id is present.
func (rs RecordSet) Contains(id int) bool {
	for _, u := range rs {
		if u.ID == id {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of rs.
func (rs RecordSet) Clone() RecordSet {
	return append(RecordSet(nil), rs...)
}
