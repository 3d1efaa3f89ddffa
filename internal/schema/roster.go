// Package schema defines the canonical roster data model shared across layers.
package schema

import "strings"

// UserStatus enumerates the lifecycle states a roster user may hold.
type UserStatus string

const (
	// StatusActive marks an enabled user.
	StatusActive UserStatus = "active"
	// StatusInactive marks a disabled user.
	StatusInactive UserStatus = "inactive"
)

// Valid reports whether the status is one of the known states.
func (s UserStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// ParseUserStatus normalizes a raw status string, returning ok=false for
// values outside the known set.
func ParseUserStatus(raw string) (UserStatus, bool) {
	status := UserStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", false
	}
	return status, true
}

// Group identifies a membership a user holds.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is the roster domain entity. Identity is ID; every other field is
// authoritative on the server and mutated locally only through cached copies.
type User struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Status UserStatus `json:"status"`
	Groups []Group    `json:"groups"`
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	clone := u
	if u.Groups != nil {
		clone.Groups = make([]Group, len(u.Groups))
		copy(clone.Groups, u.Groups)
	}
	return clone
}

// CollectionPage is one server-delivered page of the roster collection.
// TotalCount is authoritative for pagination regardless of len(Users).
type CollectionPage struct {
	Users      []User `json:"users"`
	TotalCount int    `json:"totalCount"`
}

// Clone returns a deep copy of the page.
func (p CollectionPage) Clone() CollectionPage {
	clone := p
	if p.Users != nil {
		clone.Users = make([]User, len(p.Users))
		for i, u := range p.Users {
			clone.Users[i] = u.Clone()
		}
	}
	return clone
}

// ReplaceUser returns a copy of the page with the matching user swapped for
// the provided record. The page is returned unchanged when no user matches.
func (p CollectionPage) ReplaceUser(user User) CollectionPage {
	clone := p.Clone()
	for i := range clone.Users {
		if clone.Users[i].ID == user.ID {
			clone.Users[i] = user.Clone()
			break
		}
	}
	return clone
}

// WithUserStatus returns a copy of the page with the matching user's status
// replaced. All other fields and records are untouched.
func (p CollectionPage) WithUserStatus(userID string, status UserStatus) CollectionPage {
	clone := p.Clone()
	for i := range clone.Users {
		if clone.Users[i].ID == userID {
			clone.Users[i].Status = status
			break
		}
	}
	return clone
}

// FindUser returns the user with the given id, if present.
func (p CollectionPage) FindUser(userID string) (User, bool) {
	for _, u := range p.Users {
		if u.ID == userID {
			return u.Clone(), true
		}
	}
	return User{}, false
}
