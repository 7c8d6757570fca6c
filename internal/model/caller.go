package model

import "github.com/google/uuid"

// Caller identifies who is making a request. A member carries UserID; a guest
// has none and is known by Address until it holds a SessionToken.
type Caller struct {
	UserID       *uuid.UUID
	SessionToken string
	Address      string
}

// IsMember reports whether the caller is an authenticated user.
func (c Caller) IsMember() bool {
	return c.UserID != nil
}

// Member returns a Caller for an authenticated user.
func Member(id uuid.UUID) Caller {
	return Caller{UserID: &id}
}

// Guest returns a Caller for an anonymous client.
func Guest(address, sessionToken string) Caller {
	return Caller{Address: address, SessionToken: sessionToken}
}
