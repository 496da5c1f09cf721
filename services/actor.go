package services

import "strings"

// Actor is whoever issues a request. The zero value is the anonymous actor.
type Actor struct {
	ID            uint
	Username      string
	Authenticated bool
}

// Anonymous returns the unauthenticated actor.
func Anonymous() Actor { return Actor{} }

// Authenticated returns an actor for a signed-in user.
func Authenticated(id uint, username string) Actor {
	return Actor{ID: id, Username: username, Authenticated: true}
}

// Is reports whether the actor is the user with the given id or username.
func (a Actor) Is(id uint, username string) bool {
	if !a.Authenticated {
		return false
	}
	if id != 0 && a.ID == id {
		return true
	}
	return username != "" && strings.EqualFold(a.Username, username)
}
