package auth

import (
	"regexp"
	"strings"

	"quill/store"
)

// Handler carries the injected store handle for the auth endpoints.
type Handler struct {
	Users store.UserStore
}

func NewHandler(users store.UserStore) *Handler {
	return &Handler{Users: users}
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validUsername(u string) bool { return usernameRe.MatchString(u) }

func validEmail(e string) bool { return emailRe.MatchString(e) }

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }
