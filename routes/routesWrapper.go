package routes

import (
	"github.com/julienschmidt/httprouter"

	"quill/admin"
	"quill/auth"
	"quill/comments"
	"quill/posts"
	"quill/ratelim"
	"quill/store"
	"quill/tags"
	"quill/users"
)

// RoutesWrapper builds the handlers over one store handle and registers
// every route group.
func RoutesWrapper(router *httprouter.Router, s store.Store, rateLimiter *ratelim.RateLimiter) {
	AddAuthRoutes(router, auth.NewHandler(s), rateLimiter)
	AddPostRoutes(router, posts.NewHandler(s, s), rateLimiter)
	AddUserRoutes(router, users.NewHandler(s, s), rateLimiter)
	AddCommentsRoutes(router, comments.NewHandler(s, s, s), rateLimiter)
	AddTagRoutes(router, tags.NewHandler(s, s), rateLimiter)
	AddAdminRoutes(router, admin.NewHandler(s), rateLimiter)
}
