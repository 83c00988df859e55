// Package routes wires the handler packages onto the router. Routes whose
// path shares a wildcard segment with a static sibling (for example
// /posts/trending next to /posts/:id) are registered on the wildcard and
// dispatched inside the handler, since httprouter rejects the conflict.
package routes

import (
	"github.com/julienschmidt/httprouter"

	"quill/admin"
	"quill/auth"
	"quill/comments"
	"quill/middleware"
	"quill/posts"
	"quill/ratelim"
	"quill/tags"
	"quill/users"
)

func AddAuthRoutes(router *httprouter.Router, h *auth.Handler, rl *ratelim.RateLimiter) {
	router.POST("/auth/register", rl.Limit(h.Register))
	router.POST("/auth/login", rl.Limit(h.Login))
	router.POST("/auth/logout", middleware.Authenticate(h.Logout))
	router.GET("/auth/me", middleware.Authenticate(h.Me))
	router.PUT("/auth/updatedetails", middleware.Authenticate(h.UpdateDetails))
	router.PUT("/auth/updatepassword", middleware.Authenticate(h.UpdatePassword))
}

func AddPostRoutes(router *httprouter.Router, h *posts.Handler, rl *ratelim.RateLimiter) {
	router.GET("/posts", h.ListPosts)
	// Also serves GET /posts/trending and GET /posts/featured.
	router.GET("/posts/:id", middleware.OptionalAuth(h.GetPost))
	// Serves GET /posts/slug/:slug.
	router.GET("/posts/:id/:sub", middleware.OptionalAuth(h.GetPostSub))

	router.POST("/posts", middleware.Authenticate(h.CreatePost))
	router.PUT("/posts/:id", middleware.Authenticate(h.UpdatePost))
	router.DELETE("/posts/:id", middleware.Authenticate(h.DeletePost))

	router.POST("/posts/:id/like", rl.Limit(middleware.Authenticate(h.LikePost)))
	router.DELETE("/posts/:id/like", rl.Limit(middleware.Authenticate(h.UnlikePost)))
}

func AddUserRoutes(router *httprouter.Router, h *users.Handler, rl *ratelim.RateLimiter) {
	router.GET("/users", h.ListUsers)
	// Also serves GET /users/bookmarks and GET /users/liked.
	router.GET("/users/:id", middleware.OptionalAuth(h.GetUser))
	// Serves GET /users/username/:username and GET /users/:id/posts.
	router.GET("/users/:id/:sub", h.GetUserSub)

	// Serves POST/DELETE /users/:id/follow and /users/bookmarks/:postId.
	router.POST("/users/:id/:sub", rl.Limit(middleware.Authenticate(h.Mutate)))
	router.DELETE("/users/:id/:sub", rl.Limit(middleware.Authenticate(h.Mutate)))
}

func AddCommentsRoutes(router *httprouter.Router, h *comments.Handler, rl *ratelim.RateLimiter) {
	router.GET("/comments/post/:postId", h.ListForPost)
	router.GET("/comments/user/:userId", h.ListByUser)

	router.POST("/comments", rl.Limit(middleware.Authenticate(h.CreateComment)))
	router.PUT("/comments/:id", middleware.Authenticate(h.UpdateComment))
	router.DELETE("/comments/:id", middleware.Authenticate(h.DeleteComment))

	router.POST("/comments/:id/like", rl.Limit(middleware.Authenticate(h.LikeComment)))
	router.DELETE("/comments/:id/like", rl.Limit(middleware.Authenticate(h.UnlikeComment)))
}

func AddTagRoutes(router *httprouter.Router, h *tags.Handler, _ *ratelim.RateLimiter) {
	router.GET("/tags", h.ListTags)
	router.GET("/tags/:tag/posts", h.PostsByTag)
}

func AddAdminRoutes(router *httprouter.Router, h *admin.Handler, _ *ratelim.RateLimiter) {
	router.POST("/admin/reconcile", middleware.Authenticate(h.Reconcile))
}
