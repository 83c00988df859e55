// Package users serves public profiles, the follow graph and the
// per-user bookmark and liked-post collections.
package users

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"quill/models"
	"quill/store"
	"quill/utils"
)

type Handler struct {
	Users store.UserStore
	Posts store.PostStore
}

func NewHandler(users store.UserStore, posts store.PostStore) *Handler {
	return &Handler{Users: users, Posts: posts}
}

const defaultPageSize = 10

// ListUsers handles GET /users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	page := store.Page{
		Number: utils.ParsePositiveInt(q.Get("page"), 1),
		Limit:  utils.ParsePositiveInt(q.Get("limit"), defaultPageSize),
	}

	list, total, err := h.Users.ListUsers(ctx, page)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	p := utils.NewPagination(page.Number, page.Limit, total)
	utils.RespondWithList(w, http.StatusOK, list, len(list), &p)
}

// GetUser handles GET /users/:id. The static siblings of :id (bookmarks,
// liked) share the wildcard segment and are dispatched here; both require
// an authenticated caller.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("id") {
	case "bookmarks":
		h.GetBookmarks(w, r, ps)
		return
	case "liked":
		h.GetLikedPosts(w, r, ps)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetUserByID(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	h.serveProfile(ctx, w, user)
}

// GetUserSub handles GET /users/:id/:sub. Two shapes share this route:
// GET /users/username/:username and GET /users/:id/posts.
func (h *Handler) GetUserSub(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, sub := ps.ByName("id"), ps.ByName("sub")

	if id == "username" {
		user, err := h.Users.GetUserByUsername(ctx, sub)
		if err != nil {
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		h.serveProfile(ctx, w, user)
		return
	}

	if sub == "posts" {
		h.userPosts(ctx, w, r, id)
		return
	}

	utils.RespondWithError(w, http.StatusNotFound, "Not found")
}

// serveProfile writes a user together with resolved follower/following
// summaries and derived counts.
func (h *Handler) serveProfile(ctx context.Context, w http.ResponseWriter, user *models.User) {
	followers, err := h.Users.Summaries(ctx, user.Followers)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}
	following, err := h.Users.Summaries(ctx, user.Following)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	utils.RespondWithData(w, http.StatusOK, utils.M{
		"user":            user,
		"follower_count":  len(user.Followers),
		"following_count": len(user.Following),
		"followers_info":  summaryList(user.Followers, followers),
		"following_info":  summaryList(user.Following, following),
	})
}

// summaryList keeps the stored edge order, skipping ids with no account.
func summaryList(ids []string, summaries map[string]models.AuthorSummary) []models.AuthorSummary {
	out := make([]models.AuthorSummary, 0, len(ids))
	for _, id := range ids {
		if s, ok := summaries[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// userPosts lists a user's published posts, newest first.
func (h *Handler) userPosts(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string) {
	if _, err := h.Users.GetUserByID(ctx, userID); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	q := r.URL.Query()
	page := store.Page{
		Number: utils.ParsePositiveInt(q.Get("page"), 1),
		Limit:  utils.ParsePositiveInt(q.Get("limit"), defaultPageSize),
	}
	filter := store.PostFilter{Status: models.StatusPublished, Author: userID}

	posts, total, err := h.Posts.ListPosts(ctx, filter, page)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	p := utils.NewPagination(page.Number, page.Limit, total)
	utils.RespondWithList(w, http.StatusOK, posts, len(posts), &p)
}
