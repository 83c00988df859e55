// Package tags serves the tag cloud aggregated from published posts.
package tags

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
	Posts store.PostStore
	Users store.UserStore
}

func NewHandler(posts store.PostStore, users store.UserStore) *Handler {
	return &Handler{Posts: posts, Users: users}
}

const tagLimit = 50

// ListTags handles GET /tags. Tags come from published posts only,
// ordered by usage count descending, capped at 50.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	counts, err := h.Posts.TagCounts(ctx, tagLimit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch tags")
		return
	}
	if counts == nil {
		counts = []models.TagCount{}
	}
	utils.RespondWithList(w, http.StatusOK, counts, len(counts), nil)
}

// PostsByTag handles GET /tags/:tag/posts
func (h *Handler) PostsByTag(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	page := store.Page{
		Number: utils.ParsePositiveInt(q.Get("page"), 1),
		Limit:  utils.ParsePositiveInt(q.Get("limit"), 10),
	}
	filter := store.PostFilter{Status: models.StatusPublished, Tag: ps.ByName("tag")}

	posts, total, err := h.Posts.ListPosts(ctx, filter, page)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	p := utils.NewPagination(page.Number, page.Limit, total)
	utils.RespondWithList(w, http.StatusOK, posts, len(posts), &p)
}
