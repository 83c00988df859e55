package posts

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"quill/models"
	"quill/rdx"
	"quill/utils"
)

const (
	trendingWindow   = 7 * 24 * time.Hour
	trendingLimit    = 10
	trendingCacheTTL = 60 * time.Second
	trendingCacheKey = "trending:posts"
)

// Trending handles GET /posts/trending. Results are cached in redis for a
// short TTL; a cache miss or unavailable redis falls through to the store.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit := utils.ParsePositiveInt(r.URL.Query().Get("limit"), trendingLimit)

	if limit == trendingLimit {
		cached, err := rdx.RdxGet(ctx, trendingCacheKey)
		if err == nil && cached != "" {
			var posts []models.TrendingPost
			if json.Unmarshal([]byte(cached), &posts) == nil {
				utils.RespondWithList(w, http.StatusOK, posts, len(posts), nil)
				return
			}
		} else if err != nil && !rdx.IsMiss(err) {
			log.Printf("trending cache read failed: %v", err)
		}
	}

	since := time.Now().Add(-trendingWindow)
	posts, err := h.Posts.Trending(ctx, since, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch trending posts")
		return
	}
	if posts == nil {
		posts = []models.TrendingPost{}
	}

	if limit == trendingLimit {
		if raw, err := json.Marshal(posts); err == nil {
			if err := rdx.RdxSet(ctx, trendingCacheKey, string(raw), trendingCacheTTL); err != nil && !rdx.IsMiss(err) {
				log.Printf("trending cache write failed: %v", err)
			}
		}
	}

	utils.RespondWithList(w, http.StatusOK, posts, len(posts), nil)
}

// invalidateTrending drops the cached trending list after a post edit or
// delete, so an archived or removed post does not linger for the cache
// TTL. Like and view churn is left to expire naturally.
func invalidateTrending(ctx context.Context) {
	if err := rdx.RdxDel(ctx, trendingCacheKey); err != nil && !rdx.IsMiss(err) {
		log.Printf("trending cache invalidation failed: %v", err)
	}
}

// Featured handles GET /posts/featured
func (h *Handler) Featured(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit := utils.ParsePositiveInt(r.URL.Query().Get("limit"), trendingLimit)

	posts, err := h.Posts.FeaturedPosts(ctx, limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch featured posts")
		return
	}
	views, err := h.withAuthors(ctx, posts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch featured posts")
		return
	}
	utils.RespondWithList(w, http.StatusOK, views, len(views), nil)
}
