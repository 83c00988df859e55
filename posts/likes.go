package posts

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"quill/mq"
	"quill/store"
	"quill/utils"
)

// LikePost handles POST /posts/:id/like. The post's likes array is the
// authoritative side; the user's likedPosts mirror is written second and
// reconciled by the repair pass if the second write is lost.
func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	postID := ps.ByName("id")
	userID := utils.GetUserIDFromRequest(r)

	likeCount, err := h.Posts.AddLike(ctx, postID, userID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		case errors.Is(err, store.ErrConflict):
			utils.RespondWithError(w, http.StatusBadRequest, "Post already liked")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to like post")
		}
		return
	}
	if err := h.Users.AddLikedPost(ctx, userID, postID); err != nil {
		// Post side succeeded, so the like stands; the mirror is
		// caught up by the reconciliation pass.
		log.Printf("like mirror write failed for user %s post %s: %v", userID, postID, err)
	}

	go mq.Emit("liked", "post", postID, userID)

	utils.RespondWithData(w, http.StatusOK, utils.M{
		"message":   "Post liked",
		"likeCount": likeCount,
	})
}

// UnlikePost handles DELETE /posts/:id/like
func (h *Handler) UnlikePost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	postID := ps.ByName("id")
	userID := utils.GetUserIDFromRequest(r)

	likeCount, err := h.Posts.RemoveLike(ctx, postID, userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		case errors.Is(err, store.ErrConflict):
			utils.RespondWithError(w, http.StatusBadRequest, "Post not liked")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to unlike post")
		}
		return
	}
	if err := h.Users.RemoveLikedPost(ctx, userID, postID); err != nil {
		log.Printf("like mirror removal failed for user %s post %s: %v", userID, postID, err)
	}

	go mq.Emit("unliked", "post", postID, userID)

	utils.RespondWithData(w, http.StatusOK, utils.M{
		"message":   "Post unliked",
		"likeCount": likeCount,
	})
}
