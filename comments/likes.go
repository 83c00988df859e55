package comments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"quill/mq"
	"quill/store"
	"quill/utils"
)

// LikeComment handles POST /comments/:id/like
func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	commentID := ps.ByName("id")
	userID := utils.GetUserIDFromRequest(r)

	likeCount, err := h.Comments.LikeComment(ctx, commentID, userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Comment not found")
		case errors.Is(err, store.ErrConflict):
			utils.RespondWithError(w, http.StatusBadRequest, "Comment already liked")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to like comment")
		}
		return
	}

	go mq.Emit("liked", "comment", commentID, userID)

	utils.RespondWithData(w, http.StatusOK, utils.M{
		"message":   "Comment liked",
		"likeCount": likeCount,
	})
}

// UnlikeComment handles DELETE /comments/:id/like
func (h *Handler) UnlikeComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	commentID := ps.ByName("id")
	userID := utils.GetUserIDFromRequest(r)

	likeCount, err := h.Comments.UnlikeComment(ctx, commentID, userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Comment not found")
		case errors.Is(err, store.ErrConflict):
			utils.RespondWithError(w, http.StatusBadRequest, "Comment not liked")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to unlike comment")
		}
		return
	}

	go mq.Emit("unliked", "comment", commentID, userID)

	utils.RespondWithData(w, http.StatusOK, utils.M{
		"message":   "Comment unliked",
		"likeCount": likeCount,
	})
}
