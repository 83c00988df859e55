package users

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"quill/models"
	"quill/mq"
	"quill/store"
	"quill/utils"
)

// Mutate handles POST /users/:id/:sub and its DELETE twin. The wildcard
// covers two operations: /users/:id/follow and /users/bookmarks/:postId.
func (h *Handler) Mutate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, sub := ps.ByName("id"), ps.ByName("sub")
	adding := r.Method != http.MethodDelete

	switch {
	case id == "bookmarks":
		h.toggleBookmark(w, r, sub, adding)
	case sub == "follow":
		h.toggleFollow(w, r, id, adding)
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
	}
}

func (h *Handler) toggleFollow(w http.ResponseWriter, r *http.Request, targetID string, follow bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)

	var err error
	if follow {
		err = h.Users.Follow(ctx, userID, targetID)
	} else {
		err = h.Users.Unfollow(ctx, userID, targetID)
	}
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSelfFollow):
			utils.RespondWithError(w, http.StatusBadRequest, "You cannot follow yourself")
		case errors.Is(err, store.ErrNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, store.ErrConflict) && follow:
			utils.RespondWithError(w, http.StatusBadRequest, "Already following this user")
		case errors.Is(err, store.ErrConflict):
			utils.RespondWithError(w, http.StatusBadRequest, "Not following this user")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update follow")
		}
		return
	}

	if follow {
		go mq.Emit("followed", "user", targetID, userID)
		utils.RespondWithData(w, http.StatusOK, utils.M{"message": "User followed"})
	} else {
		go mq.Emit("unfollowed", "user", targetID, userID)
		utils.RespondWithData(w, http.StatusOK, utils.M{"message": "User unfollowed"})
	}
}

func (h *Handler) toggleBookmark(w http.ResponseWriter, r *http.Request, postID string, add bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)

	var err error
	if add {
		if _, err := h.Posts.GetPostByID(ctx, postID); err != nil {
			utils.RespondWithError(w, http.StatusNotFound, "Post not found")
			return
		}
		err = h.Users.AddBookmark(ctx, userID, postID)
	} else {
		err = h.Users.RemoveBookmark(ctx, userID, postID)
	}
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, store.ErrConflict) && add:
			utils.RespondWithError(w, http.StatusBadRequest, "Post already bookmarked")
		case errors.Is(err, store.ErrConflict):
			utils.RespondWithError(w, http.StatusBadRequest, "Post not bookmarked")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update bookmarks")
		}
		return
	}

	if add {
		go mq.Emit("bookmarked", "post", postID, userID)
		utils.RespondWithData(w, http.StatusOK, utils.M{"message": "Post bookmarked"})
	} else {
		go mq.Emit("unbookmarked", "post", postID, userID)
		utils.RespondWithData(w, http.StatusOK, utils.M{"message": "Bookmark removed"})
	}
}

// GetBookmarks serves GET /users/bookmarks for the authenticated user.
// Bookmarks are a bare ordered id list; posts come back in stored order.
func (h *Handler) GetBookmarks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.collection(w, r, func(u *models.User) []string { return u.Bookmarks })
}

// GetLikedPosts serves GET /users/liked for the authenticated user.
func (h *Handler) GetLikedPosts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.collection(w, r, func(u *models.User) []string { return u.LikedPosts })
}

func (h *Handler) collection(w http.ResponseWriter, r *http.Request, pick func(*models.User) []string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	posts, err := h.Posts.GetPostsByIDs(ctx, pick(user))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}

	authorIDs := make([]string, 0, len(posts))
	seen := map[string]bool{}
	for _, p := range posts {
		if !seen[p.Author] {
			authorIDs = append(authorIDs, p.Author)
			seen[p.Author] = true
		}
	}
	summaries, err := h.Users.Summaries(ctx, authorIDs)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, models.PostView{
			Post:       p,
			AuthorInfo: summaries[p.Author],
			LikeCount:  len(p.Likes),
		})
	}
	utils.RespondWithList(w, http.StatusOK, views, len(views), nil)
}
