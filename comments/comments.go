// Package comments implements the one-level comment threads attached to
// posts, with cascade deletion and comment likes.
package comments

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"quill/models"
	"quill/store"
	"quill/utils"
)

type Handler struct {
	Comments store.CommentStore
	Posts    store.PostStore
	Users    store.UserStore
}

func NewHandler(comments store.CommentStore, posts store.PostStore, users store.UserStore) *Handler {
	return &Handler{Comments: comments, Posts: posts, Users: users}
}

const defaultPageSize = 20

// ListForPost handles GET /comments/post/:postId. Top-level comments come
// newest first; each carries its direct replies oldest first.
func (h *Handler) ListForPost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	page := store.Page{
		Number: utils.ParsePositiveInt(q.Get("page"), 1),
		Limit:  utils.ParsePositiveInt(q.Get("limit"), defaultPageSize),
	}

	top, total, err := h.Comments.ListTopLevel(ctx, ps.ByName("postId"), page)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch comments")
		return
	}

	parentIDs := make([]string, 0, len(top))
	for _, c := range top {
		parentIDs = append(parentIDs, c.CommentID)
	}
	replies, err := h.Comments.ListReplies(ctx, parentIDs)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch comments")
		return
	}

	views, err := h.thread(ctx, top, replies)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch comments")
		return
	}
	p := utils.NewPagination(page.Number, page.Limit, total)
	utils.RespondWithList(w, http.StatusOK, views, len(views), &p)
}

// thread joins comments with author summaries and nests replies under
// their parents.
func (h *Handler) thread(ctx context.Context, top, replies []models.Comment) ([]models.CommentView, error) {
	ids := make([]string, 0, len(top)+len(replies))
	seen := map[string]bool{}
	for _, c := range append(append([]models.Comment{}, top...), replies...) {
		if !seen[c.Author] {
			ids = append(ids, c.Author)
			seen[c.Author] = true
		}
	}
	summaries, err := h.Users.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	byParent := map[string][]models.CommentView{}
	for _, c := range replies {
		byParent[c.ParentID] = append(byParent[c.ParentID], models.CommentView{
			Comment:    c,
			AuthorInfo: summaries[c.Author],
			LikeCount:  len(c.Likes),
		})
	}

	views := make([]models.CommentView, 0, len(top))
	for _, c := range top {
		views = append(views, models.CommentView{
			Comment:    c,
			AuthorInfo: summaries[c.Author],
			LikeCount:  len(c.Likes),
			Replies:    byParent[c.CommentID],
		})
	}
	return views, nil
}

// ListByUser handles GET /comments/user/:userId, joining each comment with
// the title and slug of the post it belongs to.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	page := store.Page{
		Number: utils.ParsePositiveInt(q.Get("page"), 1),
		Limit:  utils.ParsePositiveInt(q.Get("limit"), defaultPageSize),
	}

	comments, total, err := h.Comments.ListByUser(ctx, ps.ByName("userId"), page)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch comments")
		return
	}

	postIDs := make([]string, 0, len(comments))
	seen := map[string]bool{}
	for _, c := range comments {
		if !seen[c.PostID] {
			postIDs = append(postIDs, c.PostID)
			seen[c.PostID] = true
		}
	}
	posts, err := h.Posts.GetPostsByIDs(ctx, postIDs)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch comments")
		return
	}
	byID := map[string]models.Post{}
	for _, p := range posts {
		byID[p.PostID] = p
	}

	type commentWithPost struct {
		models.Comment
		LikeCount int    `json:"like_count"`
		PostTitle string `json:"post_title"`
		PostSlug  string `json:"post_slug"`
	}
	out := make([]commentWithPost, 0, len(comments))
	for _, c := range comments {
		p := byID[c.PostID]
		out = append(out, commentWithPost{
			Comment:   c,
			LikeCount: len(c.Likes),
			PostTitle: p.Title,
			PostSlug:  p.Slug,
		})
	}
	pg := utils.NewPagination(page.Number, page.Limit, total)
	utils.RespondWithList(w, http.StatusOK, out, len(out), &pg)
}

type commentInput struct {
	PostID   string `json:"postid"`
	Content  string `json:"content"`
	ParentID string `json:"parent_id"`
}

// CreateComment handles POST /comments. Replies attach only to top-level
// comments, so threads never exceed one level.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var input commentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	input.Content = strings.TrimSpace(input.Content)
	if input.Content == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Content is required")
		return
	}

	if _, err := h.Posts.GetPostByID(ctx, input.PostID); err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		return
	}

	// Replies attach to top-level comments only, and must stay on the
	// same post as their parent.
	if input.ParentID != "" {
		parent, err := h.Comments.GetCommentByID(ctx, input.ParentID)
		if err != nil {
			utils.RespondWithError(w, http.StatusNotFound, "Parent comment not found")
			return
		}
		if parent.ParentID != "" {
			utils.RespondWithError(w, http.StatusBadRequest, "Cannot reply to a reply")
			return
		}
		if parent.PostID != input.PostID {
			utils.RespondWithError(w, http.StatusBadRequest, "Parent comment belongs to another post")
			return
		}
	}

	comment := models.Comment{
		CommentID: uuid.NewString(),
		PostID:    input.PostID,
		Author:    utils.GetUserIDFromRequest(r),
		Content:   input.Content,
		ParentID:  input.ParentID,
		Likes:     []models.CommentLike{},
		CreatedAt: time.Now(),
	}

	if err := h.Comments.CreateComment(ctx, &comment); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create comment")
		return
	}
	utils.RespondWithData(w, http.StatusCreated, comment)
}

// UpdateComment handles PUT /comments/:id
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	comment, err := h.Comments.GetCommentByID(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Comment not found")
		return
	}
	if !canMutate(r, comment.Author) {
		utils.RespondWithError(w, http.StatusForbidden, "Not authorized to update this comment")
		return
	}

	var input struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	input.Content = strings.TrimSpace(input.Content)
	if input.Content == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Content is required")
		return
	}

	if err := h.Comments.UpdateComment(ctx, comment.CommentID, input.Content, time.Now()); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update comment")
		return
	}
	updated, err := h.Comments.GetCommentByID(ctx, comment.CommentID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch comment")
		return
	}
	utils.RespondWithData(w, http.StatusOK, updated)
}

// DeleteComment handles DELETE /comments/:id. Deleting a top-level comment
// removes its replies as well.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	comment, err := h.Comments.GetCommentByID(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Comment not found")
		return
	}
	if !canMutate(r, comment.Author) {
		utils.RespondWithError(w, http.StatusForbidden, "Not authorized to delete this comment")
		return
	}

	deleted, err := h.Comments.DeleteCommentCascade(ctx, comment.CommentID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete comment")
		return
	}
	utils.RespondWithData(w, http.StatusOK, utils.M{"deleted": deleted})
}

func canMutate(r *http.Request, authorID string) bool {
	uid := utils.GetUserIDFromRequest(r)
	return uid == authorID || utils.GetRoleFromRequest(r) == models.RoleAdmin
}
