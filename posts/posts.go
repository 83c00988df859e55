// Package posts implements the post CRUD, view counting, like toggles and
// the trending/featured rankings.
package posts

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
	Posts store.PostStore
	Users store.UserStore
}

func NewHandler(posts store.PostStore, users store.UserStore) *Handler {
	return &Handler{Posts: posts, Users: users}
}

const defaultPageSize = 10

func validStatus(s string) bool {
	return s == models.StatusDraft || s == models.StatusPublished || s == models.StatusArchived
}

// withAuthors joins posts with their author summaries.
func (h *Handler) withAuthors(ctx context.Context, posts []models.Post) ([]models.PostView, error) {
	ids := make([]string, 0, len(posts))
	seen := map[string]bool{}
	for _, p := range posts {
		if !seen[p.Author] {
			ids = append(ids, p.Author)
			seen[p.Author] = true
		}
	}
	summaries, err := h.Users.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, models.PostView{
			Post:       p,
			AuthorInfo: summaries[p.Author],
			LikeCount:  len(p.Likes),
		})
	}
	return views, nil
}

// uniqueSlug derives the slug from the title, appending a short random
// suffix when the plain slug is already taken.
func (h *Handler) uniqueSlug(ctx context.Context, title string) (string, error) {
	slug := utils.Slugify(title)
	taken, err := h.Posts.SlugExists(ctx, slug)
	if err != nil {
		return "", err
	}
	if taken {
		slug = slug + "-" + utils.GenerateRandomString(6)
	}
	return slug, nil
}

// ListPosts handles GET /posts
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	page := store.Page{
		Number: utils.ParsePositiveInt(q.Get("page"), 1),
		Limit:  utils.ParsePositiveInt(q.Get("limit"), defaultPageSize),
	}
	filter := store.PostFilter{
		Status: models.StatusPublished,
		Tag:    q.Get("tag"),
		Author: q.Get("author"),
		Search: q.Get("search"),
	}

	posts, total, err := h.Posts.ListPosts(ctx, filter, page)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	views, err := h.withAuthors(ctx, posts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	p := utils.NewPagination(page.Number, page.Limit, total)
	utils.RespondWithList(w, http.StatusOK, views, len(views), &p)
}

// GetPost handles GET /posts/:id. The static siblings of :id (trending,
// featured) are dispatched here because they share the wildcard segment.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("id") {
	case "trending":
		h.Trending(w, r, ps)
		return
	case "featured":
		h.Featured(w, r, ps)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	post, err := h.Posts.GetPostByID(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		return
	}
	h.servePost(ctx, w, post)
}

// GetPostSub handles GET /posts/:id/:sub, which only exists to serve
// GET /posts/slug/:slug.
func (h *Handler) GetPostSub(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("id") != "slug" {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	post, err := h.Posts.GetPostBySlug(ctx, ps.ByName("sub"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		return
	}
	h.servePost(ctx, w, post)
}

// servePost increments the view counter and writes the populated post.
// Every read counts a view; there is no per-viewer deduplication.
func (h *Handler) servePost(ctx context.Context, w http.ResponseWriter, post *models.Post) {
	if err := h.Posts.IncrementViews(ctx, post.PostID); err == nil {
		post.Views++
	}

	views, err := h.withAuthors(ctx, []models.Post{*post})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch post")
		return
	}
	utils.RespondWithData(w, http.StatusOK, views[0])
}

type postInput struct {
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Content    string   `json:"content"`
	CoverImage string   `json:"cover_image"`
	Tags       []string `json:"tags"`
	Status     string   `json:"status"`
	Featured   *bool    `json:"featured"`
}

// CreatePost handles POST /posts
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var input postInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" || len(input.Title) > 200 {
		utils.RespondWithError(w, http.StatusBadRequest, "Title is required and must be less than 200 characters")
		return
	}
	if strings.TrimSpace(input.Content) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Content is required")
		return
	}
	if input.Status == "" {
		input.Status = models.StatusDraft
	}
	if !validStatus(input.Status) {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	slug, err := h.uniqueSlug(ctx, input.Title)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}

	now := time.Now()
	post := models.Post{
		PostID:      uuid.NewString(),
		Title:       input.Title,
		Slug:        slug,
		Excerpt:     input.Excerpt,
		Content:     input.Content,
		CoverImage:  input.CoverImage,
		Author:      utils.GetUserIDFromRequest(r),
		Tags:        utils.NormalizeTags(input.Tags),
		Status:      input.Status,
		Likes:       []models.PostLike{},
		ReadingTime: utils.ReadingTime(input.Content),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Featured != nil {
		post.Featured = *input.Featured
	}
	if post.Status == models.StatusPublished {
		post.PublishedAt = &now
	}

	if err := h.Posts.CreatePost(ctx, &post); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}
	utils.RespondWithData(w, http.StatusCreated, post)
}

// canMutate reports whether the requester owns the post or is an admin.
func canMutate(r *http.Request, authorID string) bool {
	uid := utils.GetUserIDFromRequest(r)
	return uid == authorID || utils.GetRoleFromRequest(r) == models.RoleAdmin
}

// UpdatePost handles PUT /posts/:id
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	post, err := h.Posts.GetPostByID(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		return
	}
	if !canMutate(r, post.Author) {
		utils.RespondWithError(w, http.StatusForbidden, "Not authorized to update this post")
		return
	}

	var input postInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	set := map[string]any{"updated_at": time.Now()}
	if title := strings.TrimSpace(input.Title); title != "" && title != post.Title {
		if len(title) > 200 {
			utils.RespondWithError(w, http.StatusBadRequest, "Title must be less than 200 characters")
			return
		}
		slug, err := h.uniqueSlug(ctx, title)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update post")
			return
		}
		set["title"] = title
		set["slug"] = slug
	}
	if input.Content != "" {
		set["content"] = input.Content
		set["reading_time"] = utils.ReadingTime(input.Content)
	}
	if input.Excerpt != "" {
		set["excerpt"] = input.Excerpt
	}
	if input.CoverImage != "" {
		set["cover_image"] = input.CoverImage
	}
	if input.Tags != nil {
		set["tags"] = utils.NormalizeTags(input.Tags)
	}
	if input.Featured != nil {
		set["featured"] = *input.Featured
	}
	if input.Status != "" {
		if !validStatus(input.Status) {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid status")
			return
		}
		set["status"] = input.Status
		// publishedAt is set exactly once, on the first publish.
		if input.Status == models.StatusPublished && post.PublishedAt == nil {
			set["published_at"] = time.Now()
		}
	}

	if err := h.Posts.UpdatePost(ctx, post.PostID, set); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update post")
		return
	}
	updated, err := h.Posts.GetPostByID(ctx, post.PostID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch post")
		return
	}
	invalidateTrending(ctx)
	utils.RespondWithData(w, http.StatusOK, updated)
}

// DeletePost handles DELETE /posts/:id
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	post, err := h.Posts.GetPostByID(ctx, ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Post not found")
		return
	}
	if !canMutate(r, post.Author) {
		utils.RespondWithError(w, http.StatusForbidden, "Not authorized to delete this post")
		return
	}

	if err := h.Posts.DeletePost(ctx, post.PostID); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete post")
		return
	}
	invalidateTrending(ctx)
	utils.RespondWithData(w, http.StatusOK, utils.M{})
}
