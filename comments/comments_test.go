package comments_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"quill/middleware"
	"quill/models"
	"quill/ratelim"
	"quill/routes"
	"quill/store/memstore"
)

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
}

func newServer(t *testing.T) (*memstore.Store, *httprouter.Router) {
	t.Helper()
	st := memstore.New()
	router := httprouter.New()
	routes.RoutesWrapper(router, st, ratelim.NewRateLimiter())
	return st, router
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := middleware.NewToken(userID, "user_"+userID, role)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func seedUser(t *testing.T, st *memstore.Store, id string) {
	t.Helper()
	err := st.CreateUser(context.Background(), &models.User{
		UserID:     id,
		Name:       "User " + id,
		Username:   "user_" + id,
		Email:      id + "@example.com",
		Role:       models.RoleUser,
		Followers:  []string{},
		Following:  []string{},
		Bookmarks:  []string{},
		LikedPosts: []string{},
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func seedPost(t *testing.T, st *memstore.Store, id, author string) {
	t.Helper()
	now := time.Now()
	err := st.CreatePost(context.Background(), &models.Post{
		PostID:      id,
		Title:       "Post " + id,
		Slug:        "post-" + id,
		Content:     "content",
		Author:      author,
		Tags:        []string{},
		Status:      models.StatusPublished,
		Likes:       []models.PostLike{},
		PublishedAt: &now,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("seed post %s: %v", id, err)
	}
}

func do(router *httprouter.Router, method, path, auth string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func createComment(t *testing.T, router *httprouter.Router, auth string, body map[string]any) models.Comment {
	t.Helper()
	rec := do(router, http.MethodPost, "/comments", auth, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create comment: status %d body %s", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	var c models.Comment
	json.Unmarshal(env.Data, &c)
	return c
}

func TestCreateCommentAndReply(t *testing.T) {
	st, router := newServer(t)
	seedUser(t, st, "u1")
	seedUser(t, st, "u2")
	seedPost(t, st, "p1", "u1")
	auth := bearer(t, "u1", models.RoleUser)

	top := createComment(t, router, auth, map[string]any{"postid": "p1", "content": "first!"})
	if top.ParentID != "" {
		t.Errorf("top-level comment has parent %q", top.ParentID)
	}

	reply := createComment(t, router, bearer(t, "u2", models.RoleUser), map[string]any{
		"postid": "p1", "content": "reply", "parent_id": top.CommentID,
	})

	// A reply cannot receive replies of its own.
	rec := do(router, http.MethodPost, "/comments", auth, map[string]any{
		"postid": "p1", "content": "too deep", "parent_id": reply.CommentID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reply-to-reply: status %d, want 400", rec.Code)
	}

	// Parent must belong to the same post.
	seedPost(t, st, "p2", "u1")
	rec = do(router, http.MethodPost, "/comments", auth, map[string]any{
		"postid": "p2", "content": "wrong thread", "parent_id": top.CommentID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("cross-post reply: status %d, want 400", rec.Code)
	}

	// And the post itself must exist.
	rec = do(router, http.MethodPost, "/comments", auth, map[string]any{
		"postid": "ghost", "content": "into the void",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing post: status %d, want 404", rec.Code)
	}
}

func TestListForPostThreads(t *testing.T) {
	st, router := newServer(t)
	seedUser(t, st, "u1")
	seedUser(t, st, "u2")
	seedPost(t, st, "p1", "u1")
	auth := bearer(t, "u1", models.RoleUser)

	top := createComment(t, router, auth, map[string]any{"postid": "p1", "content": "thread root"})
	createComment(t, router, bearer(t, "u2", models.RoleUser), map[string]any{
		"postid": "p1", "content": "a reply", "parent_id": top.CommentID,
	})

	rec := do(router, http.MethodGet, "/comments/post/p1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	var views []models.CommentView
	json.Unmarshal(env.Data, &views)
	if len(views) != 1 {
		t.Fatalf("top-level count = %d, want 1", len(views))
	}
	if len(views[0].Replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(views[0].Replies))
	}
	if views[0].AuthorInfo.Username != "user_u1" {
		t.Errorf("author summary = %+v", views[0].AuthorInfo)
	}
	if views[0].Replies[0].AuthorInfo.Username != "user_u2" {
		t.Errorf("reply author summary = %+v", views[0].Replies[0].AuthorInfo)
	}
}

func TestDeleteCascadesReplies(t *testing.T) {
	st, router := newServer(t)
	seedUser(t, st, "u1")
	seedUser(t, st, "u2")
	seedPost(t, st, "p1", "u1")
	auth := bearer(t, "u1", models.RoleUser)

	top := createComment(t, router, auth, map[string]any{"postid": "p1", "content": "root"})
	createComment(t, router, bearer(t, "u2", models.RoleUser), map[string]any{
		"postid": "p1", "content": "r1", "parent_id": top.CommentID,
	})
	createComment(t, router, bearer(t, "u2", models.RoleUser), map[string]any{
		"postid": "p1", "content": "r2", "parent_id": top.CommentID,
	})

	// Reply authors cannot delete someone else's thread root.
	rec := do(router, http.MethodDelete, "/comments/"+top.CommentID, bearer(t, "u2", models.RoleUser), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete: status %d, want 403", rec.Code)
	}

	rec = do(router, http.MethodDelete, "/comments/"+top.CommentID, auth, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	env := decode(t, rec)
	var payload struct {
		Deleted int64 `json:"deleted"`
	}
	json.Unmarshal(env.Data, &payload)
	if payload.Deleted != 3 {
		t.Errorf("deleted = %d, want 3", payload.Deleted)
	}

	rec = do(router, http.MethodGet, "/comments/post/p1", "", nil)
	if env := decode(t, rec); env.Count != 0 {
		t.Errorf("comments left after cascade: %d", env.Count)
	}
}

func TestEditMarksComment(t *testing.T) {
	st, router := newServer(t)
	seedUser(t, st, "u1")
	seedPost(t, st, "p1", "u1")
	auth := bearer(t, "u1", models.RoleUser)

	c := createComment(t, router, auth, map[string]any{"postid": "p1", "content": "v1"})
	if c.IsEdited {
		t.Error("fresh comment marked edited")
	}

	rec := do(router, http.MethodPut, "/comments/"+c.CommentID, auth, map[string]any{"content": "v2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit: status %d", rec.Code)
	}
	env := decode(t, rec)
	var edited models.Comment
	json.Unmarshal(env.Data, &edited)
	if edited.Content != "v2" || !edited.IsEdited || edited.EditedAt == nil {
		t.Errorf("edited comment = %+v", edited)
	}
}

func TestCommentLikeToggle(t *testing.T) {
	st, router := newServer(t)
	seedUser(t, st, "u1")
	seedUser(t, st, "u2")
	seedPost(t, st, "p1", "u1")

	c := createComment(t, router, bearer(t, "u1", models.RoleUser), map[string]any{"postid": "p1", "content": "like me"})
	auth := bearer(t, "u2", models.RoleUser)

	rec := do(router, http.MethodPost, "/comments/"+c.CommentID+"/like", auth, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("like: status %d body %s", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	var payload struct {
		LikeCount int `json:"likeCount"`
	}
	json.Unmarshal(env.Data, &payload)
	if payload.LikeCount != 1 {
		t.Errorf("likeCount = %d, want 1", payload.LikeCount)
	}

	rec = do(router, http.MethodPost, "/comments/"+c.CommentID+"/like", auth, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("double like: status %d, want 400", rec.Code)
	}

	rec = do(router, http.MethodDelete, "/comments/"+c.CommentID+"/like", auth, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlike: status %d", rec.Code)
	}
	rec = do(router, http.MethodDelete, "/comments/"+c.CommentID+"/like", auth, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unlike when not liked: status %d, want 400", rec.Code)
	}
}

func TestListByUserJoinsPost(t *testing.T) {
	st, router := newServer(t)
	seedUser(t, st, "u1")
	seedPost(t, st, "p1", "u1")
	auth := bearer(t, "u1", models.RoleUser)

	createComment(t, router, auth, map[string]any{"postid": "p1", "content": "mine"})

	rec := do(router, http.MethodGet, "/comments/user/u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	env := decode(t, rec)
	var out []struct {
		models.Comment
		PostTitle string `json:"post_title"`
		PostSlug  string `json:"post_slug"`
	}
	json.Unmarshal(env.Data, &out)
	if len(out) != 1 {
		t.Fatalf("count = %d, want 1", len(out))
	}
	if out[0].PostTitle != "Post p1" || out[0].PostSlug != "post-p1" {
		t.Errorf("post join = %q / %q", out[0].PostTitle, out[0].PostSlug)
	}
}
