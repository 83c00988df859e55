package admin_test

import (
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
	"quill/store"
	"quill/store/memstore"
)

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

func reconcile(router *httprouter.Router, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReconcileRequiresAdmin(t *testing.T) {
	_, router := newServer(t)

	if rec := reconcile(router, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status %d, want 401", rec.Code)
	}
	if rec := reconcile(router, bearer(t, "u1", models.RoleUser)); rec.Code != http.StatusForbidden {
		t.Errorf("plain user: status %d, want 403", rec.Code)
	}
}

func TestReconcileRepairsSeededDrift(t *testing.T) {
	st, router := newServer(t)
	ctx := context.Background()

	for _, id := range []string{"u1", "u2"} {
		err := st.CreateUser(ctx, &models.User{
			UserID: id, Name: id, Username: "user_" + id, Email: id + "@example.com",
			Role: models.RoleUser, Followers: []string{}, Following: []string{},
			Bookmarks: []string{}, LikedPosts: []string{}, CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	now := time.Now()
	if err := st.CreatePost(ctx, &models.Post{
		PostID: "p1", Title: "P", Slug: "p", Content: "x", Author: "u1",
		Status: models.StatusPublished, PublishedAt: &now,
		Tags: []string{}, Likes: []models.PostLike{{UserID: "u2", CreatedAt: now}},
	}); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	// Like exists on the post, but u2's mirror is missing.

	rec := reconcile(router, bearer(t, "root", models.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Success bool               `json:"success"`
		Data    store.RepairReport `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.LikeMirrorsRepaired != 1 {
		t.Errorf("like mirrors repaired = %d, want 1", env.Data.LikeMirrorsRepaired)
	}
	if env.Data.UsersScanned != 2 || env.Data.PostsScanned != 1 {
		t.Errorf("scan counts = %d users / %d posts", env.Data.UsersScanned, env.Data.PostsScanned)
	}

	u2, _ := st.GetUserByID(ctx, "u2")
	if len(u2.LikedPosts) != 1 || u2.LikedPosts[0] != "p1" {
		t.Errorf("mirror not restored: %v", u2.LikedPosts)
	}
}
