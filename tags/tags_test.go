package tags_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

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

func seedPost(t *testing.T, st *memstore.Store, id, status string, tags []string) {
	t.Helper()
	now := time.Now()
	p := &models.Post{
		PostID:    id,
		Title:     "Post " + id,
		Slug:      "post-" + id,
		Content:   "content",
		Author:    "author",
		Tags:      tags,
		Status:    status,
		Likes:     []models.PostLike{},
		CreatedAt: now,
	}
	if status == models.StatusPublished {
		p.PublishedAt = &now
	}
	if err := st.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("seed post %s: %v", id, err)
	}
}

func get(router *httprouter.Router, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTagCounts(t *testing.T) {
	st, router := newServer(t)
	seedPost(t, st, "p1", models.StatusPublished, []string{"go", "web"})
	seedPost(t, st, "p2", models.StatusPublished, []string{"go"})
	// Draft tags never count.
	seedPost(t, st, "p3", models.StatusDraft, []string{"go", "hidden"})

	rec := get(router, "/tags")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var env envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	var counts []models.TagCount
	json.Unmarshal(env.Data, &counts)

	if len(counts) != 2 {
		t.Fatalf("got %d tags, want 2", len(counts))
	}
	if counts[0].Name != "go" || counts[0].Count != 2 {
		t.Errorf("top tag = %+v, want go/2", counts[0])
	}
	if counts[1].Name != "web" || counts[1].Count != 1 {
		t.Errorf("second tag = %+v, want web/1", counts[1])
	}
}

func TestPostsByTag(t *testing.T) {
	st, router := newServer(t)
	seedPost(t, st, "p1", models.StatusPublished, []string{"go"})
	seedPost(t, st, "p2", models.StatusPublished, []string{"web"})

	rec := get(router, "/tags/go/posts")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var env envelope
	json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Count != 1 {
		t.Errorf("count = %d, want 1", env.Count)
	}
	var posts []models.Post
	json.Unmarshal(env.Data, &posts)
	if len(posts) != 1 || posts[0].PostID != "p1" {
		t.Errorf("posts = %+v, want [p1]", posts)
	}
}
