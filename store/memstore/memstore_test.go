package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quill/models"
	"quill/store"
)

func seedUser(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.CreateUser(context.Background(), &models.User{
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

func seedPost(t *testing.T, s *Store, id, author string, published bool) {
	t.Helper()
	p := &models.Post{
		PostID:    id,
		Title:     "Post " + id,
		Slug:      "post-" + id,
		Content:   "content",
		Author:    author,
		Tags:      []string{},
		Status:    models.StatusDraft,
		Likes:     []models.PostLike{},
		CreatedAt: time.Now(),
	}
	if published {
		now := time.Now()
		p.Status = models.StatusPublished
		p.PublishedAt = &now
	}
	if err := s.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("seed post %s: %v", id, err)
	}
}

func TestFollowSymmetry(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")

	if err := s.Follow(ctx, "u1", "u2"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	u1, _ := s.GetUserByID(ctx, "u1")
	u2, _ := s.GetUserByID(ctx, "u2")
	if len(u1.Following) != 1 || u1.Following[0] != "u2" {
		t.Errorf("u1.following = %v, want [u2]", u1.Following)
	}
	if len(u2.Followers) != 1 || u2.Followers[0] != "u1" {
		t.Errorf("u2.followers = %v, want [u1]", u2.Followers)
	}

	if err := s.Follow(ctx, "u1", "u2"); !errors.Is(err, store.ErrConflict) {
		t.Errorf("repeat follow: got %v, want ErrConflict", err)
	}

	if err := s.Unfollow(ctx, "u1", "u2"); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	u1, _ = s.GetUserByID(ctx, "u1")
	u2, _ = s.GetUserByID(ctx, "u2")
	if len(u1.Following) != 0 || len(u2.Followers) != 0 {
		t.Errorf("edges not cleared: following=%v followers=%v", u1.Following, u2.Followers)
	}

	if err := s.Unfollow(ctx, "u1", "u2"); !errors.Is(err, store.ErrConflict) {
		t.Errorf("unfollow when not following: got %v, want ErrConflict", err)
	}
}

func TestSelfFollowRejected(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "u1")

	if err := s.Follow(ctx, "u1", "u1"); !errors.Is(err, store.ErrSelfFollow) {
		t.Fatalf("got %v, want ErrSelfFollow", err)
	}
	u1, _ := s.GetUserByID(ctx, "u1")
	if len(u1.Following) != 0 || len(u1.Followers) != 0 {
		t.Errorf("self-follow mutated edges: %v / %v", u1.Following, u1.Followers)
	}
}

func TestAddLikeGuard(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedPost(t, s, "p1", "u1", true)

	n, err := s.AddLike(ctx, "p1", "u1", time.Now())
	if err != nil || n != 1 {
		t.Fatalf("first like: n=%d err=%v", n, err)
	}
	if _, err := s.AddLike(ctx, "p1", "u1", time.Now()); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second like: got %v, want ErrConflict", err)
	}
	p, _ := s.GetPostByID(ctx, "p1")
	if len(p.Likes) != 1 {
		t.Errorf("like set has %d entries, want 1", len(p.Likes))
	}

	n, err = s.RemoveLike(ctx, "p1", "u1")
	if err != nil || n != 0 {
		t.Fatalf("unlike: n=%d err=%v", n, err)
	}
	if _, err := s.RemoveLike(ctx, "p1", "u1"); !errors.Is(err, store.ErrConflict) {
		t.Errorf("unlike when not liked: got %v, want ErrConflict", err)
	}
}

func TestConcurrentLikeSingleEntry(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedPost(t, s, "p1", "u1", true)

	// Two rapid likes from the same user: exactly one lands, the other
	// is rejected as a duplicate.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.AddLike(ctx, "p1", "u1", time.Now())
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, store.ErrConflict):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Errorf("got %d successes and %d conflicts, want 1 and 1", ok, conflict)
	}
	p, _ := s.GetPostByID(ctx, "p1")
	if len(p.Likes) != 1 {
		t.Errorf("like set has %d entries, want 1", len(p.Likes))
	}
}

func TestAddLikeMissingPost(t *testing.T) {
	s := New()
	if _, err := s.AddLike(context.Background(), "nope", "u1", time.Now()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteCommentCascade(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	top := &models.Comment{CommentID: "c1", PostID: "p1", Author: "u1", Content: "top", CreatedAt: now}
	r1 := &models.Comment{CommentID: "c2", PostID: "p1", Author: "u2", Content: "r1", ParentID: "c1", CreatedAt: now}
	r2 := &models.Comment{CommentID: "c3", PostID: "p1", Author: "u3", Content: "r2", ParentID: "c1", CreatedAt: now}
	other := &models.Comment{CommentID: "c4", PostID: "p1", Author: "u1", Content: "other", CreatedAt: now}
	for _, c := range []*models.Comment{top, r1, r2, other} {
		if err := s.CreateComment(ctx, c); err != nil {
			t.Fatalf("create %s: %v", c.CommentID, err)
		}
	}

	deleted, err := s.DeleteCommentCascade(ctx, "c1")
	if err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted %d comments, want 3", deleted)
	}
	if _, err := s.GetCommentByID(ctx, "c2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("reply survived cascade")
	}
	if _, err := s.GetCommentByID(ctx, "c4"); err != nil {
		t.Errorf("unrelated comment removed: %v", err)
	}
}

func TestTrendingRanking(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "author")

	// p1: 5 likes, 200 views -> score 30. p2: 1 like, 5000 views -> 502.
	seedPost(t, s, "p1", "author", true)
	seedPost(t, s, "p2", "author", true)
	for i := 0; i < 5; i++ {
		seedUser(t, s, string(rune('a'+i)))
		if _, err := s.AddLike(ctx, "p1", string(rune('a'+i)), time.Now()); err != nil {
			t.Fatalf("like p1: %v", err)
		}
	}
	if _, err := s.AddLike(ctx, "p2", "a", time.Now()); err != nil {
		t.Fatalf("like p2: %v", err)
	}
	for i := 0; i < 200; i++ {
		s.IncrementViews(ctx, "p1")
	}
	for i := 0; i < 5000; i++ {
		s.IncrementViews(ctx, "p2")
	}

	// p3 published outside the window.
	old := time.Now().Add(-30 * 24 * time.Hour)
	p3 := &models.Post{
		PostID: "p3", Title: "old", Slug: "old", Content: "x", Author: "author",
		Status: models.StatusPublished, PublishedAt: &old,
		Tags: []string{}, Likes: []models.PostLike{},
	}
	if err := s.CreatePost(ctx, p3); err != nil {
		t.Fatalf("create p3: %v", err)
	}

	since := time.Now().Add(-7 * 24 * time.Hour)
	ranked, err := s.Trending(ctx, since, 10)
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("got %d posts, want 2", len(ranked))
	}
	if ranked[0].PostID != "p2" || ranked[1].PostID != "p1" {
		t.Errorf("order = [%s %s], want [p2 p1]", ranked[0].PostID, ranked[1].PostID)
	}
	if ranked[0].Score != 502 {
		t.Errorf("p2 score = %v, want 502", ranked[0].Score)
	}
	if ranked[1].Score != 30 {
		t.Errorf("p1 score = %v, want 30", ranked[1].Score)
	}
	if ranked[0].AuthorInfo.Username != "user_author" {
		t.Errorf("author summary not joined: %+v", ranked[0].AuthorInfo)
	}
}

func TestRepairOneSidedEdges(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")
	seedPost(t, s, "p1", "u1", true)

	// Simulate a crash between the two writes: forward edge only.
	s.mu.Lock()
	s.users["u1"].Following = []string{"u2"}
	// Like recorded on the post but missing from the user mirror.
	s.posts["p1"].Likes = []models.PostLike{{UserID: "u2", CreatedAt: time.Now()}}
	// Dangling bookmark on a deleted post.
	s.users["u2"].Bookmarks = []string{"gone"}
	s.mu.Unlock()

	report, err := s.Repair(ctx)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if report.FollowEdgesRepaired != 1 {
		t.Errorf("follow edges repaired = %d, want 1", report.FollowEdgesRepaired)
	}
	if report.LikeMirrorsRepaired != 1 {
		t.Errorf("like mirrors repaired = %d, want 1", report.LikeMirrorsRepaired)
	}
	if report.DanglingBookmarks != 1 {
		t.Errorf("dangling bookmarks = %d, want 1", report.DanglingBookmarks)
	}

	u2, _ := s.GetUserByID(ctx, "u2")
	if !contains(u2.Followers, "u1") {
		t.Errorf("reverse follow edge not restored: %v", u2.Followers)
	}
	if !contains(u2.LikedPosts, "p1") {
		t.Errorf("like mirror not restored: %v", u2.LikedPosts)
	}
	if len(u2.Bookmarks) != 0 {
		t.Errorf("dangling bookmark kept: %v", u2.Bookmarks)
	}

	// A second pass finds nothing left to fix.
	again, err := s.Repair(ctx)
	if err != nil {
		t.Fatalf("second repair: %v", err)
	}
	if again.FollowEdgesRepaired != 0 || again.LikeMirrorsRepaired != 0 || again.DanglingBookmarks != 0 {
		t.Errorf("second pass repaired something: %+v", again)
	}
}

func TestRepairPrunesBackwardOnlyFollow(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")

	// Residue of a crashed unfollow: u1 already removed u2 from its
	// following list, but u2 still carries the backward edge. The
	// forward edge is authoritative, so the stale entry must be pruned,
	// not turned back into a follow.
	s.mu.Lock()
	s.users["u2"].Followers = []string{"u1"}
	s.mu.Unlock()

	report, err := s.Repair(ctx)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if report.FollowEdgesRepaired != 1 {
		t.Errorf("follow edges repaired = %d, want 1", report.FollowEdgesRepaired)
	}

	u1, _ := s.GetUserByID(ctx, "u1")
	u2, _ := s.GetUserByID(ctx, "u2")
	if len(u1.Following) != 0 {
		t.Errorf("unfollow was resurrected: u1.Following = %v", u1.Following)
	}
	if len(u2.Followers) != 0 {
		t.Errorf("stale backward edge kept: u2.Followers = %v", u2.Followers)
	}
}
