// Package store defines the persistence contracts for users, posts and
// comments. Implementations live in store/mongostore (production) and
// store/memstore (tests, dev mode). Handlers depend on these interfaces
// only, so the backing store is an explicit constructor-injected handle
// rather than ambient package state.
package store

import (
	"context"
	"errors"
	"time"

	"quill/models"
)

var (
	ErrNotFound = errors.New("store: not found")

	// ErrConflict covers duplicate likes/bookmarks/follows and their
	// absent-state inverses (unlike of a never-liked post, etc.).
	ErrConflict = errors.New("store: conflict")

	ErrSlugTaken     = errors.New("store: slug taken")
	ErrUsernameTaken = errors.New("store: username taken")
	ErrEmailTaken    = errors.New("store: email taken")
	ErrSelfFollow    = errors.New("store: cannot follow yourself")
)

// Page is the common pagination request.
type Page struct {
	Number int // 1-based
	Limit  int
}

func (p Page) Skip() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// PostFilter narrows ListPosts. Zero values mean "no constraint".
type PostFilter struct {
	Status string
	Tag    string
	Author string
	Search string // matched against title, content and tags
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, page Page) ([]models.User, int64, error)
	UpdateUser(ctx context.Context, id string, set map[string]any) error

	// Summaries resolves ids to author projections. Unknown ids are
	// simply absent from the result.
	Summaries(ctx context.Context, ids []string) (map[string]models.AuthorSummary, error)

	// Follow appends targetID to follower's following set and followerID
	// to the target's followers set, both via idempotent set writes.
	// ErrConflict if already following, ErrSelfFollow, ErrNotFound.
	Follow(ctx context.Context, followerID, targetID string) error
	Unfollow(ctx context.Context, followerID, targetID string) error

	AddBookmark(ctx context.Context, userID, postID string) error
	RemoveBookmark(ctx context.Context, userID, postID string) error

	// AddLikedPost / RemoveLikedPost maintain the user-side mirror of a
	// post's like set. Idempotent: repeating the write is harmless.
	AddLikedPost(ctx context.Context, userID, postID string) error
	RemoveLikedPost(ctx context.Context, userID, postID string) error
}

type PostStore interface {
	CreatePost(ctx context.Context, p *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*models.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdatePost(ctx context.Context, id string, set map[string]any) error
	DeletePost(ctx context.Context, id string) error

	ListPosts(ctx context.Context, f PostFilter, page Page) ([]models.Post, int64, error)
	GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error)
	FeaturedPosts(ctx context.Context, limit int) ([]models.Post, error)

	// AddLike inserts {userID, at} into the post's like set and returns
	// the new like count. The membership guard is part of the write, so
	// two concurrent likes from the same user record exactly one entry;
	// the loser gets ErrConflict.
	AddLike(ctx context.Context, postID, userID string, at time.Time) (int, error)
	RemoveLike(ctx context.Context, postID, userID string) (int, error)

	IncrementViews(ctx context.Context, postID string) error

	// Trending ranks published posts with publishedAt >= since by
	// 2*likes + 0.1*views, score desc then publishedAt desc.
	Trending(ctx context.Context, since time.Time, limit int) ([]models.TrendingPost, error)

	TagCounts(ctx context.Context, limit int) ([]models.TagCount, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, c *models.Comment) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	UpdateComment(ctx context.Context, id, content string, at time.Time) error

	// DeleteCommentCascade removes the comment and, when it is
	// top-level, all of its direct replies. Returns the number of
	// comments removed.
	DeleteCommentCascade(ctx context.Context, id string) (int64, error)

	ListTopLevel(ctx context.Context, postID string, page Page) ([]models.Comment, int64, error)
	ListReplies(ctx context.Context, parentIDs []string) ([]models.Comment, error)
	ListByUser(ctx context.Context, userID string, page Page) ([]models.Comment, int64, error)

	LikeComment(ctx context.Context, commentID, userID string) (int, error)
	UnlikeComment(ctx context.Context, commentID, userID string) (int, error)
}

// RepairReport summarizes one reconciliation pass over the two-sided
// relationship data.
type RepairReport struct {
	FollowEdgesRepaired int `json:"follow_edges_repaired"`
	LikeMirrorsRepaired int `json:"like_mirrors_repaired"`
	DanglingBookmarks   int `json:"dangling_bookmarks_removed"`
	DanglingLikedPosts  int `json:"dangling_liked_posts_removed"`
	UsersScanned        int `json:"users_scanned"`
	PostsScanned        int `json:"posts_scanned"`
}

// Reconciler detects and repairs one-sided engagement edges left behind by
// a crash between the two writes of a paired mutation.
type Reconciler interface {
	Repair(ctx context.Context) (RepairReport, error)
}

// Store bundles the per-entity contracts a fully wired server needs.
type Store interface {
	UserStore
	PostStore
	CommentStore
	Reconciler
}
