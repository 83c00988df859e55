// Package memstore is an in-memory store.Store with the same semantics as
// the MongoDB implementation. It backs the test suite and the -memory dev
// mode, where no mongod is available.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quill/models"
	"quill/store"
)

type Store struct {
	mu       sync.Mutex
	users    map[string]*models.User
	posts    map[string]*models.Post
	comments map[string]*models.Comment

	userOrder    []string
	commentOrder []string
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    map[string]*models.User{},
		posts:    map[string]*models.Post{},
		comments: map[string]*models.Comment{},
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Followers = append([]string{}, u.Followers...)
	c.Following = append([]string{}, u.Following...)
	c.Bookmarks = append([]string{}, u.Bookmarks...)
	c.LikedPosts = append([]string{}, u.LikedPosts...)
	return &c
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Tags = append([]string{}, p.Tags...)
	c.Likes = append([]models.PostLike{}, p.Likes...)
	return &c
}

func cloneComment(cm *models.Comment) *models.Comment {
	c := *cm
	c.Likes = append([]models.CommentLike{}, cm.Likes...)
	return &c
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return store.ErrUsernameTaken
		}
		if existing.Email == u.Email {
			return store.ErrEmailTaken
		}
	}
	s.users[u.UserID] = cloneUser(u)
	s.userOrder = append(s.userOrder, u.UserID)
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context, page store.Page) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := int64(len(s.userOrder))
	out := []models.User{}
	// Newest first, like the Mongo sort on created_at.
	for i := len(s.userOrder) - 1; i >= 0; i-- {
		out = append(out, *cloneUser(s.users[s.userOrder[i]]))
	}
	return paginate(out, page), total, nil
}

func (s *Store) UpdateUser(_ context.Context, id string, set map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	applyUserSet(u, set)
	return nil
}

func applyUserSet(u *models.User, set map[string]any) {
	for k, v := range set {
		switch k {
		case "name":
			u.Name = v.(string)
		case "bio":
			u.Bio = v.(string)
		case "location":
			u.Location = v.(string)
		case "website":
			u.Website = v.(string)
		case "avatar":
			u.Avatar = v.(string)
		case "social_links":
			u.SocialLinks = v.(models.SocialLinks)
		case "password":
			u.Password = v.(string)
		case "updated_at":
			u.UpdatedAt = v.(time.Time)
		}
	}
}

func (s *Store) Summaries(_ context.Context, ids []string) (map[string]models.AuthorSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]models.AuthorSummary{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = models.AuthorSummary{
				UserID:   u.UserID,
				Name:     u.Name,
				Username: u.Username,
				Avatar:   u.Avatar,
			}
		}
	}
	return out, nil
}

func (s *Store) Follow(_ context.Context, followerID, targetID string) error {
	if followerID == targetID {
		return store.ErrSelfFollow
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.users[targetID]
	if !ok {
		return store.ErrNotFound
	}
	follower, ok := s.users[followerID]
	if !ok {
		return store.ErrNotFound
	}
	if contains(follower.Following, targetID) {
		return store.ErrConflict
	}
	follower.Following = append(follower.Following, targetID)
	if !contains(target.Followers, followerID) {
		target.Followers = append(target.Followers, followerID)
	}
	return nil
}

func (s *Store) Unfollow(_ context.Context, followerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.users[targetID]
	if !ok {
		return store.ErrNotFound
	}
	follower, ok := s.users[followerID]
	if !ok {
		return store.ErrNotFound
	}
	if !contains(follower.Following, targetID) {
		return store.ErrConflict
	}
	follower.Following = remove(follower.Following, targetID)
	target.Followers = remove(target.Followers, followerID)
	return nil
}

func (s *Store) AddBookmark(_ context.Context, userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if contains(u.Bookmarks, postID) {
		return store.ErrConflict
	}
	u.Bookmarks = append(u.Bookmarks, postID)
	return nil
}

func (s *Store) RemoveBookmark(_ context.Context, userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if !contains(u.Bookmarks, postID) {
		return store.ErrConflict
	}
	u.Bookmarks = remove(u.Bookmarks, postID)
	return nil
}

func (s *Store) AddLikedPost(_ context.Context, userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if !contains(u.LikedPosts, postID) {
		u.LikedPosts = append(u.LikedPosts, postID)
	}
	return nil
}

func (s *Store) RemoveLikedPost(_ context.Context, userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.LikedPosts = remove(u.LikedPosts, postID)
	return nil
}

func paginate[T any](items []T, page store.Page) []T {
	start := page.Skip()
	if start >= len(items) {
		return []T{}
	}
	end := len(items)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	return items[start:end]
}

// matchesFilter mirrors the Mongo regex filter with case-insensitive
// substring matching.
func matchesFilter(p *models.Post, f store.PostFilter) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Tag != "" && !contains(p.Tags, f.Tag) {
		return false
	}
	if f.Author != "" && p.Author != f.Author {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Content), needle) &&
			!containsFold(p.Tags, needle) {
			return false
		}
	}
	return true
}

func containsFold(tags []string, needle string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func sortByPublished(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		pi, pj := posts[i].PublishedAt, posts[j].PublishedAt
		switch {
		case pi == nil && pj == nil:
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.After(*pj)
		}
	})
}
