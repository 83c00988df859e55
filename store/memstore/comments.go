package memstore

import (
	"context"
	"sort"
	"time"

	"quill/models"
	"quill/store"
)

func (s *Store) CreateComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[c.CommentID] = cloneComment(c)
	s.commentOrder = append(s.commentOrder, c.CommentID)
	return nil
}

func (s *Store) GetCommentByID(_ context.Context, id string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneComment(c), nil
}

func (s *Store) UpdateComment(_ context.Context, id, content string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Content = content
	c.IsEdited = true
	c.EditedAt = &at
	return nil
}

func (s *Store) DeleteCommentCascade(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return 0, store.ErrNotFound
	}
	var deleted int64
	for cid, c := range s.comments {
		if c.ParentID == id {
			delete(s.comments, cid)
			deleted++
		}
	}
	delete(s.comments, id)
	return deleted + 1, nil
}

func (s *Store) listComments(match func(*models.Comment) bool, newestFirst bool) []models.Comment {
	out := []models.Comment{}
	for _, id := range s.commentOrder {
		c, ok := s.comments[id]
		if !ok || !match(c) {
			continue
		}
		out = append(out, *cloneComment(c))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) ListTopLevel(_ context.Context, postID string, page store.Page) ([]models.Comment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.listComments(func(c *models.Comment) bool {
		return c.PostID == postID && c.ParentID == ""
	}, true)
	return paginate(all, page), int64(len(all)), nil
}

func (s *Store) ListReplies(_ context.Context, parentIDs []string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listComments(func(c *models.Comment) bool {
		return c.ParentID != "" && contains(parentIDs, c.ParentID)
	}, false), nil
}

func (s *Store) ListByUser(_ context.Context, userID string, page store.Page) ([]models.Comment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.listComments(func(c *models.Comment) bool {
		return c.Author == userID
	}, true)
	return paginate(all, page), int64(len(all)), nil
}

func (s *Store) LikeComment(_ context.Context, commentID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[commentID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if c.LikedBy(userID) {
		return 0, store.ErrConflict
	}
	c.Likes = append(c.Likes, models.CommentLike{UserID: userID})
	return len(c.Likes), nil
}

func (s *Store) UnlikeComment(_ context.Context, commentID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[commentID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if !c.LikedBy(userID) {
		return 0, store.ErrConflict
	}
	kept := c.Likes[:0]
	for _, l := range c.Likes {
		if l.UserID != userID {
			kept = append(kept, l)
		}
	}
	c.Likes = kept
	return len(c.Likes), nil
}
