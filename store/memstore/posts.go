package memstore

import (
	"context"
	"sort"
	"time"

	"quill/models"
	"quill/store"
)

func (s *Store) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.posts {
		if existing.Slug == p.Slug {
			return store.ErrSlugTaken
		}
	}
	s.posts[p.PostID] = clonePost(p)
	return nil
}

func (s *Store) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clonePost(p), nil
}

func (s *Store) GetPostBySlug(_ context.Context, slug string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.Slug == slug && p.Status == models.StatusPublished {
			return clonePost(p), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdatePost(_ context.Context, id string, set map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return store.ErrNotFound
	}
	if slug, ok := set["slug"].(string); ok {
		for otherID, other := range s.posts {
			if otherID != id && other.Slug == slug {
				return store.ErrSlugTaken
			}
		}
	}
	applyPostSet(p, set)
	return nil
}

func applyPostSet(p *models.Post, set map[string]any) {
	for k, v := range set {
		switch k {
		case "title":
			p.Title = v.(string)
		case "slug":
			p.Slug = v.(string)
		case "excerpt":
			p.Excerpt = v.(string)
		case "content":
			p.Content = v.(string)
		case "cover_image":
			p.CoverImage = v.(string)
		case "tags":
			p.Tags = append([]string{}, v.([]string)...)
		case "status":
			p.Status = v.(string)
		case "reading_time":
			p.ReadingTime = v.(int)
		case "featured":
			p.Featured = v.(bool)
		case "published_at":
			t := v.(time.Time)
			p.PublishedAt = &t
		case "updated_at":
			p.UpdatedAt = v.(time.Time)
		}
	}
}

func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) ListPosts(_ context.Context, f store.PostFilter, page store.Page) ([]models.Post, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []models.Post{}
	for _, p := range s.posts {
		if matchesFilter(p, f) {
			matched = append(matched, *clonePost(p))
		}
	}
	sortByPublished(matched)
	return paginate(matched, page), int64(len(matched)), nil
}

func (s *Store) GetPostsByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Post{}
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			out = append(out, *clonePost(p))
		}
	}
	return out, nil
}

func (s *Store) FeaturedPosts(_ context.Context, limit int) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []models.Post{}
	for _, p := range s.posts {
		if p.Status == models.StatusPublished && p.Featured {
			matched = append(matched, *clonePost(p))
		}
	}
	sortByPublished(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) AddLike(_ context.Context, postID, userID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if p.LikedBy(userID) {
		return 0, store.ErrConflict
	}
	p.Likes = append(p.Likes, models.PostLike{UserID: userID, CreatedAt: at})
	return len(p.Likes), nil
}

func (s *Store) RemoveLike(_ context.Context, postID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return 0, store.ErrNotFound
	}
	if !p.LikedBy(userID) {
		return 0, store.ErrConflict
	}
	kept := p.Likes[:0]
	for _, l := range p.Likes {
		if l.UserID != userID {
			kept = append(kept, l)
		}
	}
	p.Likes = kept
	return len(p.Likes), nil
}

func (s *Store) IncrementViews(_ context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return store.ErrNotFound
	}
	p.Views++
	return nil
}

func (s *Store) Trending(_ context.Context, since time.Time, limit int) ([]models.TrendingPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranked := []models.TrendingPost{}
	for _, p := range s.posts {
		if p.Status != models.StatusPublished || p.PublishedAt == nil || p.PublishedAt.Before(since) {
			continue
		}
		tp := models.TrendingPost{}
		tp.Post = *clonePost(p)
		tp.LikeCount = len(p.Likes)
		tp.Score = 2*float64(len(p.Likes)) + 0.1*float64(p.Views)
		if author, ok := s.users[p.Author]; ok {
			tp.AuthorInfo = models.AuthorSummary{
				UserID:   author.UserID,
				Name:     author.Name,
				Username: author.Username,
				Avatar:   author.Avatar,
			}
		}
		ranked = append(ranked, tp)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].PublishedAt.After(*ranked[j].PublishedAt)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *Store) TagCounts(_ context.Context, limit int) ([]models.TagCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int64{}
	for _, p := range s.posts {
		if p.Status != models.StatusPublished {
			continue
		}
		for _, t := range p.Tags {
			counts[t]++
		}
	}
	out := []models.TagCount{}
	for name, n := range counts {
		out = append(out, models.TagCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
