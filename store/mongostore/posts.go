package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quill/models"
	"quill/store"
)

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	_, err := s.posts.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrSlugTaken
	}
	return err
}

func (s *Store) getPost(ctx context.Context, filter bson.M) (*models.Post, error) {
	var p models.Post
	err := s.posts.FindOne(ctx, filter).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getPost(ctx, bson.M{"postid": id})
}

// GetPostBySlug resolves published posts only; drafts are not addressable
// by slug.
func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.getPost(ctx, bson.M{"slug": slug, "status": models.StatusPublished})
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	count, err := s.posts.CountDocuments(ctx, bson.M{"slug": slug})
	return count > 0, err
}

func (s *Store) UpdatePost(ctx context.Context, id string, set map[string]any) error {
	res, err := s.posts.UpdateOne(ctx, bson.M{"postid": id}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrSlugTaken
		}
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"postid": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func postFilterQuery(f store.PostFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Tag != "" {
		filter["tags"] = bson.M{"$in": []string{f.Tag}}
	}
	if f.Author != "" {
		filter["author"] = f.Author
	}
	if f.Search != "" {
		re := primitive.Regex{Pattern: f.Search, Options: "i"}
		filter["$or"] = []bson.M{
			{"title": re},
			{"content": re},
			{"tags": re},
		}
	}
	return filter
}

func (s *Store) ListPosts(ctx context.Context, f store.PostFilter, page store.Page) ([]models.Post, int64, error) {
	filter := postFilterQuery(f)
	total, err := s.posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Limit))
	cursor, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// GetPostsByIDs returns posts reordered to match ids, preserving the
// stored order of bookmark/liked lists. Missing ids are skipped.
func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	cursor, err := s.posts.Find(ctx, bson.M{"postid": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var fetched []models.Post
	if err := cursor.All(ctx, &fetched); err != nil {
		return nil, err
	}
	byID := make(map[string]models.Post, len(fetched))
	for _, p := range fetched {
		byID[p.PostID] = p
	}
	ordered := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (s *Store) FeaturedPosts(ctx context.Context, limit int) ([]models.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.posts.Find(ctx, bson.M{"status": models.StatusPublished, "featured": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) likeCount(ctx context.Context, postID string) (int, error) {
	p, err := s.GetPostByID(ctx, postID)
	if err != nil {
		return 0, err
	}
	return len(p.Likes), nil
}

// AddLike carries the membership guard in the update filter: a document
// matches only when the user is not yet in the like set, so the
// check-then-act cannot race against a duplicate request.
func (s *Store) AddLike(ctx context.Context, postID, userID string, at time.Time) (int, error) {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"postid": postID, "likes.userid": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"likes": models.PostLike{UserID: userID, CreatedAt: at}}},
	)
	if err != nil {
		return 0, err
	}
	if res.MatchedCount == 0 {
		count, err := s.posts.CountDocuments(ctx, bson.M{"postid": postID})
		if err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, store.ErrNotFound
		}
		return 0, store.ErrConflict
	}
	return s.likeCount(ctx, postID)
}

func (s *Store) RemoveLike(ctx context.Context, postID, userID string) (int, error) {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"postid": postID, "likes.userid": userID},
		bson.M{"$pull": bson.M{"likes": bson.M{"userid": userID}}},
	)
	if err != nil {
		return 0, err
	}
	if res.MatchedCount == 0 {
		count, err := s.posts.CountDocuments(ctx, bson.M{"postid": postID})
		if err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, store.ErrNotFound
		}
		return 0, store.ErrConflict
	}
	return s.likeCount(ctx, postID)
}

func (s *Store) IncrementViews(ctx context.Context, postID string) error {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"postid": postID},
		bson.M{"$inc": bson.M{"views": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Trending runs the whole ranking in one aggregation: window filter,
// derived score, deterministic sort, author join.
func (s *Store) Trending(ctx context.Context, since time.Time, limit int) ([]models.TrendingPost, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "status", Value: models.StatusPublished},
			{Key: "published_at", Value: bson.D{{Key: "$gte", Value: since}}},
		}}},
		bson.D{{Key: "$addFields", Value: bson.D{
			{Key: "like_count", Value: bson.D{{Key: "$size", Value: "$likes"}}},
			{Key: "score", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$multiply", Value: bson.A{bson.D{{Key: "$size", Value: "$likes"}}, 2}}},
				bson.D{{Key: "$multiply", Value: bson.A{"$views", 0.1}}},
			}}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "score", Value: -1},
			{Key: "published_at", Value: -1},
		}}},
		bson.D{{Key: "$limit", Value: limit}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "author"},
			{Key: "foreignField", Value: "userid"},
			{Key: "as", Value: "author_info"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "userid", Value: 1},
					{Key: "name", Value: 1},
					{Key: "username", Value: 1},
					{Key: "avatar", Value: 1},
				}}},
			}},
		}}},
		bson.D{{Key: "$unwind", Value: "$author_info"}},
	}

	cursor, err := s.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ranked := []models.TrendingPost{}
	if err := cursor.All(ctx, &ranked); err != nil {
		return nil, err
	}
	return ranked, nil
}

func (s *Store) TagCounts(ctx context.Context, limit int) ([]models.TagCount, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "status", Value: models.StatusPublished}}}},
		bson.D{{Key: "$unwind", Value: "$tags"}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tags"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	}

	cursor, err := s.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tags := []models.TagCount{}
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
