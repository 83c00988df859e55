package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quill/models"
	"quill/store"
)

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	_, err := s.comments.InsertOne(ctx, c)
	return err
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	err := s.comments.FindOne(ctx, bson.M{"commentid": id}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateComment(ctx context.Context, id, content string, at time.Time) error {
	res, err := s.comments.UpdateOne(ctx, bson.M{"commentid": id}, bson.M{"$set": bson.M{
		"content":   content,
		"is_edited": true,
		"edited_at": at,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteCommentCascade removes the comment and its direct replies.
// Replies-to-replies are not modeled, so one level is the whole subtree.
func (s *Store) DeleteCommentCascade(ctx context.Context, id string) (int64, error) {
	replies, err := s.comments.DeleteMany(ctx, bson.M{"parent_id": id})
	if err != nil {
		return 0, err
	}
	res, err := s.comments.DeleteOne(ctx, bson.M{"commentid": id})
	if err != nil {
		return replies.DeletedCount, err
	}
	if res.DeletedCount == 0 {
		return replies.DeletedCount, store.ErrNotFound
	}
	return replies.DeletedCount + res.DeletedCount, nil
}

func (s *Store) ListTopLevel(ctx context.Context, postID string, page store.Page) ([]models.Comment, int64, error) {
	filter := bson.M{"postid": postID, "parent_id": bson.M{"$in": bson.A{nil, ""}}}
	total, err := s.comments.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Limit))
	cursor, err := s.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (s *Store) ListReplies(ctx context.Context, parentIDs []string) ([]models.Comment, error) {
	if len(parentIDs) == 0 {
		return []models.Comment{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.comments.Find(ctx, bson.M{"parent_id": bson.M{"$in": parentIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	replies := []models.Comment{}
	if err := cursor.All(ctx, &replies); err != nil {
		return nil, err
	}
	return replies, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string, page store.Page) ([]models.Comment, int64, error) {
	filter := bson.M{"author": userID}
	total, err := s.comments.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Limit))
	cursor, err := s.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (s *Store) commentLikeCount(ctx context.Context, commentID string) (int, error) {
	c, err := s.GetCommentByID(ctx, commentID)
	if err != nil {
		return 0, err
	}
	return len(c.Likes), nil
}

func (s *Store) LikeComment(ctx context.Context, commentID, userID string) (int, error) {
	res, err := s.comments.UpdateOne(ctx,
		bson.M{"commentid": commentID, "likes.userid": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"likes": models.CommentLike{UserID: userID}}},
	)
	if err != nil {
		return 0, err
	}
	if res.MatchedCount == 0 {
		count, err := s.comments.CountDocuments(ctx, bson.M{"commentid": commentID})
		if err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, store.ErrNotFound
		}
		return 0, store.ErrConflict
	}
	return s.commentLikeCount(ctx, commentID)
}

func (s *Store) UnlikeComment(ctx context.Context, commentID, userID string) (int, error) {
	res, err := s.comments.UpdateOne(ctx,
		bson.M{"commentid": commentID, "likes.userid": userID},
		bson.M{"$pull": bson.M{"likes": bson.M{"userid": userID}}},
	)
	if err != nil {
		return 0, err
	}
	if res.MatchedCount == 0 {
		count, err := s.comments.CountDocuments(ctx, bson.M{"commentid": commentID})
		if err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, store.ErrNotFound
		}
		return 0, store.ErrConflict
	}
	return s.commentLikeCount(ctx, commentID)
}
