package mongostore

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quill/models"
	"quill/store"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	count, err := s.users.CountDocuments(ctx, bson.M{"username": u.Username})
	if err != nil {
		return err
	}
	if count > 0 {
		return store.ErrUsernameTaken
	}
	count, err = s.users.CountDocuments(ctx, bson.M{"email": u.Email})
	if err != nil {
		return err
	}
	if count > 0 {
		return store.ErrEmailTaken
	}
	_, err = s.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return classifyDuplicate(err)
	}
	return err
}

// classifyDuplicate maps a unique-index violation raced past the
// pre-insert checks to the field that collided. The server names the
// offending index in the write error message.
func classifyDuplicate(err error) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, "email") {
				return store.ErrEmailTaken
			}
		}
	}
	return store.ErrUsernameTaken
}

func (s *Store) getUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, bson.M{"userid": id})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, bson.M{"username": username})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, bson.M{"email": email})
}

func (s *Store) ListUsers(ctx context.Context, page store.Page) ([]models.User, int64, error) {
	total, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Limit))
	cursor, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, set map[string]any) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"userid": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Summaries(ctx context.Context, ids []string) (map[string]models.AuthorSummary, error) {
	out := map[string]models.AuthorSummary{}
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{
		"userid": 1, "name": 1, "username": 1, "avatar": 1,
	})
	cursor, err := s.users.Find(ctx, bson.M{"userid": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var summaries []models.AuthorSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	for _, a := range summaries {
		out[a.UserID] = a
	}
	return out, nil
}

// Follow performs the symmetric two-sided write as two sequential guarded
// updates. Each side is an idempotent set write, so a crash between the
// two leaves an edge the reconciliation pass can repair.
func (s *Store) Follow(ctx context.Context, followerID, targetID string) error {
	if followerID == targetID {
		return store.ErrSelfFollow
	}
	count, err := s.users.CountDocuments(ctx, bson.M{"userid": targetID})
	if err != nil {
		return err
	}
	if count == 0 {
		return store.ErrNotFound
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{"userid": followerID, "following": bson.M{"$ne": targetID}},
		bson.M{"$push": bson.M{"following": targetID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetUserByID(ctx, followerID); err != nil {
			return err
		}
		return store.ErrConflict
	}

	_, err = s.users.UpdateOne(ctx,
		bson.M{"userid": targetID},
		bson.M{"$addToSet": bson.M{"followers": followerID}},
	)
	return err
}

func (s *Store) Unfollow(ctx context.Context, followerID, targetID string) error {
	count, err := s.users.CountDocuments(ctx, bson.M{"userid": targetID})
	if err != nil {
		return err
	}
	if count == 0 {
		return store.ErrNotFound
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{"userid": followerID, "following": targetID},
		bson.M{"$pull": bson.M{"following": targetID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetUserByID(ctx, followerID); err != nil {
			return err
		}
		return store.ErrConflict
	}

	_, err = s.users.UpdateOne(ctx,
		bson.M{"userid": targetID},
		bson.M{"$pull": bson.M{"followers": followerID}},
	)
	return err
}

// AddBookmark appends to the bare ordered id list. The membership guard is
// part of the filter, so the duplicate check cannot race with itself.
func (s *Store) AddBookmark(ctx context.Context, userID, postID string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"userid": userID, "bookmarks": bson.M{"$ne": postID}},
		bson.M{"$push": bson.M{"bookmarks": postID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetUserByID(ctx, userID); err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

func (s *Store) RemoveBookmark(ctx context.Context, userID, postID string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"userid": userID, "bookmarks": postID},
		bson.M{"$pull": bson.M{"bookmarks": postID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetUserByID(ctx, userID); err != nil {
			return err
		}
		return store.ErrConflict
	}
	return nil
}

func (s *Store) AddLikedPost(ctx context.Context, userID, postID string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$addToSet": bson.M{"liked_posts": postID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) RemoveLikedPost(ctx context.Context, userID, postID string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$pull": bson.M{"liked_posts": postID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
