// Package mongostore is the MongoDB implementation of store.Store.
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quill/store"
)

type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	posts    *mongo.Collection
	comments *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Connect dials MongoDB and returns a ready store handle. The caller owns
// the handle and passes it into route construction; nothing here is global.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return New(client, dbName), nil
}

func New(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		client:   client,
		users:    db.Collection("users"),
		posts:    db.Collection("posts"),
		comments: db.Collection("comments"),
	}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and query indexes the operations rely
// on. Safe to call on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: map[string]any{"userid": 1}, Options: unique},
		{Keys: map[string]any{"username": 1}, Options: options.Index().SetUnique(true)},
		{Keys: map[string]any{"email": 1}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}
	_, err = s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: map[string]any{"postid": 1}, Options: options.Index().SetUnique(true)},
		{Keys: map[string]any{"slug": 1}, Options: options.Index().SetUnique(true)},
		{Keys: map[string]any{"status": 1, "published_at": -1}},
		{Keys: map[string]any{"tags": 1}},
		{Keys: map[string]any{"author": 1}},
	})
	if err != nil {
		return err
	}
	_, err = s.comments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: map[string]any{"commentid": 1}, Options: options.Index().SetUnique(true)},
		{Keys: map[string]any{"postid": 1, "parent_id": 1}},
		{Keys: map[string]any{"author": 1}},
	})
	return err
}
