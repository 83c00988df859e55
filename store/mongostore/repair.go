package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"quill/models"
	"quill/store"
)

// Repair walks users then posts and re-establishes the two-sided
// invariants. The post's like set is authoritative for likes; for follows
// the forward edge (A.following) wins: missing reverse edges are added
// and followers entries with no backing forward edge are pruned. Every
// fix is an idempotent set write, so running Repair twice is harmless.
func (s *Store) Repair(ctx context.Context) (store.RepairReport, error) {
	var report store.RepairReport

	cursor, err := s.users.Find(ctx, bson.M{})
	if err != nil {
		return report, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var u models.User
		if err := cursor.Decode(&u); err != nil {
			return report, err
		}
		report.UsersScanned++

		for _, target := range u.Following {
			res, err := s.users.UpdateOne(ctx,
				bson.M{"userid": target},
				bson.M{"$addToSet": bson.M{"followers": u.UserID}},
			)
			if err != nil {
				return report, err
			}
			if res.MatchedCount == 0 {
				// Target account gone; drop the dangling forward edge.
				if _, err := s.users.UpdateOne(ctx,
					bson.M{"userid": u.UserID},
					bson.M{"$pull": bson.M{"following": target}},
				); err != nil {
					return report, err
				}
				report.FollowEdgesRepaired++
			} else if res.ModifiedCount > 0 {
				report.FollowEdgesRepaired++
			}
		}

		for _, follower := range u.Followers {
			// A followers entry with no matching forward edge is residue
			// from a half-finished unfollow (or a deleted account).
			n, err := s.users.CountDocuments(ctx,
				bson.M{"userid": follower, "following": u.UserID})
			if err != nil {
				return report, err
			}
			if n == 0 {
				if _, err := s.users.UpdateOne(ctx,
					bson.M{"userid": u.UserID},
					bson.M{"$pull": bson.M{"followers": follower}},
				); err != nil {
					return report, err
				}
				report.FollowEdgesRepaired++
			}
		}

		if n, err := s.pruneUserPostRefs(ctx, &u); err != nil {
			return report, err
		} else {
			report.DanglingBookmarks += n.bookmarks
			report.DanglingLikedPosts += n.liked
		}
	}
	if err := cursor.Err(); err != nil {
		return report, err
	}

	postCursor, err := s.posts.Find(ctx, bson.M{})
	if err != nil {
		return report, err
	}
	defer postCursor.Close(ctx)

	for postCursor.Next(ctx) {
		var p models.Post
		if err := postCursor.Decode(&p); err != nil {
			return report, err
		}
		report.PostsScanned++

		for _, like := range p.Likes {
			res, err := s.users.UpdateOne(ctx,
				bson.M{"userid": like.UserID},
				bson.M{"$addToSet": bson.M{"liked_posts": p.PostID}},
			)
			if err != nil {
				return report, err
			}
			if res.ModifiedCount > 0 {
				report.LikeMirrorsRepaired++
			}
		}
	}
	return report, postCursor.Err()
}

type prunedRefs struct {
	bookmarks int
	liked     int
}

// pruneUserPostRefs drops bookmark entries pointing at deleted posts and
// liked_posts entries the referenced post does not mirror.
func (s *Store) pruneUserPostRefs(ctx context.Context, u *models.User) (prunedRefs, error) {
	var pruned prunedRefs

	ids := append(append([]string{}, u.Bookmarks...), u.LikedPosts...)
	posts, err := s.GetPostsByIDs(ctx, ids)
	if err != nil {
		return pruned, err
	}
	byID := make(map[string]models.Post, len(posts))
	for _, p := range posts {
		byID[p.PostID] = p
	}

	for _, id := range u.Bookmarks {
		if _, ok := byID[id]; ok {
			continue
		}
		if _, err := s.users.UpdateOne(ctx,
			bson.M{"userid": u.UserID},
			bson.M{"$pull": bson.M{"bookmarks": id}},
		); err != nil {
			return pruned, err
		}
		pruned.bookmarks++
	}

	for _, id := range u.LikedPosts {
		p, ok := byID[id]
		if ok && p.LikedBy(u.UserID) {
			continue
		}
		if _, err := s.users.UpdateOne(ctx,
			bson.M{"userid": u.UserID},
			bson.M{"$pull": bson.M{"liked_posts": id}},
		); err != nil {
			return pruned, err
		}
		pruned.liked++
	}
	return pruned, nil
}
