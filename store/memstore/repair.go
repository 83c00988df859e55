package memstore

import (
	"context"

	"quill/store"
)

// Repair mirrors the Mongo reconciliation pass: the post's like set wins
// for likes; for follows the forward edge wins, so missing reverse edges
// are added and backward-only followers entries are pruned. Dangling
// references are pruned.
func (s *Store) Repair(_ context.Context) (store.RepairReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var report store.RepairReport

	for _, u := range s.users {
		report.UsersScanned++

		for _, targetID := range append([]string{}, u.Following...) {
			target, ok := s.users[targetID]
			if !ok {
				u.Following = remove(u.Following, targetID)
				report.FollowEdgesRepaired++
				continue
			}
			if !contains(target.Followers, u.UserID) {
				target.Followers = append(target.Followers, u.UserID)
				report.FollowEdgesRepaired++
			}
		}
		for _, followerID := range append([]string{}, u.Followers...) {
			// A followers entry with no matching forward edge is residue
			// from a half-finished unfollow (or a deleted account).
			follower, ok := s.users[followerID]
			if !ok || !contains(follower.Following, u.UserID) {
				u.Followers = remove(u.Followers, followerID)
				report.FollowEdgesRepaired++
			}
		}

		for _, postID := range append([]string{}, u.Bookmarks...) {
			if _, ok := s.posts[postID]; !ok {
				u.Bookmarks = remove(u.Bookmarks, postID)
				report.DanglingBookmarks++
			}
		}
		for _, postID := range append([]string{}, u.LikedPosts...) {
			p, ok := s.posts[postID]
			if !ok || !p.LikedBy(u.UserID) {
				u.LikedPosts = remove(u.LikedPosts, postID)
				report.DanglingLikedPosts++
			}
		}
	}

	for _, p := range s.posts {
		report.PostsScanned++
		for _, like := range p.Likes {
			u, ok := s.users[like.UserID]
			if !ok {
				continue
			}
			if !contains(u.LikedPosts, p.PostID) {
				u.LikedPosts = append(u.LikedPosts, p.PostID)
				report.LikeMirrorsRepaired++
			}
		}
	}
	return report, nil
}
