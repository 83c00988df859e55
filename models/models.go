package models

import "time"

// Post lifecycle states.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// User roles.
const (
	RoleUser   = "user"
	RoleAuthor = "author"
	RoleAdmin  = "admin"
)

type SocialLinks struct {
	Twitter  string `json:"twitter,omitempty" bson:"twitter,omitempty"`
	GitHub   string `json:"github,omitempty" bson:"github,omitempty"`
	LinkedIn string `json:"linkedin,omitempty" bson:"linkedin,omitempty"`
}

type User struct {
	UserID      string      `json:"userid" bson:"userid"`
	Name        string      `json:"name" bson:"name"`
	Username    string      `json:"username" bson:"username"`
	Email       string      `json:"email" bson:"email"`
	Password    string      `json:"-" bson:"password"`
	Avatar      string      `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Bio         string      `json:"bio,omitempty" bson:"bio,omitempty"`
	Location    string      `json:"location,omitempty" bson:"location,omitempty"`
	Website     string      `json:"website,omitempty" bson:"website,omitempty"`
	SocialLinks SocialLinks `json:"social_links,omitempty" bson:"social_links,omitempty"`
	Role        string      `json:"role" bson:"role"`

	Followers  []string `json:"followers" bson:"followers"`
	Following  []string `json:"following" bson:"following"`
	Bookmarks  []string `json:"bookmarks" bson:"bookmarks"`
	LikedPosts []string `json:"liked_posts" bson:"liked_posts"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// PostLike is one entry in a post's like set. At most one per user.
type PostLike struct {
	UserID    string    `json:"userid" bson:"userid"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type Post struct {
	PostID      string     `json:"postid" bson:"postid"`
	Title       string     `json:"title" bson:"title"`
	Slug        string     `json:"slug" bson:"slug"`
	Excerpt     string     `json:"excerpt,omitempty" bson:"excerpt,omitempty"`
	Content     string     `json:"content" bson:"content"`
	CoverImage  string     `json:"cover_image,omitempty" bson:"cover_image,omitempty"`
	Author      string     `json:"author" bson:"author"`
	Tags        []string   `json:"tags" bson:"tags"`
	Status      string     `json:"status" bson:"status"`
	Likes       []PostLike `json:"likes" bson:"likes"`
	Views       int64      `json:"views" bson:"views"`
	ReadingTime int        `json:"reading_time" bson:"reading_time"`
	Featured    bool       `json:"featured" bson:"featured"`
	PublishedAt *time.Time `json:"published_at,omitempty" bson:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// LikeCount is derived, never persisted.
func (p *Post) LikeCount() int { return len(p.Likes) }

// LikedBy reports membership of userID in the post's like set.
func (p *Post) LikedBy(userID string) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// CommentLike carries no timestamp; comment likes only ever need a count
// and a membership test.
type CommentLike struct {
	UserID string `json:"userid" bson:"userid"`
}

type Comment struct {
	CommentID string        `json:"commentid" bson:"commentid"`
	PostID    string        `json:"postid" bson:"postid"`
	Author    string        `json:"author" bson:"author"`
	Content   string        `json:"content" bson:"content"`
	ParentID  string        `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Likes     []CommentLike `json:"likes" bson:"likes"`
	IsEdited  bool          `json:"is_edited,omitempty" bson:"is_edited,omitempty"`
	EditedAt  *time.Time    `json:"edited_at,omitempty" bson:"edited_at,omitempty"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

func (c *Comment) LikeCount() int { return len(c.Likes) }

func (c *Comment) LikedBy(userID string) bool {
	for _, l := range c.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// AuthorSummary is the only author projection populated reads expose.
type AuthorSummary struct {
	UserID   string `json:"userid" bson:"userid"`
	Name     string `json:"name" bson:"name"`
	Username string `json:"username" bson:"username"`
	Avatar   string `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

// PostView is a post joined with its author summary for list/detail reads.
type PostView struct {
	Post       `bson:",inline"`
	AuthorInfo AuthorSummary `json:"author_info" bson:"author_info"`
	LikeCount  int           `json:"like_count" bson:"like_count"`
}

// TrendingPost adds the query-time score. Never persisted.
type TrendingPost struct {
	PostView `bson:",inline"`
	Score    float64 `json:"score" bson:"score"`
}

// CommentView joins a comment with its author summary and, for top-level
// comments, its direct replies.
type CommentView struct {
	Comment    `bson:",inline"`
	AuthorInfo AuthorSummary `json:"author_info" bson:"author_info"`
	LikeCount  int           `json:"like_count" bson:"like_count"`
	Replies    []CommentView `json:"replies,omitempty" bson:"replies,omitempty"`
}

type TagCount struct {
	Name  string `json:"name" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// EngagementEvent is published to the engagement pub/sub channel on
// like/follow/bookmark actions.
type EngagementEvent struct {
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	CreatedAt  time.Time `json:"created_at"`
}
