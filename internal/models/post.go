package models

import (
	"time"
)

// Post represents a blog post with its attachments and interactions.
type Post struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	Title     string     `gorm:"size:200;not null" json:"title" bson:"title"`
	Content   string     `gorm:"type:text;not null" json:"content" bson:"content"`
	AuthorID  string     `gorm:"type:varchar(36);not null;index:idx_posts_author_created,priority:1" json:"-" bson:"author"`
	Author    *Author    `gorm:"-" json:"author" bson:"-"`
	Images    []string   `gorm:"serializer:json" json:"images" bson:"images"`
	Documents []Document `gorm:"serializer:json" json:"documents" bson:"documents"`
	Links     []Link     `gorm:"serializer:json" json:"links" bson:"links"`
	Tags      []string   `gorm:"serializer:json" json:"tags" bson:"tags"`
	// Likes holds the ids of users who liked the post; SQL stores keep them in post_likes.
	Likes       []string  `gorm:"-" json:"likes" bson:"likes"`
	Comments    []Comment `gorm:"foreignKey:PostID" json:"comments" bson:"comments"`
	Views       int64     `gorm:"not null;default:0" json:"views" bson:"views"`
	IsPublished bool      `gorm:"not null" json:"isPublished" bson:"isPublished"`
	// LikesCount is not persisted; computed when the post is populated
	LikesCount int `gorm:"-" json:"likesCount" bson:"-"`
	// CommentsCount is not persisted; computed when the post is populated
	CommentsCount int       `gorm:"-" json:"commentsCount" bson:"-"`
	CreatedAt     time.Time `gorm:"index;index:idx_posts_author_created,priority:2" json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Document is the metadata of a file hosted by the media relay.
type Document struct {
	Filename     string    `json:"filename" bson:"filename"`
	OriginalName string    `json:"originalName" bson:"originalName"`
	Mimetype     string    `json:"mimetype" bson:"mimetype"`
	Size         int64     `json:"size" bson:"size"`
	URL          string    `json:"url" bson:"url"`
	UploadedAt   time.Time `json:"uploadedAt" bson:"uploadedAt"`
}

// Link is an external reference attached to a post.
type Link struct {
	Title       string `json:"title" bson:"title" validate:"required,max=200"`
	URL         string `json:"url" bson:"url" validate:"required,httpurl"`
	Description string `json:"description,omitempty" bson:"description,omitempty" validate:"max=500"`
}

// Comment is a reader reply appended to a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	PostID    string    `gorm:"type:varchar(36);not null;index" json:"-" bson:"-"`
	AuthorID  string    `gorm:"type:varchar(36);not null" json:"-" bson:"author"`
	Author    *Author   `gorm:"-" json:"author" bson:"-"`
	Content   string    `gorm:"size:1000;not null" json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// PostLike is the SQL row recording that a user likes a post.
// The composite primary key keeps one row per user and post.
type PostLike struct {
	PostID    string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"primaryKey;type:varchar(36);index"`
	CreatedAt time.Time
}

// Pagination describes one page of a listing.
type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
}

// PostPage is the envelope returned by the public feed.
type PostPage struct {
	Posts      []*Post    `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination computes the page count for total items split by limit.
func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Current: page, Pages: pages, Total: total}
}

// HasLike reports whether userID is among the users who liked the post.
func (p *Post) HasLike(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Normalize replaces nil collections with empty ones and refreshes the derived counters.
func (p *Post) Normalize() {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Documents == nil {
		p.Documents = []Document{}
	}
	if p.Links == nil {
		p.Links = []Link{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	p.LikesCount = len(p.Likes)
	p.CommentsCount = len(p.Comments)
}
