package models

import "time"

type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"column:user_id;not null" json:"user_id"`
	Caption    string    `gorm:"column:caption;size:280;not null" json:"caption"`
	ImageURL   *string   `gorm:"column:image_url;size:500" json:"image_url,omitempty"`
	CategoryID *uint     `gorm:"column:category_id" json:"category_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	Likes    []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"likes,omitempty"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null" json:"user_id"`
	PostID    uint      `gorm:"column:post_id;not null" json:"post_id"`
	Text      string    `gorm:"column:text;size:200;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User  *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Likes []Like `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"likes,omitempty"`
}

// Like targets exactly one of a Post or a Comment. The XOR is enforced in the
// write path; the composite unique indexes make a duplicate like from the same
// user resolve to a single row even under concurrent requests.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_like_user_post;uniqueIndex:idx_like_user_comment" json:"user_id"`
	PostID    *uint     `gorm:"column:post_id;uniqueIndex:idx_like_user_post" json:"post_id,omitempty"`
	CommentID *uint     `gorm:"column:comment_id;uniqueIndex:idx_like_user_comment" json:"comment_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// HasSingleTarget reports whether exactly one of PostID/CommentID is set.
func (l *Like) HasSingleTarget() bool {
	return (l.PostID != nil) != (l.CommentID != nil)
}
