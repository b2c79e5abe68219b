package models

import "time"

// Response projections returned by the API. Account names are resolved from
// preloaded associations, so callers must Preload the User chains they render.

type LikeResponse struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	AccountName string    `json:"account_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type CommentResponse struct {
	ID          uint           `json:"id"`
	Text        string         `json:"text"`
	UserID      uint           `json:"user_id"`
	AccountName string         `json:"account_name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Likes       []LikeResponse `json:"likes"`
}

type PostResponse struct {
	ID           uint              `json:"id"`
	Caption      string            `json:"caption"`
	ImageURL     *string           `json:"image_url"`
	UserID       uint              `json:"user_id"`
	AccountName  string            `json:"account_name"`
	CategoryName *string           `json:"category_name"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Likes        []LikeResponse    `json:"likes"`
	Comments     []CommentResponse `json:"comments"`
}

func NewLikeResponse(l Like) LikeResponse {
	resp := LikeResponse{
		ID:        l.ID,
		UserID:    l.UserID,
		CreatedAt: l.CreatedAt,
	}
	if l.User != nil {
		resp.AccountName = l.User.AccountName
	}
	return resp
}

func NewCommentResponse(c Comment) CommentResponse {
	resp := CommentResponse{
		ID:        c.ID,
		Text:      c.Text,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Likes:     make([]LikeResponse, 0, len(c.Likes)),
	}
	if c.User != nil {
		resp.AccountName = c.User.AccountName
	}
	for _, like := range c.Likes {
		resp.Likes = append(resp.Likes, NewLikeResponse(like))
	}
	return resp
}

func NewPostResponse(p Post) PostResponse {
	resp := PostResponse{
		ID:        p.ID,
		Caption:   p.Caption,
		ImageURL:  p.ImageURL,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Likes:     make([]LikeResponse, 0, len(p.Likes)),
		Comments:  make([]CommentResponse, 0, len(p.Comments)),
	}
	if p.User != nil {
		resp.AccountName = p.User.AccountName
	}
	if p.Category != nil {
		name := p.Category.Name
		resp.CategoryName = &name
	}
	for _, like := range p.Likes {
		resp.Likes = append(resp.Likes, NewLikeResponse(like))
	}
	for _, comment := range p.Comments {
		resp.Comments = append(resp.Comments, NewCommentResponse(comment))
	}
	return resp
}
