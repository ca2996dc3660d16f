package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Article. All wrap ErrValidation.
var (
	ErrEmptyArticleID      = fmt.Errorf("%w: article ID cannot be empty", ErrValidation)
	ErrEmptyArticleUserID  = fmt.Errorf("%w: article user ID cannot be empty", ErrValidation)
	ErrEmptyArticleContent = fmt.Errorf("%w: article content cannot be empty", ErrValidation)
)

// Article is the artifact produced for one job item. Jobs reference
// articles by ID; the article itself knows nothing about the queue.
type Article struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Keyword   string    `json:"keyword"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewArticle creates an Article owned by the given user.
func NewArticle(userID uuid.UUID, keyword, title, content string) (*Article, error) {
	article := &Article{
		ID:        uuid.New(),
		UserID:    userID,
		Keyword:   keyword,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if err := article.Validate(); err != nil {
		return nil, err
	}

	return article, nil
}

// Validate checks if the Article has valid data.
func (a *Article) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyArticleID
	}

	if a.UserID == uuid.Nil {
		return ErrEmptyArticleUserID
	}

	if a.Content == "" {
		return ErrEmptyArticleContent
	}

	return nil
}
