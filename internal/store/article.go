package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
)

// ArticleStore defines the interface for article persistence.
type ArticleStore interface {
	// Create saves a new article to the store.
	// Returns validation errors from the domain Article if data is invalid.
	Create(ctx context.Context, article *domain.Article) error

	// GetByID retrieves an article by its unique ID.
	// Returns ErrArticleNotFound if the article does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error)

	// WithTx returns a new ArticleStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) ArticleStore
}
