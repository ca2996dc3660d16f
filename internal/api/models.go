package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`
}

// SubmitItemRequest describes one requested article within a batch.
type SubmitItemRequest struct {
	Keyword  string          `json:"keyword"  validate:"required,min=1,max=200"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// SubmitJobRequest defines the payload for the job submission endpoint.
type SubmitJobRequest struct {
	Items []SubmitItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

// JobItemResponse represents one item within a job status response.
type JobItemResponse struct {
	ID        string  `json:"id"`
	Sequence  int     `json:"sequence"`
	Keyword   string  `json:"keyword"`
	Status    string  `json:"status"`
	Error     string  `json:"error,omitempty"`
	ArticleID *string `json:"article_id,omitempty"`
}

// JobResponse represents the response data for a job.
type JobResponse struct {
	ID             string            `json:"id"`
	Status         string            `json:"status"`
	TotalItems     int               `json:"total_items"`
	CompletedItems int               `json:"completed_items"`
	FailedItems    int               `json:"failed_items"`
	Progress       int               `json:"progress"`
	Error          string            `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	Items          []JobItemResponse `json:"items,omitempty"`
}

// ArticleResponse represents the response data for a generated article.
type ArticleResponse struct {
	ID        string    `json:"id"`
	Keyword   string    `json:"keyword"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// jobToResponse converts a domain.Job (and optionally its items) to a JobResponse.
func jobToResponse(job *domain.Job, items []*domain.JobItem) JobResponse {
	resp := JobResponse{
		ID:             job.ID.String(),
		Status:         string(job.Status),
		TotalItems:     job.TotalItems,
		CompletedItems: job.CompletedItems,
		FailedItems:    job.FailedItems,
		Progress:       job.Progress(),
		Error:          job.Error,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		CompletedAt:    job.CompletedAt,
	}

	for _, item := range items {
		ir := JobItemResponse{
			ID:       item.ID.String(),
			Sequence: item.Sequence,
			Keyword:  item.Keyword,
			Status:   string(item.Status),
			Error:    item.Error,
		}
		if item.ArticleID != nil {
			s := item.ArticleID.String()
			ir.ArticleID = &s
		}
		resp.Items = append(resp.Items, ir)
	}

	return resp
}

// articleToResponse converts a domain.Article to an ArticleResponse.
func articleToResponse(article *domain.Article) ArticleResponse {
	return ArticleResponse{
		ID:        article.ID.String(),
		Keyword:   article.Keyword,
		Title:     article.Title,
		Content:   article.Content,
		CreatedAt: article.CreatedAt,
	}
}
