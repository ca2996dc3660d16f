package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/api/middleware"
	"github.com/inkdraft/inkdraft-api/internal/api/shared"
	"github.com/inkdraft/inkdraft-api/internal/service"
)

// ArticleHandler handles article retrieval requests.
type ArticleHandler struct {
	jobService service.JobService
}

// NewArticleHandler creates a new ArticleHandler.
func NewArticleHandler(jobService service.JobService) *ArticleHandler {
	return &ArticleHandler{
		jobService: jobService,
	}
}

// GetArticle handles GET /api/articles/{id} requests. Articles from
// partially failed jobs remain retrievable.
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	articleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid article ID")
		return
	}

	article, err := h.jobService.GetArticle(r.Context(), articleID, userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, articleToResponse(article))
}
