// Package generation defines the boundary between the job orchestrator
// and the external article generator. The orchestrator treats the
// generator as an opaque, slow, possibly rate-limited collaborator.
package generation

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
)

// ArticleGenerator defines the interface for producing an article from a
// keyword. Implementations are expected to be slow (seconds to tens of
// seconds per call) and must honor ctx cancellation; the orchestrator
// imposes its own per-item timeout through ctx rather than trusting the
// collaborator to bound itself.
type ArticleGenerator interface {
	// GenerateArticle produces an article for the given keyword. The
	// settings payload is opaque to the orchestrator and interpreted by
	// the implementation (tone, length, audience and so on).
	GenerateArticle(
		ctx context.Context,
		userID uuid.UUID,
		keyword string,
		settings json.RawMessage,
	) (*domain.Article, error)
}
