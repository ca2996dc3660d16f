package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/store"
)

// memJobStore is an in-memory store.JobStore used to exercise the
// orchestrator without a database. All methods are safe for concurrent
// use.
type memJobStore struct {
	mu    sync.Mutex
	jobs  map[uuid.UUID]*domain.Job
	items map[uuid.UUID]*domain.JobItem
}

func newMemJobStore() *memJobStore {
	return &memJobStore{
		jobs:  make(map[uuid.UUID]*domain.Job),
		items: make(map[uuid.UUID]*domain.JobItem),
	}
}

var _ store.JobStore = (*memJobStore)(nil)

func cloneJob(j *domain.Job) *domain.Job {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneItem(i *domain.JobItem) *domain.JobItem {
	c := *i
	if i.ArticleID != nil {
		id := *i.ArticleID
		c.ArticleID = &id
	}
	return &c
}

func (s *memJobStore) CreateWithItems(ctx context.Context, job *domain.Job, items []*domain.JobItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = cloneJob(job)
	for _, item := range items {
		s.items[item.ID] = cloneItem(item)
	}
	return nil
}

func (s *memJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (s *memJobStore) GetItems(ctx context.Context, jobID uuid.UUID) ([]*domain.JobItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.JobItem
	for _, item := range s.items {
		if item.JobID == jobID {
			out = append(out, cloneItem(item))
		}
	}
	// Sequence order, as the SQL implementation guarantees.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Sequence < out[i].Sequence {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *memJobStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Job
	for _, job := range s.jobs {
		if job.UserID == userID && len(out) < limit {
			out = append(out, cloneJob(job))
		}
	}
	return out, nil
}

func (s *memJobStore) MarkProcessing(ctx context.Context, jobID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != domain.JobStatusPending {
		return false, nil
	}
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *memJobStore) Update(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return store.ErrJobNotFound
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *memJobStore) RequestCancel(ctx context.Context, jobID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID {
		return store.ErrJobNotFound
	}
	if !job.IsTerminal() {
		job.CancelRequested = true
	}
	return nil
}

func (s *memJobStore) FindUnfinished(ctx context.Context) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Job
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusPending || job.Status == domain.JobStatusProcessing {
			out = append(out, cloneJob(job))
		}
	}
	return out, nil
}

func (s *memJobStore) MarkItemProcessing(ctx context.Context, itemID uuid.UUID) error {
	return s.setItemStatus(itemID, domain.ItemStatusProcessing, "", nil)
}

func (s *memJobStore) CompleteItem(ctx context.Context, itemID, articleID uuid.UUID) error {
	return s.setItemStatus(itemID, domain.ItemStatusCompleted, "", &articleID)
}

func (s *memJobStore) FailItem(ctx context.Context, itemID uuid.UUID, errMsg string) error {
	return s.setItemStatus(itemID, domain.ItemStatusFailed, errMsg, nil)
}

func (s *memJobStore) setItemStatus(itemID uuid.UUID, status domain.ItemStatus, errMsg string, articleID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return store.ErrItemNotFound
	}
	item.Status = status
	item.Error = errMsg
	item.ArticleID = articleID
	item.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memJobStore) ResetProcessingItems(ctx context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.JobID == jobID && item.Status == domain.ItemStatusProcessing {
			item.Status = domain.ItemStatusPending
		}
	}
	return nil
}

func (s *memJobStore) WithTx(tx *sql.Tx) store.JobStore { return s }
func (s *memJobStore) DB() *sql.DB                      { return nil }

// memArticleStore is an in-memory store.ArticleStore.
type memArticleStore struct {
	mu       sync.Mutex
	articles map[uuid.UUID]*domain.Article
}

func newMemArticleStore() *memArticleStore {
	return &memArticleStore{articles: make(map[uuid.UUID]*domain.Article)}
}

var _ store.ArticleStore = (*memArticleStore)(nil)

func (s *memArticleStore) Create(ctx context.Context, article *domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := *article
	s.articles[article.ID] = &a
	return nil
}

func (s *memArticleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[id]
	if !ok {
		return nil, store.ErrArticleNotFound
	}
	a := *article
	return &a, nil
}

func (s *memArticleStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.articles)
}

func (s *memArticleStore) WithTx(tx *sql.Tx) store.ArticleStore { return s }

// stubGenerator delegates to a configurable function.
type stubGenerator struct {
	fn func(ctx context.Context, userID uuid.UUID, keyword string, settings json.RawMessage) (*domain.Article, error)
}

func (g *stubGenerator) GenerateArticle(
	ctx context.Context,
	userID uuid.UUID,
	keyword string,
	settings json.RawMessage,
) (*domain.Article, error) {
	return g.fn(ctx, userID, keyword, settings)
}

// makeArticle builds a plausible generated article for tests.
func makeArticle(userID uuid.UUID, keyword string) (*domain.Article, error) {
	return domain.NewArticle(userID, keyword,
		fmt.Sprintf("A Guide to %s", keyword),
		fmt.Sprintf("Everything worth knowing about %s.", keyword))
}

// seedJob creates a pending job with n items directly in the store.
func seedJob(s *memJobStore, userID uuid.UUID, n int) (*domain.Job, []*domain.JobItem, error) {
	job, err := domain.NewJob(userID, n)
	if err != nil {
		return nil, nil, err
	}
	items := make([]*domain.JobItem, 0, n)
	for i := 0; i < n; i++ {
		item, err := domain.NewJobItem(job.ID, i, fmt.Sprintf("keyword-%d", i), nil)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}
	if err := s.CreateWithItems(context.Background(), job, items); err != nil {
		return nil, nil, err
	}
	return job, items, nil
}
