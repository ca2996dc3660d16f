package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/service"
	"github.com/stretchr/testify/mock"
)

type mockJobService struct {
	mock.Mock
}

var _ service.JobService = (*mockJobService)(nil)

func (m *mockJobService) SubmitJob(ctx context.Context, userID uuid.UUID, items []service.ItemSpec) (*domain.Job, error) {
	args := m.Called(ctx, userID, items)
	if job, ok := args.Get(0).(*domain.Job); ok {
		return job, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobService) GetJob(ctx context.Context, jobID, userID uuid.UUID) (*domain.Job, []*domain.JobItem, error) {
	args := m.Called(ctx, jobID, userID)
	job, _ := args.Get(0).(*domain.Job)
	items, _ := args.Get(1).([]*domain.JobItem)
	return job, items, args.Error(2)
}

func (m *mockJobService) ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Job, error) {
	args := m.Called(ctx, userID, limit)
	if jobs, ok := args.Get(0).([]*domain.Job); ok {
		return jobs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobService) CancelJob(ctx context.Context, jobID, userID uuid.UUID) error {
	args := m.Called(ctx, jobID, userID)
	return args.Error(0)
}

func (m *mockJobService) GetArticle(ctx context.Context, articleID, userID uuid.UUID) (*domain.Article, error) {
	args := m.Called(ctx, articleID, userID)
	if article, ok := args.Get(0).(*domain.Article); ok {
		return article, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

var _ service.UserService = (*mockUserService)(nil)

func (m *mockUserService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}
