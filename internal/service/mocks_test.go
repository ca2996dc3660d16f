package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/events"
	"github.com/inkdraft/inkdraft-api/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// The services run store writes through real *sql.Tx transactions, so
// the mocks alone are not enough; a driver whose Begin, Commit, and
// Rollback are no-ops lets the transaction plumbing run against mocks
// without a database.
type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) { return &fakeConn{}, nil }

type fakeConn struct{}

func (*fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("fake connection does not prepare statements")
}
func (*fakeConn) Close() error              { return nil }
func (*fakeConn) Begin() (driver.Tx, error) { return fakeTx{}, nil }

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

var (
	fakeDBOnce sync.Once
	fakeDB     *sql.DB
	fakeDBErr  error
)

func openFakeDB(t *testing.T) *sql.DB {
	t.Helper()
	fakeDBOnce.Do(func() {
		sql.Register("servicetest", fakeDriver{})
		fakeDB, fakeDBErr = sql.Open("servicetest", "")
	})
	require.NoError(t, fakeDBErr)
	return fakeDB
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockJobStore struct {
	mock.Mock
	db *sql.DB
}

func (m *mockJobStore) CreateWithItems(ctx context.Context, job *domain.Job, items []*domain.JobItem) error {
	args := m.Called(ctx, job, items)
	return args.Error(0)
}

func (m *mockJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if job, ok := args.Get(0).(*domain.Job); ok {
		return job, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobStore) GetItems(ctx context.Context, jobID uuid.UUID) ([]*domain.JobItem, error) {
	args := m.Called(ctx, jobID)
	if items, ok := args.Get(0).([]*domain.JobItem); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Job, error) {
	args := m.Called(ctx, userID, limit)
	if jobs, ok := args.Get(0).([]*domain.Job); ok {
		return jobs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobStore) MarkProcessing(ctx context.Context, jobID uuid.UUID) (bool, error) {
	args := m.Called(ctx, jobID)
	return args.Bool(0), args.Error(1)
}

func (m *mockJobStore) Update(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockJobStore) RequestCancel(ctx context.Context, jobID, userID uuid.UUID) error {
	args := m.Called(ctx, jobID, userID)
	return args.Error(0)
}

func (m *mockJobStore) FindUnfinished(ctx context.Context) ([]*domain.Job, error) {
	args := m.Called(ctx)
	if jobs, ok := args.Get(0).([]*domain.Job); ok {
		return jobs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockJobStore) MarkItemProcessing(ctx context.Context, itemID uuid.UUID) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

func (m *mockJobStore) CompleteItem(ctx context.Context, itemID, articleID uuid.UUID) error {
	args := m.Called(ctx, itemID, articleID)
	return args.Error(0)
}

func (m *mockJobStore) FailItem(ctx context.Context, itemID uuid.UUID, errMsg string) error {
	args := m.Called(ctx, itemID, errMsg)
	return args.Error(0)
}

func (m *mockJobStore) ResetProcessingItems(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *mockJobStore) WithTx(tx *sql.Tx) store.JobStore { return m }

func (m *mockJobStore) DB() *sql.DB { return m.db }

type mockArticleStore struct {
	mock.Mock
}

func (m *mockArticleStore) Create(ctx context.Context, article *domain.Article) error {
	args := m.Called(ctx, article)
	return args.Error(0)
}

func (m *mockArticleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	args := m.Called(ctx, id)
	if article, ok := args.Get(0).(*domain.Article); ok {
		return article, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockArticleStore) WithTx(tx *sql.Tx) store.ArticleStore { return m }

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserStore) WithTx(tx *sql.Tx) store.UserStore { return m }

type mockCanceller struct {
	mock.Mock
}

func (m *mockCanceller) Cancel(ctx context.Context, jobID, userID uuid.UUID) error {
	args := m.Called(ctx, jobID, userID)
	return args.Error(0)
}

type mockEventEmitter struct {
	mock.Mock
}

func (m *mockEventEmitter) EmitEvent(ctx context.Context, event *events.JobRequestEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockPasswordHasher struct {
	mock.Mock
}

func (m *mockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

type mockPasswordVerifier struct {
	mock.Mock
}

func (m *mockPasswordVerifier) Compare(hashedPassword, password string) error {
	args := m.Called(hashedPassword, password)
	return args.Error(0)
}
