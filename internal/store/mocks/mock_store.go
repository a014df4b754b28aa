// Package mocks provides testify mocks for the store package.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/donaldgifford/wb-seller-tracker/internal/store"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

// MockStore is a testify mock of store.Store.
type MockStore struct {
	mock.Mock
}

var _ store.Store = (*MockStore)(nil)

// NewMockStore creates a MockStore whose expectations are asserted when
// the test ends.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockStore {
	m := &MockStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockStore) SaveBalanceSnapshot(ctx context.Context, b *domain.BalanceSnapshot) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockStore) LatestBalance(ctx context.Context) (*domain.BalanceSnapshot, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).(*domain.BalanceSnapshot)
	return b, args.Error(1)
}

func (m *MockStore) ListBalanceSnapshots(
	ctx context.Context,
	since time.Time,
	limit int,
) ([]domain.BalanceSnapshot, error) {
	args := m.Called(ctx, since, limit)
	out, _ := args.Get(0).([]domain.BalanceSnapshot)
	return out, args.Error(1)
}

func (m *MockStore) TrackTask(ctx context.Context, t *domain.TrackedTask) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockStore) GetTrackedTask(ctx context.Context, id string) (*domain.TrackedTask, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*domain.TrackedTask)
	return t, args.Error(1)
}

func (m *MockStore) ListTrackedTasks(ctx context.Context, q *store.TaskQuery) ([]domain.TrackedTask, int, error) {
	args := m.Called(ctx, q)
	out, _ := args.Get(0).([]domain.TrackedTask)
	return out, args.Int(1), args.Error(2)
}

func (m *MockStore) UpdateTrackedTask(ctx context.Context, t *domain.TrackedTask) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockStore) SaveLimiterSnapshots(ctx context.Context, snaps []domain.LimiterSnapshot) error {
	return m.Called(ctx, snaps).Error(0)
}

func (m *MockStore) ListLimiterSnapshots(
	ctx context.Context,
	category string,
	limit int,
) ([]domain.LimiterSnapshot, error) {
	args := m.Called(ctx, category, limit)
	out, _ := args.Get(0).([]domain.LimiterSnapshot)
	return out, args.Error(1)
}

func (m *MockStore) GetSystemState(ctx context.Context) (*domain.SystemState, error) {
	args := m.Called(ctx)
	st, _ := args.Get(0).(*domain.SystemState)
	return st, args.Error(1)
}

func (m *MockStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	args := m.Called(ctx, jobName)
	return args.String(0), args.Error(1)
}

func (m *MockStore) CompleteJobRun(
	ctx context.Context,
	id string,
	status string,
	errText string,
	rowsAffected int,
) error {
	return m.Called(ctx, id, status, errText, rowsAffected).Error(0)
}

func (m *MockStore) ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	args := m.Called(ctx, jobName, limit)
	out, _ := args.Get(0).([]domain.JobRun)
	return out, args.Error(1)
}

func (m *MockStore) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]domain.JobRun)
	return out, args.Error(1)
}

func (m *MockStore) RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) AcquireSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	args := m.Called(ctx, jobName, holder, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error {
	return m.Called(ctx, jobName, holder).Error(0)
}

func (m *MockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
