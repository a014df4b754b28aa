// Package mocks provides testify mocks for the notify package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/donaldgifford/wb-seller-tracker/internal/notify"
)

// MockNotifier is a testify mock of notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

var _ notify.Notifier = (*MockNotifier)(nil)

// NewMockNotifier creates a MockNotifier whose expectations are asserted
// when the test ends.
func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockNotifier {
	m := &MockNotifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockNotifier) SendTaskAlert(ctx context.Context, alert *notify.TaskAlert) error {
	return m.Called(ctx, alert).Error(0)
}

func (m *MockNotifier) SendTaskAlerts(ctx context.Context, alerts []notify.TaskAlert) error {
	return m.Called(ctx, alerts).Error(0)
}

func (m *MockNotifier) SendBalanceAlert(ctx context.Context, alert *notify.BalanceAlert) error {
	return m.Called(ctx, alert).Error(0)
}
