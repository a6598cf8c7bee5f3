package request

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetEvent(ctx context.Context, code string) (*Event, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Event), args.Error(1)
}

func (m *MockStore) UpsertEvent(ctx context.Context, code string, expiresAt time.Time) (*Event, error) {
	args := m.Called(ctx, code, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Event), args.Error(1)
}

func (m *MockStore) CreatePassword(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, item *RequestItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockStore) FindByVideoID(ctx context.Context, code, videoID string) (*RequestItem, error) {
	args := m.Called(ctx, code, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RequestItem), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id string) (*RequestItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RequestItem), args.Error(1)
}

func (m *MockStore) UpdateMerged(ctx context.Context, id string, votes int, title string, updatedAt time.Time) (*RequestItem, error) {
	args := m.Called(ctx, id, votes, title, updatedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RequestItem), args.Error(1)
}

func (m *MockStore) UpdateVotes(ctx context.Context, id string, votes int, updatedAt time.Time) (*RequestItem, error) {
	args := m.Called(ctx, id, votes, updatedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RequestItem), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, code string, since time.Time, limit int) ([]RequestItem, error) {
	args := m.Called(ctx, code, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RequestItem), args.Error(1)
}

func (m *MockStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
