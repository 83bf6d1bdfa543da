// Package mocks provides test doubles for the pexels client.
package mocks

import (
	"context"

	pexels "github.com/sells-group/attribution-cli/pkg/pexels"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// GetPhoto provides a mock function with given fields: ctx, apiKey, photoID
func (_m *MockClient) GetPhoto(ctx context.Context, apiKey string, photoID string) (*pexels.Photo, error) {
	ret := _m.Called(ctx, apiKey, photoID)

	if len(ret) == 0 {
		panic("no return value specified for GetPhoto")
	}

	var r0 *pexels.Photo
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*pexels.Photo, error)); ok {
		return rf(ctx, apiKey, photoID)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*pexels.Photo)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
