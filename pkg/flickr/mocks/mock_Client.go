// Package mocks provides test doubles for the flickr client.
package mocks

import (
	"context"

	flickr "github.com/sells-group/attribution-cli/pkg/flickr"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// GetInfo provides a mock function with given fields: ctx, apiKey, photoID
func (_m *MockClient) GetInfo(ctx context.Context, apiKey string, photoID string) (*flickr.PhotoInfo, error) {
	ret := _m.Called(ctx, apiKey, photoID)

	if len(ret) == 0 {
		panic("no return value specified for GetInfo")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*flickr.PhotoInfo, error)); ok {
		return rf(ctx, apiKey, photoID)
	}

	var r0 *flickr.PhotoInfo
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*flickr.PhotoInfo)
	}
	return r0, ret.Error(1)
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
