// Package mocks provides test doubles for the serpapi client.
package mocks

import (
	"context"

	serpapi "github.com/sells-group/attribution-cli/pkg/serpapi"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// GoogleLens provides a mock function with given fields: ctx, imageURL
func (_m *MockClient) GoogleLens(ctx context.Context, imageURL string) (*serpapi.LensResponse, error) {
	ret := _m.Called(ctx, imageURL)

	if len(ret) == 0 {
		panic("no return value specified for GoogleLens")
	}

	var r0 *serpapi.LensResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*serpapi.LensResponse)
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
