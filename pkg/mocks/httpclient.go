package mocks

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"
)

type HTTPClient struct {
	mock.Mock
}

func (_m *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	ret := _m.Called(ctx, url, headers)
	resp, _ := ret.Get(0).(*http.Response)
	return resp, ret.Error(1)
}

func (_m *HTTPClient) PostJSON(ctx context.Context, url string, payload any, headers map[string]string) (*http.Response, error) {
	ret := _m.Called(ctx, url, payload, headers)
	resp, _ := ret.Get(0).(*http.Response)
	return resp, ret.Error(1)
}
