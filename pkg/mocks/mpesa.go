package mocks

import (
	"context"

	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
	"github.com/stretchr/testify/mock"
)

type MpesaClient struct {
	mock.Mock
}

func (_m *MpesaClient) Initiate(ctx context.Context, request mpesa.STKPushRequest) (mpesa.STKPushResponse, error) {
	ret := _m.Called(ctx, request)
	return ret.Get(0).(mpesa.STKPushResponse), ret.Error(1)
}

func (_m *MpesaClient) Token(ctx context.Context) (string, error) {
	ret := _m.Called(ctx)
	return ret.String(0), ret.Error(1)
}

func (_m *MpesaClient) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}
