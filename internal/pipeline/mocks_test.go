package pipeline

import (
	"context"

	"github.com/abdulachik/etrimage/internal/feedback"
	"github.com/stretchr/testify/mock"
)

type mockText struct {
	mock.Mock
}

func (m *mockText) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	args := m.Called(ctx, system, user, temperature)
	return args.String(0), args.Error(1)
}

type mockRenderer struct {
	mock.Mock
	name string
}

func (m *mockRenderer) Name() string {
	return m.name
}

func (m *mockRenderer) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	args := m.Called(ctx, req)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, entry feedback.Entry, image []byte) (feedback.Record, error) {
	args := m.Called(ctx, entry, image)
	rec, _ := args.Get(0).(feedback.Record)
	return rec, args.Error(1)
}

// withSystem matches a non-empty system instruction.
var withSystem = mock.MatchedBy(func(s string) bool { return s != "" })
