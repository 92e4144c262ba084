package classify

import "context"

// MockVisual is a Visual implementation for tests.
type MockVisual struct {
	NameValue  string
	ClassifyFn func(ctx context.Context, image []byte) (Verdict, error)
}

func (m *MockVisual) Name() string {
	if m.NameValue == "" {
		return "mock-visual"
	}
	return m.NameValue
}

func (m *MockVisual) Classify(ctx context.Context, image []byte) (Verdict, error) {
	if m.ClassifyFn == nil {
		return Verdict{}, nil
	}
	return m.ClassifyFn(ctx, image)
}

// MockStructural is a Structural implementation for tests.
type MockStructural struct {
	NameValue string
	AnalyzeFn func(ctx context.Context, image []byte) (Signal, error)
}

func (m *MockStructural) Name() string {
	if m.NameValue == "" {
		return "mock-structural"
	}
	return m.NameValue
}

func (m *MockStructural) Analyze(ctx context.Context, image []byte) (Signal, error) {
	if m.AnalyzeFn == nil {
		return Signal{}, nil
	}
	return m.AnalyzeFn(ctx, image)
}
