package sqlite

import (
	"testing"

	"github.com/hirepipe/interviewflow/backend"
	"github.com/hirepipe/interviewflow/backend/test"
)

func Test_SqliteBackend(t *testing.T) {
	test.BackendTest(t, func() backend.Backend {
		// Disable sticky workflow behavior for the test execution
		return NewInMemoryBackend(WithBackendOptions(backend.WithStickyTimeout(0)))
	}, nil)
}
