package engine_test

import (
	"errors"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/require"
)

var errUnauthorized = errors.New("unauthorized")

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "engine-test.log")
	require.NoError(t, err)

	return log
}
