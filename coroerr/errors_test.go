package coroerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupError(t *testing.T) {
	cause := errors.New("address in use")
	err := NewSetupError("bind", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "bind")
}

func TestWrapError(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError("context failed", cause)
	require.ErrorIs(t, err, cause)
}
