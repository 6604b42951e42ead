package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBeginEnd(t *testing.T) {
	r := NewRegistry()

	run, err := r.Begin(1)
	require.NoError(t, err)
	assert.NotEmpty(t, run.Id)
	assert.NotNil(t, run.Abort)
	assert.True(t, r.Active(1))

	_, err = r.Begin(1)
	assert.ErrorIs(t, err, ErrCompositionActive)

	// Other collections are independent.
	other, err := r.Begin(2)
	require.NoError(t, err)
	assert.NotEqual(t, run.Id, other.Id)

	r.End(1)
	assert.False(t, r.Active(1))
	assert.True(t, r.Active(2))

	_, err = r.Begin(1)
	assert.NoError(t, err)
}

func TestRegistryAbort(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.Abort(1))

	run, err := r.Begin(1)
	require.NoError(t, err)

	assert.True(t, r.Abort(1))
	assert.True(t, run.Abort.Aborted())
}

func TestRegistryEndUnknown(t *testing.T) {
	r := NewRegistry()
	r.End(42) // no-op
	assert.False(t, r.Active(42))
}
