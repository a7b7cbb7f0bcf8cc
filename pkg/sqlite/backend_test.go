package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/charsheet/pkg/types"
)

func TestOpen(t *testing.T) {
	b, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Detach() })

	var store types.Store = b
	list, err := store.List(context.Background(), types.Storyteller("gm"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(types.Config{Backend: "postgres", DataDir: t.TempDir()}, nil)
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}
