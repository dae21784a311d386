package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sluiceworks/sluice/secrets"
)

func TestStoreAndResolve(t *testing.T) {
	p := New()
	ctx := context.Background()
	ref := secrets.SecretRef{Path: "db/password"}

	require.NoError(t, p.Store(ctx, ref, []byte("s3cret")))

	secret, err := p.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), secret.Value)
	assert.Equal(t, "latest", secret.Version)
	assert.False(t, secret.CreatedAt.IsZero())
}

func TestResolveNotFound(t *testing.T) {
	p := New()

	_, err := p.Resolve(context.Background(), secrets.SecretRef{Path: "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}

func TestResolveReturnsCopy(t *testing.T) {
	p := New()
	ctx := context.Background()
	ref := secrets.SecretRef{Path: "key"}

	require.NoError(t, p.Store(ctx, ref, []byte("abc")))

	secret, err := p.Resolve(ctx, ref)
	require.NoError(t, err)
	secret.Value[0] = 'x'

	again, err := p.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again.Value)
}

func TestVersionedResolve(t *testing.T) {
	p := New()
	ctx := context.Background()

	require.NoError(t, p.Store(ctx, secrets.SecretRef{Path: "key", Version: "v1"}, []byte("one")))
	require.NoError(t, p.Store(ctx, secrets.SecretRef{Path: "key", Version: "v2"}, []byte("two")))

	v1, err := p.Resolve(ctx, secrets.SecretRef{Path: "key", Version: "v1"})
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), v1.Value)

	v2, err := p.Resolve(ctx, secrets.SecretRef{Path: "key", Version: "v2"})
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), v2.Value)

	// No "latest" version was stored.
	_, err = p.Resolve(ctx, secrets.SecretRef{Path: "key"})
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}

func TestResolveBatchSkipsMissing(t *testing.T) {
	p := New()
	ctx := context.Background()

	require.NoError(t, p.Store(ctx, secrets.SecretRef{Path: "a"}, []byte("1")))
	require.NoError(t, p.Store(ctx, secrets.SecretRef{Path: "b"}, []byte("2")))

	results, err := p.ResolveBatch(ctx, []secrets.SecretRef{
		{Path: "a"},
		{Path: "ghost"},
		{Path: "b"},
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []byte("1"), results["a"].Value)
	assert.Equal(t, []byte("2"), results["b"].Value)
}

func TestExists(t *testing.T) {
	p := New()
	ctx := context.Background()

	exists, err := p.Exists(ctx, secrets.SecretRef{Path: "x"})
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, p.Store(ctx, secrets.SecretRef{Path: "x"}, []byte("v")))

	exists, err = p.Exists(ctx, secrets.SecretRef{Path: "x"})
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDelete(t *testing.T) {
	p := New()
	ctx := context.Background()
	ref := secrets.SecretRef{Path: "x"}

	require.NoError(t, p.Store(ctx, ref, []byte("v")))
	require.NoError(t, p.Delete(ctx, ref))

	_, err := p.Resolve(ctx, ref)
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)

	err = p.Delete(ctx, ref)
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}

func TestStoreRejectsEmptyPath(t *testing.T) {
	p := New()

	err := p.Store(context.Background(), secrets.SecretRef{}, []byte("v"))
	assert.ErrorIs(t, err, secrets.ErrInvalidRef)
}

func TestCloseClearsStore(t *testing.T) {
	p := New()
	ctx := context.Background()

	require.NoError(t, p.Store(ctx, secrets.SecretRef{Path: "x"}, []byte("v")))
	require.NoError(t, p.Close())

	_, err := p.Resolve(ctx, secrets.SecretRef{Path: "x"})
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}

func TestContextCancellation(t *testing.T) {
	p := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Resolve(ctx, secrets.SecretRef{Path: "x"})
	assert.ErrorIs(t, err, context.Canceled)

	err = p.Store(ctx, secrets.SecretRef{Path: "x"}, []byte("v"))
	assert.ErrorIs(t, err, context.Canceled)
}
