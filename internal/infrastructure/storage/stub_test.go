package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubDocumentStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStubDocumentStorage()

	require.NoError(t, store.Upload(ctx, "tenants/t1/doc1.pdf", []byte("incident report"), "application/pdf"))
	assert.Equal(t, 1, store.Len())

	data, err := store.Download(ctx, "tenants/t1/doc1.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("incident report"), data)

	url, expiresAt, err := store.PresignDownload(ctx, "tenants/t1/doc1.pdf", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "doc1.pdf")
	assert.True(t, expiresAt.After(time.Now()))

	require.NoError(t, store.Delete(ctx, "tenants/t1/doc1.pdf"))
	_, err = store.Download(ctx, "tenants/t1/doc1.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestStubDocumentStorage_EmptyKeyRejected(t *testing.T) {
	store := NewStubDocumentStorage()
	err := store.Upload(context.Background(), "", []byte("x"), "text/plain")
	assert.Error(t, err)
}
