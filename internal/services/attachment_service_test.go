package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadStoresObject(t *testing.T) {
	store := newMemObjectStore()
	svc := NewAttachmentService(store, "attachments")

	resp, err := svc.Upload(context.Background(), 4, "../Receipt.PDF", "application/pdf", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, "Receipt.PDF", resp.FileName)
	assert.True(t, strings.HasPrefix(resp.URL, "http://minio:9000/attachments/attachments/4/"))
	assert.True(t, strings.HasSuffix(resp.URL, ".pdf"))
	require.Len(t, store.objects, 1)
	for key, data := range store.objects {
		assert.Equal(t, "hello", string(data))
		assert.Equal(t, "application/pdf", store.opts[key].ContentType)
	}
}

func TestUploadLimits(t *testing.T) {
	svc := NewAttachmentService(newMemObjectStore(), "attachments")
	ctx := context.Background()

	_, err := svc.Upload(ctx, 1, "a.txt", "", 0, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Upload(ctx, 1, "a.bin", "", MaxAttachmentSize+1, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)
}

func TestUploadWithoutStore(t *testing.T) {
	svc := NewAttachmentService(nil, "attachments")

	_, err := svc.Upload(context.Background(), 1, "a.txt", "", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrAttachmentsDisabled)
}
