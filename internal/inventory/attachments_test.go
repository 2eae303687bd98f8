package inventory

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

func TestAttachAndRemoveDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "Generator", 1)

	doc, err := f.svc.AttachDocument(ctx, f.admin, item.ID, Upload{
		Name:        `C:\scans\Warranty.PDF`,
		ContentType: "application/pdf",
		Body:        strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Warranty.PDF", doc.Name)
	assert.Equal(t, model.DocumentPDF, doc.Type)
	assert.Equal(t, int64(8), doc.Size)
	assert.True(t, strings.HasPrefix(doc.Path, "items/"+item.ID+"/"))
	assert.True(t, strings.HasSuffix(doc.Path, ".pdf"))
	assert.Equal(t, "/api/files/"+doc.Path, doc.URL)

	photo, err := f.svc.AttachDocument(ctx, f.admin, item.ID, Upload{
		Name: "front.png", ContentType: "image/png", Body: strings.NewReader("png"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.DocumentImage, photo.Type)

	got := f.reload(t, item.ID)
	require.Len(t, got.Documents, 2)
	assert.Equal(t, doc.ID, got.Documents[0].ID)

	_, rc, err := f.blobs.Get(ctx, doc.Path)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, f.svc.RemoveDocument(ctx, f.admin, item.ID, doc.ID))
	got = f.reload(t, item.ID)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, photo.ID, got.Documents[0].ID)
	_, _, err = f.blobs.Get(ctx, doc.Path)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	assert.ErrorIs(t, f.svc.RemoveDocument(ctx, f.admin, item.ID, doc.ID), ErrNotFound)
}

func TestAttachDocumentRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AttachDocument(ctx, f.admin, "missing", Upload{Name: "a.txt", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	item := f.item(t, "Pump", 1)
	_, err = f.svc.AttachDocument(ctx, f.admin, item.ID, Upload{Name: "", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	left, err := f.blobs.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, left)

	bare := NewService(f.db)
	_, err = bare.AttachDocument(ctx, f.admin, item.ID, Upload{Name: "a.txt", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrStoreIO)
}

func TestSetItemImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, "Kettle", 1)

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{10, 200, 10, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	updated, err := f.svc.SetItemImage(ctx, f.admin, item.ID, &buf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(updated.ImageURL, "/api/files/items/"+item.ID+"/image.jpg?v="))

	info, rc, err := f.blobs.Get(ctx, blob.ImageKey(item.ID))
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "image/jpeg", info.ContentType)

	_, err = f.svc.SetItemImage(ctx, f.admin, item.ID, strings.NewReader("plain text"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.SetItemImage(ctx, f.admin, "missing", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := store.GetItem(ctx, f.db, item.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.ImageURL, stored.ImageURL)
}
