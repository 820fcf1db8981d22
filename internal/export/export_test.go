package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/apc-golf/refhub/internal/id/refid"
	"github.com/apc-golf/refhub/internal/refs"
	storemem "github.com/apc-golf/refhub/internal/store/memory"
)

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func seededStore(t *testing.T) *storemem.Store {
	t.Helper()
	clock := &fixedClock{t: time.Date(2026, 8, 29, 9, 0, 0, 0, time.Local)}
	store := storemem.New(clock, refid.New())
	ctx := context.Background()

	_, _, err := store.Enqueue(ctx, []refs.NewRef{
		{Brand: "A.P.C.", Season: "26SS", Item: "jacket", SourceURL: "https://example.com/1"},
		{Brand: "Lemaire", Season: "26FW", Item: "coat", SourceURL: "https://example.com/2"},
	})
	require.NoError(t, err)

	pending, err := store.ListPending(ctx, 10)
	require.NoError(t, err)
	clock.t = clock.t.Add(time.Minute)
	require.NoError(t, store.ApplyCaptureResult(ctx, pending[0].ID, refs.CaptureResult{
		ImagePath:  "output/a-p-c/26ss/jacket/20260829_090000_001.jpg",
		CapturedAt: "2026-08-29T09:00:00",
		PageTitle:  "A.P.C. SS26",
		Status:     refs.StatusSuccess,
	}))
	_, err = store.UpdateTags(ctx, []refs.TagUpdate{
		{ID: pending[0].ID, Silhouette: "boxy", APCFitScore: "4", Status: "SUCCESS"},
	})
	require.NoError(t, err)
	return store
}

func TestWriteCSVColumnOrder(t *testing.T) {
	store := seededStore(t)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(context.Background(), store, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two rows")
	assert.Equal(t, refs.ExportColumns, records[0])

	// Most recently updated row comes first.
	assert.Equal(t, "A.P.C.", records[1][1])
	assert.Equal(t, "boxy", records[1][8])
	assert.Equal(t, "4", records[1][16])
	assert.Equal(t, "SUCCESS", records[1][18])

	// Untouched pending row keeps a blank score, not a zero.
	assert.Equal(t, "Lemaire", records[2][1])
	assert.Equal(t, "", records[2][16])
	assert.Equal(t, "PENDING", records[2][18])
}

func TestWriteXLSX(t *testing.T) {
	store := seededStore(t)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(context.Background(), store, &buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("References")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "A.P.C.", rows[1][1])
}

func TestZipTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a-p-c", "26ss", "jacket"), 0o750))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "a-p-c", "26ss", "jacket", "shot.jpg"), []byte("jpeg"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.csv"), []byte("id\n"), 0o600))

	var buf bytes.Buffer
	require.NoError(t, ZipTree(root, "output", &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"output/a-p-c/26ss/jacket/shot.jpg",
		"output/index.csv",
	}, names)
}

func TestZipTreeMissingRoot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ZipTree(filepath.Join(t.TempDir(), "missing"), "output", &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}
