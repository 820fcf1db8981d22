package storybook

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blobmem "github.com/apc-golf/refhub/internal/blob/memory"
)

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func newGenerator() (*Generator, *blobmem.BlobStore) {
	blob := blobmem.NewBlobStore()
	clock := &fixedClock{t: time.Date(2026, 8, 29, 15, 30, 0, 0, time.Local)}
	return NewGenerator(blob, clock), blob
}

func TestGenerateStorybook(t *testing.T) {
	gen, blob := newGenerator()

	res, err := gen.Generate(context.Background(), Request{
		ChildName: "하린",
		Theme:     "별빛 숲",
		Tone:      "따뜻한",
		Kind:      KindStarlight,
		FaceName:  "face_photo.png",
		FaceData:  pngBytes(t),
	})
	require.NoError(t, err)

	assert.Equal(t, "하린의 별빛 모험", res.Title)
	assert.Equal(t, 6, res.Pages)
	assert.Equal(t, "face.png", res.FaceFile)
	assert.True(t, strings.HasPrefix(res.Dir, "storybook/"))
	assert.Contains(t, res.Dir, "20260829_153000")
	assert.Equal(t, 3, blob.Len())

	md, ok := blob.Get(res.Dir + "/storybook.md")
	require.True(t, ok)
	assert.Contains(t, string(md), "# 하린의 별빛 모험")
	assert.Contains(t, string(md), "## 페이지 6")
	assert.Contains(t, string(md), "별빛 숲")

	zr, err := zip.NewReader(bytes.NewReader(res.Zip), int64(len(res.Zip)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3)
}

func TestGenerateCustomPagesOverrideTemplate(t *testing.T) {
	gen, _ := newGenerator()

	res, err := gen.Generate(context.Background(), Request{
		ChildName:   "준호",
		Kind:        KindOcean,
		CustomPages: []string{"첫 번째 페이지", "두 번째 페이지"},
		FaceName:    "p.png",
		FaceData:    pngBytes(t),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
}

func TestGenerateUnknownKindFallsBack(t *testing.T) {
	gen, _ := newGenerator()

	res, err := gen.Generate(context.Background(), Request{
		ChildName: "하린",
		Kind:      Kind("space"),
		FaceName:  "p.png",
		FaceData:  pngBytes(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "하린의 별빛 모험", res.Title)
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	gen, _ := newGenerator()
	ctx := context.Background()

	_, err := gen.Generate(ctx, Request{FaceName: "p.png", FaceData: pngBytes(t)})
	assert.Error(t, err, "missing child name")

	_, err = gen.Generate(ctx, Request{ChildName: "하린", FaceName: "p.gif", FaceData: pngBytes(t)})
	assert.Error(t, err, "extension not allowed")

	_, err = gen.Generate(ctx, Request{ChildName: "하린", FaceName: "p.png", FaceData: []byte("not an image")})
	assert.Error(t, err, "bytes must decode")
}

func TestValidateFaceImage(t *testing.T) {
	valid := pngBytes(t)
	assert.NoError(t, ValidateFaceImage("photo.png", valid))
	assert.Error(t, ValidateFaceImage("photo.png", nil))
	assert.Error(t, ValidateFaceImage("photo.bmp", valid))
	assert.Error(t, ValidateFaceImage("photo.png", make([]byte, MaxFaceImageBytes+1)))

	webp := append([]byte("RIFF\x00\x00\x00\x00WEBP"), []byte("VP8 ")...)
	assert.NoError(t, ValidateFaceImage("photo.webp", webp))
	assert.Error(t, ValidateFaceImage("photo.webp", []byte("RIFFxxxxNOPE")))
}

func TestBuildPagesMentionInputs(t *testing.T) {
	for _, kind := range []Kind{KindStarlight, KindOcean, KindDino} {
		pages := BuildPages(kind, "하린", "숲", "따뜻한")
		require.Len(t, pages, 6)
		joined := strings.Join(pages, "\n")
		assert.Contains(t, joined, "하린")
		assert.Contains(t, joined, "숲")
		assert.Contains(t, joined, "따뜻한")
	}
}
