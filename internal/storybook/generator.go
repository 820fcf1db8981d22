package storybook

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/apc-golf/refhub/internal/refs"
	"github.com/apc-golf/refhub/internal/store/sqlutil"
)

// Request describes one storybook generation.
type Request struct {
	ChildName   string   `json:"child_name"`
	Theme       string   `json:"theme"`
	Tone        string   `json:"tone"`
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	CustomPages []string `json:"custom_pages"`
	FaceName    string   `json:"-"`
	FaceData    []byte   `json:"-"`
}

// Result points at the generated bundle.
type Result struct {
	Title    string   `json:"title"`
	Dir      string   `json:"dir"`
	Files    []string `json:"files"`
	Pages    int      `json:"pages"`
	ZipName  string   `json:"zip_name"`
	Zip      []byte   `json:"-"`
	FaceFile string   `json:"face_file"`
}

type manifest struct {
	Title     string `json:"title"`
	Child     string `json:"child"`
	Theme     string `json:"theme"`
	Tone      string `json:"tone"`
	Kind      Kind   `json:"kind"`
	Pages     int    `json:"pages"`
	CreatedAt string `json:"created_at"`
	FaceFile  string `json:"face_file"`
}

// Generator writes storybook bundles through the blob provider.
type Generator struct {
	blob  refs.BlobStore
	clock refs.Clock
}

// NewGenerator builds a Generator.
func NewGenerator(blob refs.BlobStore, clock refs.Clock) *Generator {
	return &Generator{blob: blob, clock: clock}
}

// Generate validates the face photo, renders the pages, stores the bundle
// under storybook/<child-slug>/<stamp>/ and returns it zipped.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.ChildName) == "" {
		return Result{}, fmt.Errorf("child name is required")
	}
	if err := ValidateFaceImage(req.FaceName, req.FaceData); err != nil {
		return Result{}, err
	}

	kind := req.Kind
	if _, ok := KindLabels[kind]; !ok {
		kind = KindStarlight
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fmt.Sprintf("%s의 %s", req.ChildName, KindLabels[kind])
	}
	pages := req.CustomPages
	if len(pages) == 0 {
		pages = BuildPages(kind, req.ChildName, req.Theme, req.Tone)
	}

	now := g.clock.Now()
	stamp := now.Format("20060102_150405")
	childKey := refs.Slug(req.ChildName)
	dir := path.Join("storybook", childKey, stamp)

	ext := strings.ToLower(path.Ext(req.FaceName))
	if ext == "" {
		ext = ".png"
	}
	faceFile := "face" + ext

	md := renderMarkdown(title, req.Theme, req.Tone, faceFile, pages)
	man, err := json.MarshalIndent(manifest{
		Title:     title,
		Child:     req.ChildName,
		Theme:     req.Theme,
		Tone:      req.Tone,
		Kind:      kind,
		Pages:     len(pages),
		CreatedAt: sqlutil.FormatTime(now),
		FaceFile:  faceFile,
	}, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshal manifest: %w", err)
	}

	files := map[string][]byte{
		faceFile:        req.FaceData,
		"storybook.md":  []byte(md),
		"manifest.json": man,
	}
	var stored []string
	for name, data := range files {
		contentType := "application/octet-stream"
		switch {
		case name == "storybook.md":
			contentType = "text/markdown; charset=utf-8"
		case name == "manifest.json":
			contentType = "application/json"
		}
		if _, err := g.blob.Put(ctx, path.Join(dir, name), contentType, data); err != nil {
			return Result{}, fmt.Errorf("store %s: %w", name, err)
		}
		stored = append(stored, path.Join(dir, name))
	}

	bundleName := fmt.Sprintf("%s_%s", childKey, stamp)
	archive, err := zipFiles(bundleName, map[string][]byte{
		faceFile:        req.FaceData,
		"storybook.md":  []byte(md),
		"manifest.json": man,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Title:    title,
		Dir:      dir,
		Files:    stored,
		Pages:    len(pages),
		ZipName:  fmt.Sprintf("storybook_%s.zip", bundleName),
		Zip:      archive,
		FaceFile: faceFile,
	}, nil
}

func renderMarkdown(title, theme, tone, faceFile string, pages []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- 테마: %s\n", theme)
	fmt.Fprintf(&b, "- 톤: %s\n", tone)
	fmt.Fprintf(&b, "- 얼굴 기준 이미지: %s\n\n", faceFile)
	for i, page := range pages {
		fmt.Fprintf(&b, "## 페이지 %d\n", i+1)
		fmt.Fprintf(&b, "![page_%d_face_ref](%s)\n\n", i+1, faceFile)
		fmt.Fprintf(&b, "%s\n\n", page)
	}
	return b.String()
}

func zipFiles(prefix string, files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"manifest.json", "storybook.md"} {
		if data, ok := files[name]; ok {
			if err := addZipEntry(zw, path.Join(prefix, name), data); err != nil {
				return nil, err
			}
			delete(files, name)
		}
	}
	for name, data := range files {
		if err := addZipEntry(zw, path.Join(prefix, name), data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize storybook zip: %w", err)
	}
	return buf.Bytes(), nil
}

func addZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}
	return nil
}
