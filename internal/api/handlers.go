package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/apc-golf/refhub/internal/capture"
	"github.com/apc-golf/refhub/internal/cardnews"
	"github.com/apc-golf/refhub/internal/export"
	"github.com/apc-golf/refhub/internal/refs"
	"github.com/apc-golf/refhub/internal/storybook"
)

// maxUploadBytes caps each uploaded asset, matching the storybook face cap.
const maxUploadBytes = storybook.MaxFaceImageBytes

type enqueueRequest struct {
	Brand    string   `json:"brand"`
	Season   string   `json:"season"`
	Item     string   `json:"item"`
	URLs     []string `json:"urls"`
	URLsText string   `json:"urls_text"`
}

func (s *Server) enqueueReferences(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Brand = strings.TrimSpace(req.Brand)
	req.Season = strings.TrimSpace(req.Season)
	req.Item = strings.TrimSpace(req.Item)
	if req.Brand == "" || req.Season == "" || req.Item == "" {
		writeError(w, http.StatusBadRequest, "brand, season, and item are required")
		return
	}

	urls := req.URLs
	if len(urls) == 0 {
		urls = refs.DedupeLines(req.URLsText)
	} else {
		urls = refs.DedupeLines(strings.Join(urls, "\n"))
	}
	if len(urls) == 0 {
		writeError(w, http.StatusBadRequest, "at least one URL required")
		return
	}

	rows := make([]refs.NewRef, len(urls))
	for i, u := range urls {
		rows[i] = refs.NewRef{Brand: req.Brand, Season: req.Season, Item: req.Item, SourceURL: u}
	}
	inserted, duplicated, err := s.store.Enqueue(r.Context(), rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{
		"inserted":   inserted,
		"duplicated": duplicated,
	})
}

func (s *Server) listReferences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 1000
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}
	status := q.Get("status")
	if status == "" {
		status = "ALL"
	}
	rows, err := s.store.List(r.Context(), refs.Filter{
		Brand:  q.Get("brand"),
		Season: q.Get("season"),
		Item:   q.Get("item"),
		Status: status,
		Limit:  limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []refs.Reference{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"references": rows,
		"count":      len(rows),
	})
}

type tagUpdateRequest struct {
	Rows []refs.TagUpdate `json:"rows"`
}

func (s *Server) updateTags(w http.ResponseWriter, r *http.Request) {
	var req tagUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "no rows to update")
		return
	}
	updated, err := s.store.UpdateTags(r.Context(), req.Rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

type retryRequest struct {
	IDs       []string `json:"ids"`
	AllFailed bool     `json:"all_failed"`
	Limit     int      `json:"limit"`
}

func (s *Server) retryFailed(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	ids := req.IDs
	if req.AllFailed {
		limit := req.Limit
		if limit <= 0 {
			limit = s.cfg.Worker.Limit
		}
		failed, err := s.store.ListFailed(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, row := range failed {
			ids = append(ids, row.ID)
		}
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "nothing to retry")
		return
	}
	reset, err := s.store.ResetToPending(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reset": reset})
}

func (s *Server) processQueue(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "capture worker not available")
		return
	}
	limit := s.cfg.Worker.Limit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}
	result, err := s.runner.RunBatch(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteCSV(r.Context(), s.store, &buf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="index.csv"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(r.Context(), s.store, &buf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="references.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) archive(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.ZipTree(s.cfg.OutputRoot(), "output", &buf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stamp := s.clock.Now().Format("20060102_150405")
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="reference_archive_%s.zip"`, stamp))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) uploadAssets(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	brand := strings.TrimSpace(r.FormValue("brand"))
	season := strings.TrimSpace(r.FormValue("season"))
	item := strings.TrimSpace(r.FormValue("item"))
	if brand == "" || season == "" || item == "" {
		writeError(w, http.StatusBadRequest, "brand, season, and item are required")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	saved := make([]map[string]string, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("%s exceeds %dMB limit", fh.Filename, maxUploadBytes>>20))
			return
		}
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
		_ = f.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(data) > maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("%s exceeds %dMB limit", fh.Filename, maxUploadBytes>>20))
			return
		}

		name := path.Base(fh.Filename)
		rel := capture.UploadPath(brand, season, item, name)
		if _, err := s.blob.Put(r.Context(), rel, fh.Header.Get("Content-Type"), data); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		id, err := s.store.SaveUploadedAsset(r.Context(), refs.NewRef{
			Brand:     brand,
			Season:    season,
			Item:      item,
			SourceURL: "local://" + name,
		}, path.Join("output", rel))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		saved = append(saved, map[string]string{
			"id":         id,
			"file":       name,
			"image_path": path.Join("output", rel),
		})
	}
	s.log.Info("uploaded assets indexed", zap.Int("count", len(saved)))
	writeJSON(w, http.StatusCreated, map[string]any{"saved": saved})
}

func (s *Server) createStorybook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	face, faceHeader, err := r.FormFile("face")
	if err != nil {
		writeError(w, http.StatusBadRequest, "face image is required")
		return
	}
	defer face.Close()
	faceData, err := io.ReadAll(io.LimitReader(face, storybook.MaxFaceImageBytes+1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	req := storybook.Request{
		ChildName:   r.FormValue("child_name"),
		Theme:       r.FormValue("theme"),
		Tone:        r.FormValue("tone"),
		Kind:        storybook.Kind(r.FormValue("kind")),
		Title:       r.FormValue("title"),
		CustomPages: refs.DedupeLines(r.FormValue("custom_pages")),
		FaceName:    faceHeader.Filename,
		FaceData:    faceData,
	}
	result, err := s.storybook.Generate(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("storybook generated",
		zap.String("dir", result.Dir), zap.Int("pages", result.Pages))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, result.ZipName))
	w.Header().Set("X-Storybook-Dir", result.Dir)
	_, _ = w.Write(result.Zip)
}

type cardnewsRequest struct {
	Topic     string `json:"topic"`
	Direction string `json:"direction"`
	Style     string `json:"style"`
}

func (s *Server) createCardnews(w http.ResponseWriter, r *http.Request) {
	var req cardnewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	direction := cardnews.Direction(req.Direction)
	if direction == "" {
		direction = cardnews.DirectionBoring
	}
	bundle, err := cardnews.Build(req.Topic, direction, req.Style, s.clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("cardnews generated", zap.String("topic", bundle.Topic))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, bundle.FileName))
	_, _ = w.Write(bundle.Zip)
}
