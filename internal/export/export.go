// Package export renders the reference index as CSV and XLSX and packages
// the captured output tree as a zip archive.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/apc-golf/refhub/internal/refs"
	"github.com/apc-golf/refhub/internal/store/sqlutil"
)

// listAll pulls every row, newest update first, matching the export order.
func listAll(ctx context.Context, store refs.Store) ([]refs.Reference, error) {
	return store.List(ctx, refs.Filter{Status: "ALL", Limit: 1_000_000})
}

func rowValues(r refs.Reference) []string {
	score := ""
	if r.APCFitScore != nil {
		score = strconv.Itoa(*r.APCFitScore)
	}
	created, updated := "", ""
	if !r.CreatedAt.IsZero() {
		created = sqlutil.FormatTime(r.CreatedAt)
	}
	if !r.UpdatedAt.IsZero() {
		updated = sqlutil.FormatTime(r.UpdatedAt)
	}
	return []string{
		r.ID, r.Brand, r.Season, r.Item, r.SourceURL,
		r.PageTitle, r.ImagePath, r.CapturedAt,
		r.Silhouette, r.Color, r.Detail, r.Material,
		r.Mood, r.Function, r.UseCase,
		r.FitKey, score, r.Notes,
		string(r.Status), r.ErrorMessage, created, updated,
	}
}

// WriteCSV streams the full index to w in the fixed column order.
func WriteCSV(ctx context.Context, store refs.Store, w io.Writer) error {
	rows, err := listAll(ctx, store)
	if err != nil {
		return fmt.Errorf("list references: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(refs.ExportColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(rowValues(r)); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteXLSX renders the full index as a spreadsheet with a frozen, bold
// header row.
func WriteXLSX(ctx context.Context, store refs.Store, w io.Writer) error {
	rows, err := listAll(ctx, store)
	if err != nil {
		return fmt.Errorf("list references: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "References"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range refs.ExportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("write header cell: %w", err)
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(refs.ExportColumns), 1)
		_ = f.SetCellStyle(sheet, "A1", last, headerStyle)
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	for rowIdx, r := range rows {
		for colIdx, v := range rowValues(r) {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write cell: %w", err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
