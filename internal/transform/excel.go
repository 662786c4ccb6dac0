// Package transform holds the one-shot object transforms: spreadsheet
// conversion, archive extraction, relational loads and remote transfer.
// Each reads from and/or writes to the object store, keeps no state
// between calls, and records its outcome through the audit logger.
package transform

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/domain"
	"github.com/gmarches/s3catalog/internal/storage"
)

// ExcelConverter converts a stored .xlsx workbook into a CSV object
// placed alongside it.
type ExcelConverter struct {
	store storage.ObjectStorage
	audit *audit.Logger
}

func NewExcelConverter(store storage.ObjectStorage, auditLog *audit.Logger) *ExcelConverter {
	return &ExcelConverter{store: store, audit: auditLog}
}

// ConvertToCSV converts one sheet (by name, or the first sheet when
// sheetName is empty) to CSV and uploads it next to the source with a
// .csv extension. Returns the CSV key and the number of rows written.
func (c *ExcelConverter) ConvertToCSV(ctx context.Context, excelKey, sheetName string) (string, int, error) {
	excelKey = strings.TrimSpace(excelKey)
	if excelKey == "" {
		err := domain.Validationf("excel_key is required")
		c.audit.Error(ctx, domain.OpConvert, nil, err)
		return "", 0, err
	}

	rc, err := c.store.GetObject(ctx, excelKey)
	if err != nil {
		err = domain.Dependency("download excel", err)
		c.audit.Error(ctx, domain.OpConvert, map[string]any{"excel_key": excelKey}, err)
		return "", 0, err
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		err = domain.Validationf("failed to open xlsx %s: %v", excelKey, err)
		c.audit.Error(ctx, domain.OpConvert, map[string]any{"excel_key": excelKey}, err)
		return "", 0, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		err := domain.Validationf("xlsx %s has no sheets", excelKey)
		c.audit.Error(ctx, domain.OpConvert, map[string]any{"excel_key": excelKey}, err)
		return "", 0, err
	}
	sheet := sheets[0]
	if sheetName != "" {
		sheet = sheetName
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		err = domain.Validationf("failed to read sheet %s: %v", sheet, err)
		c.audit.Error(ctx, domain.OpConvert, map[string]any{"excel_key": excelKey, "sheet": sheet}, err)
		return "", 0, err
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rowCount := 0
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			err = domain.Validationf("failed to read row from %s: %v", excelKey, err)
			c.audit.Error(ctx, domain.OpConvert, map[string]any{"excel_key": excelKey, "sheet": sheet}, err)
			return "", 0, err
		}
		if err := w.Write(record); err != nil {
			return "", 0, fmt.Errorf("failed to write csv row: %w", err)
		}
		rowCount++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", 0, fmt.Errorf("failed to flush csv: %w", err)
	}

	csvKey := csvKeyFor(excelKey)
	if err := c.store.PutObject(ctx, csvKey, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv"); err != nil {
		err = domain.Dependency("upload csv", err)
		c.audit.Error(ctx, domain.OpConvert, map[string]any{"excel_key": excelKey, "csv_key": csvKey}, err)
		return "", 0, err
	}

	c.audit.Success(ctx, domain.OpConvert, map[string]any{
		"excel_key": excelKey,
		"csv_key":   csvKey,
		"rows":      rowCount,
	})
	return csvKey, rowCount, nil
}

func csvKeyFor(excelKey string) string {
	switch {
	case strings.HasSuffix(excelKey, ".xlsx"):
		return strings.TrimSuffix(excelKey, ".xlsx") + ".csv"
	case strings.HasSuffix(excelKey, ".xls"):
		return strings.TrimSuffix(excelKey, ".xls") + ".csv"
	default:
		return excelKey + ".csv"
	}
}
