package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/elevix/approval-flow/internal/domain/entity"
)

// Exporter writes a workflow summary workbook
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new report exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

var headers = []string{
	"Reference", "Kind", "Document Type", "Status", "Current Level",
	"Submitter", "Created", "Updated",
}

// WriteWorkbook renders the records as a single-sheet xlsx document
func (e *Exporter) WriteWorkbook(records []*entity.WorkflowRecord, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Workflows"
	f.SetSheetName("Sheet1", sheetName)

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell: %w", err)
		}
		e.setCell(f, sheetName, cell, h)
	}

	for row, rec := range records {
		values := []interface{}{
			rec.Reference,
			string(rec.Kind),
			string(rec.DocType),
			string(rec.Status),
			rec.CurrentLevel,
			rec.SubmitterID,
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.UpdatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("failed to build cell name: %w", err)
			}
			e.setCell(f, sheetName, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Workflow report exported", zap.Int("rows", len(records)))
	return nil
}

func (e *Exporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
