package export

import (
	"fmt"
	"io"

	"orderdesk/internal/entity"

	"github.com/xuri/excelize/v2"
)

// Write encodes orders as a single-sheet workbook and writes it to w.
func (e *Exporter) Write(w io.Writer, orders []entity.Order) error {
	const op = "export.Write"

	if len(orders) == 0 {
		return ErrNoOrders
	}

	rows := e.Rows(orders)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("%s: rename sheet: %w", op, err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("%s: new stream writer: %w", op, err)
	}

	if err := sw.SetColWidth(1, len(Columns), float64(ColumnWidth(rows))); err != nil {
		return fmt.Errorf("%s: set column width: %w", op, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("%s: header style: %w", op, err)
	}

	header := make([]any, 0, len(Columns))
	for _, c := range Columns {
		header = append(header, c)
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("%s: write header: %w", op, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%s: cell name: %w", op, err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("%s: write row %d: %w", op, i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("%s: flush: %w", op, err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%s: write workbook: %w", op, err)
	}

	e.metrics.RowsExported(len(rows))

	return nil
}
