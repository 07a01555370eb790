package excel

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"gradebook-engine/pkg/errors"

	"github.com/xuri/excelize/v2"
)

// Parser reads the first worksheet of an xlsx workbook.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, data []byte) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	open := func() (rowSource, error) {
		rows, err := p.readRows(data)
		if err != nil {
			return nil, err
		}
		return &sliceRows{rows: rows}, nil
	}
	return parseSheet(open)
}

func (p *Parser) readRows(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", errors.ErrInvalidFileFormat, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no worksheets", errors.ErrInvalidFileFormat)
	}

	sheetName := sheets[0]
	rows, err := file.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get rows: %v", errors.ErrInvalidFileFormat, err)
	}

	for r, row := range rows {
		for c, value := range row {
			row[c] = p.coerceCell(file, sheetName, c+1, r+1, value)
		}
	}
	return rows, nil
}

// coerceCell renders typed cells as text: numbers canonically, booleans
// as "true"/"false". Text cells are returned unchanged.
func (p *Parser) coerceCell(file *excelize.File, sheet string, col, row int, value string) string {
	num, numErr := strconv.ParseFloat(strings.TrimSpace(value), 64)
	isBoolText := strings.EqualFold(value, "true") || strings.EqualFold(value, "false")
	if numErr != nil && !isBoolText {
		return value
	}

	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return value
	}
	cellType, err := file.GetCellType(sheet, axis)
	if err != nil {
		return value
	}

	switch cellType {
	case excelize.CellTypeBool:
		if value == "1" || strings.EqualFold(value, "true") {
			return "true"
		}
		return "false"
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if numErr == nil {
			return strconv.FormatFloat(num, 'f', -1, 64)
		}
	}
	return value
}

type sliceRows struct {
	rows [][]string
	i    int
}

func (r *sliceRows) Next() bool {
	r.i++
	return r.i <= len(r.rows)
}

func (r *sliceRows) Row() ([]string, error) {
	return r.rows[r.i-1], nil
}

func (r *sliceRows) Close() error {
	return nil
}

func parseSheet(open func() (rowSource, error)) (*Sheet, error) {
	sheet, err := newSheet(open)
	if err != nil {
		return nil, err
	}
	if len(sheet.Headers) == 0 {
		return nil, fmt.Errorf("%w: missing header row", errors.ErrInvalidFileFormat)
	}
	return sheet, nil
}
