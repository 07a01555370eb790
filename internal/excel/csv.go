package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"gradebook-engine/pkg/errors"
)

// CSVParser reads comma-separated gradesheets. Cells are text, so no type
// coercion is applied beyond trimming.
type CSVParser struct {
	Comma rune
}

func NewCSVParser() *CSVParser {
	return &CSVParser{Comma: ','}
}

func (p *CSVParser) Parse(ctx context.Context, data []byte) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	open := func() (rowSource, error) {
		r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
		r.Comma = p.Comma
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true
		return &csvRows{r: r}, nil
	}
	return parseSheet(open)
}

type csvRows struct {
	r   *csv.Reader
	row []string
	err error
}

func (c *csvRows) Next() bool {
	if c.err != nil {
		return false
	}
	c.row, c.err = c.r.Read()
	if c.err == io.EOF {
		return false
	}
	return true
}

func (c *csvRows) Row() ([]string, error) {
	if c.err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidFileFormat, c.err)
	}
	for i, cell := range c.row {
		c.row[i] = strings.TrimSpace(cell)
	}
	return c.row, nil
}

func (c *csvRows) Close() error {
	return nil
}
