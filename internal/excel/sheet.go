package excel

import (
	"iter"
	"math"
	"strconv"
	"strings"

	"gradebook-engine/internal/model"
)

// rowSource yields raw cell rows of a document from the first row on.
type rowSource interface {
	Next() bool
	Row() ([]string, error)
	Close() error
}

// Sheet is a parsed gradesheet. Headers and MaxValues are read eagerly;
// data rows are produced by Records, which re-reads the original bytes on
// every call.
type Sheet struct {
	Headers   []string
	MaxValues model.AssessmentColumnSpec

	columns []string // trimmed header cells by column index
	open    func() (rowSource, error)
}

// Records yields one raw record per data row (third row onwards). Every
// header is present in each record; missing cells map to "". Rows with no
// content are skipped.
func (s *Sheet) Records() iter.Seq2[model.RawRecord, error] {
	return func(yield func(model.RawRecord, error) bool) {
		src, err := s.open()
		if err != nil {
			yield(nil, err)
			return
		}
		defer src.Close()

		for i := 0; src.Next(); i++ {
			row, err := src.Row()
			if err != nil {
				yield(nil, err)
				return
			}
			if i < 2 || blank(row) {
				continue
			}
			if !yield(s.record(row), nil) {
				return
			}
		}
	}
}

// Collect drains Records into a slice.
func (s *Sheet) Collect() ([]model.RawRecord, error) {
	var out []model.RawRecord
	for rec, err := range s.Records() {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Sheet) record(row []string) model.RawRecord {
	rec := make(model.RawRecord, len(s.Headers))
	for _, h := range s.Headers {
		rec[h] = ""
	}
	s.eachColumn(row, func(header, value string) {
		rec[header] = value
	})
	return rec
}

// eachColumn walks row cells under non-empty headers in column order, so a
// duplicated header ends up with the last column's value.
func (s *Sheet) eachColumn(row []string, fn func(header, value string)) {
	for i, h := range s.columns {
		if h == "" {
			continue
		}
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}
		fn(h, value)
	}
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// newSheet reads the header row and the max-value row from src.
func newSheet(open func() (rowSource, error)) (*Sheet, error) {
	src, err := open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var header, maxRow []string
	for i := 0; i < 2 && src.Next(); i++ {
		row, err := src.Row()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			header = row
		} else {
			maxRow = row
		}
	}

	s := &Sheet{
		MaxValues: model.AssessmentColumnSpec{},
		open:      open,
	}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		h = strings.TrimSpace(h)
		s.columns = append(s.columns, h)
		if h != "" && !seen[h] {
			s.Headers = append(s.Headers, h)
			seen[h] = true
		}
	}

	s.eachColumn(maxRow, func(h, value string) {
		if max, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(max) && !math.IsInf(max, 0) {
			s.MaxValues[h] = max
		} else {
			delete(s.MaxValues, h)
		}
	})
	return s, nil
}
