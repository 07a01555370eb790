package reconcile

import (
	"context"
	"strings"

	"gradebook-engine/internal/category"
	"gradebook-engine/internal/excel"
	"gradebook-engine/internal/model"
)

// Upload is a gradesheet as received: the original file name selects the
// parser.
type Upload struct {
	FileName string
	Data     []byte
}

type entry struct {
	number string
	name   string
	grades map[string]string
}

// batch is a parsed upload folded to one entry per student number, in the
// order the numbers first appear.
type batch struct {
	fileName  string
	maxValues model.AssessmentColumnSpec
	entries   []*entry
	skipped   int
}

func (b *batch) rows() int {
	return len(b.entries)
}

func readBatch(ctx context.Context, reader *excel.Reader, upload Upload) (*batch, error) {
	sheet, err := reader.Read(ctx, upload.FileName, upload.Data)
	if err != nil {
		return nil, err
	}
	numberCol, _ := category.StudentNumberColumn(sheet.Headers)
	nameCol, hasName := category.StudentNameColumn(sheet.Headers)

	b := &batch{
		fileName:  upload.FileName,
		maxValues: sheet.MaxValues,
	}
	index := make(map[string]*entry)

	for rec, err := range sheet.Records() {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		number := strings.TrimSpace(rec[numberCol])
		if number == "" {
			b.skipped++
			continue
		}

		grades := make(map[string]string, len(rec))
		for h, v := range rec {
			if h != numberCol {
				grades[h] = v
			}
		}
		name := ""
		if hasName {
			name = strings.TrimSpace(rec[nameCol])
		}

		if e, ok := index[number]; ok {
			for h, v := range grades {
				if v != "" {
					e.grades[h] = v
				}
			}
			if e.name == "" {
				e.name = name
			}
			continue
		}

		e := &entry{number: number, name: name, grades: grades}
		index[number] = e
		b.entries = append(b.entries, e)
	}
	return b, nil
}
