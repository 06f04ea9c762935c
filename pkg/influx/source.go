package influx

import "io"

// RowSource yields rows one at a time. io.EOF marks the end of the
// sequence; any other error is terminal.
type RowSource interface {
	Next() (Row, error)
}

// PageSource yields pages one at a time. io.EOF marks the end of the
// sequence; any other error is terminal.
type PageSource interface {
	Next() (Page, error)
}

// FlattenPages concatenates the rows of successive pages into one flat
// row stream. The returned source is single-pass and consumes ps lazily,
// one page at a time.
func FlattenPages(ps PageSource) RowSource {
	return &pageFlattener{pages: ps}
}

type pageFlattener struct {
	pages PageSource
	cur   []Row
	idx   int
	err   error
}

func (f *pageFlattener) Next() (Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	for f.idx >= len(f.cur) {
		page, err := f.pages.Next()
		if err != nil {
			f.err = err
			return nil, err
		}
		f.cur = page.Rows
		f.idx = 0
	}
	row := f.cur[f.idx]
	f.idx++
	return row, nil
}

// CollectRows drains a row source into a slice. io.EOF is consumed as the
// normal end of the stream.
func CollectRows(src RowSource) ([]Row, error) {
	var rows []Row
	for {
		row, err := src.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

// CollectPages drains a page source into a slice. io.EOF is consumed as
// the normal end of the stream.
func CollectPages(src PageSource) ([]Page, error) {
	var pages []Page
	for {
		page, err := src.Next()
		if err == io.EOF {
			return pages, nil
		}
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)
	}
}
