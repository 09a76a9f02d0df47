package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cuongbtq/employee-ingest/internal/model"
)

// Columns is the expected CSV header, in canonical order
var Columns = []string{"name", "age", "position", "salary"}

// Parser decodes employee records from a CSV stream, one row at a time.
// The first row is the header and is never returned. A Parser is not restartable.
type Parser struct {
	reader *csv.Reader
	index  map[string]int
	done   bool
}

// NewParser wraps r. Nothing is read until the first call to Next.
func NewParser(r io.Reader) *Parser {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Columns)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	return &Parser{reader: reader}
}

// Next returns the next record in file order, io.EOF at the end of the stream,
// a *ParseError for a row that cannot be decoded, or an *IOError if the
// underlying reader fails. After an error every call returns io.EOF.
func (p *Parser) Next() (model.EmployeeRecord, error) {
	if p.done {
		return model.EmployeeRecord{}, io.EOF
	}

	if p.index == nil {
		if err := p.readHeader(); err != nil {
			p.done = true
			return model.EmployeeRecord{}, err
		}
	}

	row, err := p.reader.Read()
	if err != nil {
		p.done = true
		if errors.Is(err, io.EOF) {
			return model.EmployeeRecord{}, io.EOF
		}
		return model.EmployeeRecord{}, toParseError(err)
	}

	line, _ := p.reader.FieldPos(0)
	return model.EmployeeRecord{
		Line:     line,
		Name:     row[p.index["name"]],
		Age:      row[p.index["age"]],
		Position: row[p.index["position"]],
		Salary:   row[p.index["salary"]],
	}, nil
}

func (p *Parser) readHeader() error {
	header, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		// an empty file behaves like a header-only file
		p.index = map[string]int{}
		p.done = true
		return io.EOF
	}
	if err != nil {
		return toParseError(err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			return &ParseError{Line: 1, Err: fmt.Errorf("header is missing column %q", col)}
		}
	}

	p.index = index
	return nil
}

// toParseError keeps structural CSV errors as *ParseError; anything else came
// from the underlying reader.
func toParseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: csvErr.Err}
	}
	return &IOError{Op: "read", Err: err}
}
