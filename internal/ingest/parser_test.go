package ingest

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/employee-ingest/internal/model"
)

func readAll(t *testing.T, p *Parser) ([]model.EmployeeRecord, error) {
	t.Helper()
	var records []model.EmployeeRecord
	for {
		rec, err := p.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

func TestParser_Next(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []model.EmployeeRecord
		wantErr bool
		errLine int
	}{
		{
			name:  "records in file order",
			input: "name,age,position,salary\nAlice,30,Engineer,1000\nBob,41,Manager,2000.5\n",
			want: []model.EmployeeRecord{
				{Line: 2, Name: "Alice", Age: "30", Position: "Engineer", Salary: "1000"},
				{Line: 3, Name: "Bob", Age: "41", Position: "Manager", Salary: "2000.5"},
			},
		},
		{
			name:  "header columns in any order",
			input: "salary,name,position,age\n1000,Alice,Engineer,30",
			want: []model.EmployeeRecord{
				{Line: 2, Name: "Alice", Age: "30", Position: "Engineer", Salary: "1000"},
			},
		},
		{
			name:  "byte order mark and header case",
			input: "\ufeffName, AGE ,Position,Salary\nAlice,30,Engineer,1000\n",
			want: []model.EmployeeRecord{
				{Line: 2, Name: "Alice", Age: "30", Position: "Engineer", Salary: "1000"},
			},
		},
		{
			name:  "quoted field with comma",
			input: "name,age,position,salary\n\"Doe, Jane\",28,\"Lead, Platform\",3000\n",
			want: []model.EmployeeRecord{
				{Line: 2, Name: "Doe, Jane", Age: "28", Position: "Lead, Platform", Salary: "3000"},
			},
		},
		{
			name:  "header only",
			input: "name,age,position,salary\n",
		},
		{
			name:  "empty file",
			input: "",
		},
		{
			name:    "wrong field count",
			input:   "name,age,position,salary\nAlice,30,Engineer,1000\nBob,41\n",
			want:    []model.EmployeeRecord{{Line: 2, Name: "Alice", Age: "30", Position: "Engineer", Salary: "1000"}},
			wantErr: true,
			errLine: 3,
		},
		{
			name:    "missing header column",
			input:   "name,age,title,salary\nAlice,30,Engineer,1000\n",
			wantErr: true,
			errLine: 1,
		},
		{
			name:    "unterminated quote",
			input:   "name,age,position,salary\n\"Alice,30,Engineer,1000\n",
			wantErr: true,
			errLine: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := readAll(t, NewParser(strings.NewReader(tt.input)))

			assert.Equal(t, tt.want, records)
			if tt.wantErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, tt.errLine, parseErr.Line)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParser_NextAfterError(t *testing.T) {
	p := NewParser(strings.NewReader("name,age\nAlice,30\n"))

	_, err := p.Next()
	require.Error(t, err)

	_, err = p.Next()
	assert.ErrorIs(t, err, io.EOF)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk gone")
}

func TestParser_ReaderFailure(t *testing.T) {
	_, err := NewParser(failingReader{}).Next()

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
	assert.Contains(t, err.Error(), "disk gone")
}
