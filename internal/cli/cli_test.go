package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/employee-ingest/internal/queue"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "employees.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCountRows(t *testing.T) {
	path := writeCSV(t, "name,age,position,salary\nAlice,30,Engineer,1000\nBob,40,Manager,2000\n")

	stdout, _, err := execute(t, RootCmd(), "count-rows", path)
	require.NoError(t, err)
	assert.Equal(t, "2\n", stdout)
}

func TestCountRows_MissingFile(t *testing.T) {
	_, _, err := execute(t, RootCmd(), "count-rows", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		args       []string
		wantErr    string
		wantOutput []string
	}{
		{
			name:       "all rows valid",
			content:    "name,age,position,salary\nAlice,30,Engineer,1000\nBob,40,Manager,2000.5\n",
			wantOutput: []string{"rows=2 valid=2 invalid=0"},
		},
		{
			name:    "invalid fields are listed per line",
			content: "name,age,position,salary\nAlice,abc,Engineer,1000\n,40,Manager,2000\nCarol,25,Analyst,500\n",
			wantErr: "2 of 3 rows are invalid",
			wantOutput: []string{
				`line 2: invalid age "abc"`,
				"line 3: name is required",
				"rows=3 valid=1 invalid=2",
			},
		},
		{
			name:       "max errors limits the listing",
			content:    "name,age,position,salary\nA,x,P,1\nB,y,P,1\nC,z,P,1\n",
			args:       []string{"--max-errors", "1"},
			wantErr:    "3 of 3 rows are invalid",
			wantOutput: []string{`line 2: invalid age "x"`, "rows=3 valid=0 invalid=3"},
		},
		{
			name:    "malformed row stops decoding",
			content: "name,age,position,salary\nAlice,30,Engineer,1000\nBob,40\n",
			wantErr: "after 1 rows",
		},
		{
			name:       "header only",
			content:    "name,age,position,salary\n",
			wantOutput: []string{"rows=0 valid=0 invalid=0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"validate", writeCSV(t, tt.content)}, tt.args...)
			stdout, _, err := execute(t, RootCmd(), args...)

			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			for _, want := range tt.wantOutput {
				assert.Contains(t, stdout, want)
			}
		})
	}
}

func TestValidate_LimitSkipsLaterLines(t *testing.T) {
	path := writeCSV(t, "name,age,position,salary\nA,x,P,1\nB,y,P,1\n")

	stdout, _, err := execute(t, RootCmd(), "validate", path, "--max-errors", "1")
	require.Error(t, err)
	assert.NotContains(t, stdout, "line 3")
}

type fakeEnqueuer struct {
	path string
	err  error
}

func (f *fakeEnqueuer) EnqueueEmployeeCSV(_ context.Context, filePath string) (*queue.JobHandle, error) {
	f.path = filePath
	if f.err != nil {
		return nil, f.err
	}
	return &queue.JobHandle{JobID: "3f2b8c1e-0000-4000-8000-000000000001", JobType: queue.JobTypeBulkCreateEmployeeCSV}, nil
}

func enqueueRoot(enqueuer *fakeEnqueuer, connectErr error, closed *bool) *cobra.Command {
	root := &cobra.Command{Use: "employeectl", SilenceUsage: true}
	root.PersistentFlags().String("config", "test.yaml", "")
	root.PersistentFlags().Bool("verbose", false, "")
	root.AddCommand(enqueueCSVCmd(func(string, *slog.Logger) (CSVEnqueuer, func(), error) {
		if connectErr != nil {
			return nil, nil, connectErr
		}
		return enqueuer, func() { *closed = true }, nil
	}))
	return root
}

func TestEnqueueCSV(t *testing.T) {
	path := writeCSV(t, "name,age,position,salary\nAlice,30,Engineer,1000\n")
	enqueuer := &fakeEnqueuer{}
	var closed bool

	stdout, stderr, err := execute(t, enqueueRoot(enqueuer, nil, &closed), "enqueue-csv", path)
	require.NoError(t, err)

	assert.Equal(t, "3f2b8c1e-0000-4000-8000-000000000001\n", stdout)
	assert.Contains(t, stderr, "1 rows")
	assert.Equal(t, path, enqueuer.path)
	assert.True(t, closed)
}

func TestEnqueueCSV_Failures(t *testing.T) {
	t.Run("missing file is rejected before connecting", func(t *testing.T) {
		connected := false
		root := &cobra.Command{Use: "employeectl"}
		root.PersistentFlags().String("config", "", "")
		root.PersistentFlags().Bool("verbose", false, "")
		root.AddCommand(enqueueCSVCmd(func(string, *slog.Logger) (CSVEnqueuer, func(), error) {
			connected = true
			return &fakeEnqueuer{}, func() {}, nil
		}))

		_, _, err := execute(t, root, "enqueue-csv", filepath.Join(t.TempDir(), "missing.csv"))
		require.Error(t, err)
		assert.False(t, connected)
	})

	t.Run("connection failure", func(t *testing.T) {
		path := writeCSV(t, "name,age,position,salary\n")
		_, _, err := execute(t, enqueueRoot(nil, errors.New("dial tcp: refused"), nil), "enqueue-csv", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "refused")
	})

	t.Run("publish failure still closes the connection", func(t *testing.T) {
		path := writeCSV(t, "name,age,position,salary\n")
		var closed bool
		enqueuer := &fakeEnqueuer{err: errors.New("channel closed")}

		_, _, err := execute(t, enqueueRoot(enqueuer, nil, &closed), "enqueue-csv", path)
		require.Error(t, err)
		assert.True(t, closed)
	})
}
