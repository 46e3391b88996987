package outwriter

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON_Indented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, jsonSession{ID: 7, Status: "completed", Methods: 12}))

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, "\n  \"id\": 7,")
	assert.Contains(t, out, `"status": "completed"`)
}

func TestWriteJSON_Unencodable(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteWithFile(t *testing.T) {
	quiet(t)
	path := filepath.Join(t.TempDir(), "sessions.json")

	err := writeWithFile(path, func(w io.Writer) error {
		return writeJSON(w, []jsonSession{{ID: 1, Repositories: 3}, {ID: 2, Repositories: 4}})
	}, "Wrote sessions")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []jsonSession
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[1].Repositories)
}

func TestWriteWithFile_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	err := writeWithFile(path, func(io.Writer) error { return assert.AnError }, "unused")
	assert.ErrorIs(t, err, assert.AnError)

	err = writeWithFile("/nonexistent/dir/out.txt", func(io.Writer) error { return nil }, "unused")
	assert.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	err := renderTable(&buf, []string{"Repository", "Methods"}, [][]string{
		{"shop", "12"},
		{"tools", "3"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "REPOSITORY")
	assert.Contains(t, out, "shop")
	assert.Contains(t, out, "12")
	assert.Less(t, strings.Index(out, "shop"), strings.Index(out, "tools"))
}

func TestSection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, section(&buf, "Recent sessions"))
	assert.Equal(t, "\nRecent sessions\n", buf.String())
}
