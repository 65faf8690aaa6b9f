package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/serial-plotter/backend/internal/export"
	"github.com/serial-plotter/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return export.StripANSI(out.String()), err
}

func fields(line string) []string {
	return strings.Fields(strings.ReplaceAll(line, "■", ""))
}

func TestParseStdinSummary(t *testing.T) {
	out, err := run(t, "header a:'red' b\n1 2\n3 4\nboot ok\n", "parse")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "stdin: 4 lines"), lines[0])
	assert.Contains(t, lines[0], "4 samples")
	assert.Equal(t, []string{"NAME", "LABEL", "COLOR", "COUNT", "MIN", "MAX", "CURRENT"}, fields(lines[1]))
	assert.Equal(t, []string{"a", "a", "red", "2", "1", "3", "3"}, fields(lines[2]))

	b := fields(lines[3])
	require.Len(t, b, 7)
	assert.Equal(t, "b", b[0])
	assert.Equal(t, []string{"2", "2", "4", "4"}, b[3:])
}

func TestParseWindow(t *testing.T) {
	out, err := run(t, "1\n5\n2\n", "parse", "--window", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	row := fields(lines[2])
	assert.Equal(t, "line1", row[0])
	assert.Equal(t, []string{"2", "2", "5", "2"}, row[3:])
}

func TestParseNoAutoDropsUndeclared(t *testing.T) {
	out, err := run(t, "temp: 20\n", "parse", "--no-auto")
	require.NoError(t, err)
	assert.Contains(t, out, "1 values dropped by closed auto update")
	assert.Contains(t, out, "no variables")
}

func TestParseStrict(t *testing.T) {
	out, err := run(t, "Publishing 24.64 temp:25\n", "parse", "--strict")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "temp", fields(lines[2])[0])
}

func TestParseCSV(t *testing.T) {
	out, err := run(t, "a: 1 b: 2\na: 3\n", "parse", "--csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\n3,2\n", out)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	require.NoError(t, os.WriteFile(path, []byte("x: 1\r\nx: 2\r\n"), 0o644))

	out, err := run(t, "", "parse", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, path+": 2 lines"), out)
}

func TestParseMissingFile(t *testing.T) {
	_, err := run(t, "", "parse", filepath.Join(t.TempDir(), "nope.log"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening capture")
}

func TestSimulate(t *testing.T) {
	out, err := run(t, "", "simulate", "--lines", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Connecting ...", lines[0])
	assert.Contains(t, lines[1], "header")
	assert.Contains(t, lines[2], "0.0000\t1.0000\t0.0000")
}

func TestSimulateRejectsZeroLines(t *testing.T) {
	_, err := run(t, "", "simulate", "--lines", "0")
	assert.Error(t, err)
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, nil, nil)
	assert.Equal(t, "no variables\n", export.StripANSI(buf.String()))
}

func TestRenderSummaryWithoutSamples(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, []models.Variable{{Name: "v", DisplayName: "Volts", Color: "#ff0000"}}, nil)

	lines := strings.Split(strings.TrimSpace(export.StripANSI(buf.String())), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"v", "Volts", "#ff0000", "0", "-", "-", "-"}, fields(lines[1]))
}
