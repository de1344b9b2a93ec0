package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/stylus/observability"
)

const greetingDSL = `doc Greeting v1 {
  meta { title: "Greeting" }
  page receipt {
    text { "Hello {{ name | upper }}" }
  }
}
`

// runCLI 在隔离的目录与 HOME 下执行命令，返回 stdout 与 stderr。
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "stylus dev\n", out)

	out, _, err = runCLI(t, "", "--version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestRenderToStdout(t *testing.T) {
	src := t.TempDir()
	doc := writeFile(t, src, "greeting.stylus", greetingDSL)
	data := writeFile(t, src, "data.yaml", "name: ada\n")

	out, _, err := runCLI(t, "", "render", doc, "--data", data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "\x1b@"))
	assert.Contains(t, out, "Hello ADA")
}

func TestRenderFromStdinToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out", "notes.prn")
	_, _, err := runCLI(t, "# Notes\n\nfrom stdin\n", "render", "--format", "markdown", "-o", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "from stdin")
}

func TestRenderInlineData(t *testing.T) {
	out, _, err := runCLI(t, greetingDSL, "render", "--data-json", `{"name":"bob"}`, "--page", "letter")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello BOB")

	_, _, err = runCLI(t, greetingDSL, "render", "--data-json", `{bad`)
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	out, _, err := runCLI(t, greetingDSL, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, `"pages"`)
	assert.Contains(t, out, `"receipt"`)
}

func TestRenderErrors(t *testing.T) {
	_, _, err := runCLI(t, "", "render", "missing.stylus")
	assert.Error(t, err)

	_, _, err = runCLI(t, "doc {", "render")
	assert.Error(t, err)

	_, _, err = runCLI(t, greetingDSL, "render", "--format", "docx")
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	_, _, err := runCLI(t, greetingDSL, "render", "--dpi", "100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device.dpi")

	_, _, err = runCLI(t, greetingDSL, "render", "--config", "nope.yaml")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	src := t.TempDir()
	cfg := writeFile(t, src, "stylus.yaml", "device:\n  init: false\n")
	out, _, err := runCLI(t, greetingDSL, "render", "-c", cfg, "--data-json", `{"name":"x"}`)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(out, "\x1b@"), "device.init false skips the reset")
}

func TestBatch(t *testing.T) {
	src := t.TempDir()
	good := writeFile(t, src, "good.stylus", greetingDSL)
	notes := writeFile(t, src, "notes.md", "# Notes\n")
	outDir := filepath.Join(t.TempDir(), "prn")

	out, _, err := runCLI(t, "", "batch", good, notes, "-O", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(outDir, "good.prn"))
	assert.FileExists(t, filepath.Join(outDir, "notes.prn"))

	bad := writeFile(t, src, "bad.stylus", "doc {")
	_, errOut, err := runCLI(t, "", "batch", good, bad, "-O", outDir)
	require.Error(t, err)
	assert.Contains(t, errOut, "bad.stylus")

	_, _, err = runCLI(t, "", "batch", good, "--mode", "fax")
	assert.Error(t, err)
}
