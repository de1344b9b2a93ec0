package fonts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func TestFindPrefersCandidateOrder(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "truetype", "dejavu")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"FreeMono.ttf", "DejaVuSansMono.ttf"} {
		if err := os.WriteFile(filepath.Join(sub, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := findIn([]string{filepath.Join(dir, "missing"), dir}, Candidates)
	if err != nil {
		t.Fatalf("查找字体失败: %v", err)
	}
	if filepath.Base(got) != "DejaVuSansMono.ttf" {
		t.Fatalf("期望优先命中 DejaVuSansMono.ttf，实际 %s", got)
	}

	if _, err := findIn([]string{dir}, []string{"nope.ttf"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("期望 ErrNotFound，实际 %v", err)
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	if err := os.WriteFile(filepath.Join(home, "mono.ttf"), []byte("font"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := Load("~/mono.ttf")
	if err != nil {
		t.Fatalf("读取字体失败: %v", err)
	}
	if string(data) != "font" {
		t.Fatalf("内容不符: %q", data)
	}
	if _, err := Load("~/missing.ttf"); err == nil {
		t.Fatalf("缺失文件应当报错")
	}
}
