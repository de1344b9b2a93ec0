// Package fonts locates monospace TrueType fonts for the PDF preview.
package fonts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ErrNotFound 表示在字体目录中找不到任何候选字体。
var ErrNotFound = errors.New("未找到可用的等宽字体")

// Candidates 是常见的等宽字体文件名，按优先级排列。
var Candidates = []string{
	"DejaVuSansMono.ttf",
	"LiberationMono-Regular.ttf",
	"NotoSansMono-Regular.ttf",
	"FreeMono.ttf",
	"UbuntuMono-R.ttf",
	"cour.ttf",
	"Courier New.ttf",
}

// Dirs 返回系统与用户字体目录（未展开 ~）。
func Dirs() []string {
	return []string{
		"/usr/share/fonts",
		"/usr/local/share/fonts",
		"~/.fonts",
		"~/.local/share/fonts",
		"/Library/Fonts",
		"~/Library/Fonts",
		"/System/Library/Fonts",
		`C:\Windows\Fonts`,
	}
}

// Find 在系统字体目录中查找 names（为空时使用 Candidates），返回第一个命中的路径。
func Find(names ...string) (string, error) {
	if len(names) == 0 {
		names = Candidates
	}
	return findIn(Dirs(), names)
}

func findIn(dirs, names []string) (string, error) {
	found := map[string]string{}
	for _, dir := range dirs {
		root, err := homedir.Expand(dir)
		if err != nil {
			continue
		}
		if _, err := os.Stat(root); err != nil {
			continue
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			key := strings.ToLower(d.Name())
			if _, ok := found[key]; !ok {
				found[key] = path
			}
			return nil
		})
	}
	for _, name := range names {
		if path, ok := found[strings.ToLower(name)]; ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w（候选：%s）", ErrNotFound, strings.Join(names, ", "))
}

// Load 读取字体文件，path 支持 ~ 开头。
func Load(path string) ([]byte, error) {
	full, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("解析字体路径 %s 失败: %w", path, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", path, err)
	}
	return data, nil
}
