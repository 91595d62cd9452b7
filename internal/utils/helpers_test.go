package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadURLsFromFile(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("写入测试文件失败: %v", err)
		}
		return path
	}

	t.Run("跳过注释空行无效项和重复项", func(t *testing.T) {
		path := write("sites.txt", `# 站点列表
https://shop-a.example

  https://shop-b.example/
ftp://files.example
not a url
https://shop-a.example
`)
		got, err := ReadURLsFromFile(path)
		if err != nil {
			t.Fatalf("读取失败: %v", err)
		}
		want := []string{"https://shop-a.example", "https://shop-b.example/"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ReadURLsFromFile() = %v, want %v", got, want)
		}
	})

	t.Run("没有有效URL", func(t *testing.T) {
		path := write("empty.txt", "# nothing\n\n")
		if _, err := ReadURLsFromFile(path); err == nil {
			t.Error("期望返回错误")
		}
	})

	t.Run("文件不存在", func(t *testing.T) {
		if _, err := ReadURLsFromFile(filepath.Join(dir, "missing.txt")); err == nil {
			t.Error("期望返回错误")
		}
	})
}
