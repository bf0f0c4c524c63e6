package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadURLsFromFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "跳过空行注释和重复",
			content: "# sites\nhttps://a.example.com\n\n  https://b.example.com  \nhttps://a.example.com\n",
			want:    []string{"https://a.example.com", "https://b.example.com"},
		},
		{
			name:    "跳过无效URL",
			content: "ftp://x.example.com\nnot a url\nhttp://ok.example.com\n",
			want:    []string{"http://ok.example.com"},
		},
		{
			name:    "没有有效URL",
			content: "# only comments\n\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "urls.txt")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			got, err := ReadURLsFromFile(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadURLsFromFile() = %v, 期望 %v", got, tt.want)
			}
		})
	}

	t.Run("文件不存在", func(t *testing.T) {
		if _, err := ReadURLsFromFile(filepath.Join(t.TempDir(), "missing")); err == nil {
			t.Error("期望返回错误")
		}
	})
}
