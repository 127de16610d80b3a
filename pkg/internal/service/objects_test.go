package service

import (
	"testing"
	"time"
)

// TestSanitizeFileName 剥离路径并替换不安全字符.
func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\a\b.txt`, "b.txt"},
		{"带 空格 和中文.txt", "_.txt"},
		{"..", "file"},
		{"", "file"},
		{"a b?c*.txt", "a_b_c_.txt"},
	}

	for _, tc := range cases {
		if got := sanitizeFileName(tc.in); got != tc.want {
			t.Errorf("sanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestBuildObjectKey 对象键包含归属与时间戳段，同名文件互不覆盖.
func TestBuildObjectKey(t *testing.T) {
	at := time.UnixMilli(1700000000000).UTC()

	got := buildObjectKey("u1", "lk_1", "a b.txt", at)
	want := "u1/lk_1/1700000000000/a_b.txt"

	if got != want {
		t.Errorf("buildObjectKey = %q, want %q", got, want)
	}

	later := buildObjectKey("u1", "lk_1", "a b.txt", at.Add(time.Millisecond))
	if later == got {
		t.Error("keys for different timestamps must differ")
	}
}
