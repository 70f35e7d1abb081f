package utl

import (
	"crypto/md5"
	"encoding/hex"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// Root 项目根目录，按本文件的位置推导
func Root() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	return filepath.Dir(filepath.Dir(filename))
}

func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// MD5 十六进制摘要，用作缓存键
func MD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NormalizePath 路由路径以 / 开头且没有多余的斜杠
func NormalizePath(raw string) string {
	cleaned := path.Clean("/" + strings.TrimSpace(raw))
	if cleaned == "." || cleaned == "" {
		return "/"
	}
	return cleaned
}
