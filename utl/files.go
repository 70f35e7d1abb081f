package utl

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// WriteFile 先写入同目录的临时文件再改名，读取方不会看到写了一半的内容
func WriteFile(source io.Reader, target string) error {
	if source == nil {
		return errors.New("nil source reader")
	}
	if target == "" {
		return errors.New("empty target path")
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = io.Copy(tmp, source); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
