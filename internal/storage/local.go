package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend 将文档写入本地磁盘，适用于单机部署与本地开发。
// 引用与删除键均为基于根目录的相对路径。
type LocalBackend struct {
	baseDir string
}

var _ Backend = (*LocalBackend)(nil)

// NewLocalBackend 创建本地磁盘后端，根目录不存在时会自动创建。
func NewLocalBackend(baseDir string) (*LocalBackend, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, fmt.Errorf("local storage dir is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", baseDir, err)
	}
	return &LocalBackend{baseDir: baseDir}, nil
}

// Store 将对象写入 baseDir 下的 objectKey 路径。
func (b *LocalBackend) Store(_ context.Context, objectKey string, reader io.Reader, _ int64, _ string) (StoredObject, error) {
	cleaned, err := b.resolve(objectKey)
	if err != nil {
		return StoredObject{}, err
	}

	if err := os.MkdirAll(filepath.Dir(cleaned), 0o755); err != nil {
		return StoredObject{}, fmt.Errorf("create dir for %q: %w", objectKey, err)
	}

	f, err := os.Create(cleaned)
	if err != nil {
		return StoredObject{}, fmt.Errorf("create file %q: %w", objectKey, err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(cleaned)
		return StoredObject{}, fmt.Errorf("write file %q: %w", objectKey, err)
	}
	if err := f.Close(); err != nil {
		return StoredObject{}, fmt.Errorf("close file %q: %w", objectKey, err)
	}

	return StoredObject{Ref: objectKey, DeleteKey: objectKey}, nil
}

// Delete 删除磁盘上的对象文件，文件不存在视为成功。
func (b *LocalBackend) Delete(_ context.Context, deleteKey string) error {
	deleteKey = strings.TrimSpace(deleteKey)
	if deleteKey == "" {
		return nil
	}
	cleaned, err := b.resolve(deleteKey)
	if err != nil {
		return err
	}
	if err := os.Remove(cleaned); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove file %q: %w", deleteKey, err)
	}
	return nil
}

// resolve 将对象键映射到根目录内的绝对路径，并拒绝越界路径。
func (b *LocalBackend) resolve(objectKey string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(b.baseDir, filepath.FromSlash(objectKey)))
	base := filepath.Clean(b.baseDir)
	if cleaned != base && !strings.HasPrefix(cleaned, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("object key %q escapes storage dir", objectKey)
	}
	return cleaned, nil
}
