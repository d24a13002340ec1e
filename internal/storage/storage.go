package storage

import (
	"context"
	"io"
)

// StoredObject 描述一次成功写入后得到的对象引用。
// Ref 用于展示与读取，DeleteKey 用于后续删除；二者在部分后端中相同。
type StoredObject struct {
	Ref       string
	DeleteKey string
}

// Backend 是文档存储后端的统一抽象，核心流程不感知具体实现。
// Delete 对不存在的对象应当幂等（视为成功）。
type Backend interface {
	Store(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (StoredObject, error)
	Delete(ctx context.Context, deleteKey string) error
}
