package intake

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// 领域级哨兵错误，HTTP 层通过 errors.Is 映射状态码。
var (
	ErrNotFound      = errors.New("application not found")
	ErrInvalidStatus = errors.New("invalid status")
)

// ValidationError 汇总一次提交中的全部字段问题。
// Message 为空时由字段列表拼出错误文案。
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newFieldError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// FileTooLargeError 表示某个文件超过单文件大小上限。
// 与类型校验失败区分开，便于调用方单独处理。
type FileTooLargeError struct {
	Field string
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file for field %q exceeds limit of %d bytes", e.Field, e.Limit)
}
