package intake

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/google/uuid"

	"jobintake/internal/storage"
)

// 提交表单中允许出现的文件字段。
const (
	FieldProfilePhoto   = "profilePhoto"
	FieldResume         = "resume"
	FieldDriverLicense  = "driverLicense"
	FieldAdditionalDocs = "additionalDocs"
)

// 单次提交最多允许的附加文档数量。
const MaxAdditionalDocs = 5

var imageExtensions = map[string]bool{"jpeg": true, "jpg": true, "png": true, "gif": true}
var resumeExtensions = map[string]bool{"pdf": true, "doc": true, "docx": true}

// 各字段在存储后端中的对象键前缀。
var fieldPrefixes = map[string]string{
	FieldProfilePhoto:   "photos",
	FieldResume:         "resumes",
	FieldDriverLicense:  "licenses",
	FieldAdditionalDocs: "documents",
}

// FileSet 汇总一次提交中已写入存储后端的全部文件。
// 照片与简历缺失时对应指针为 nil，由生命周期服务在持久化前拒绝。
type FileSet struct {
	Photo          *storage.StoredObject
	Resume         *storage.StoredObject
	License        *storage.StoredObject
	AdditionalDocs []storage.StoredObject
}

// DeleteKeys 返回集合中全部文件的删除键。
func (s *FileSet) DeleteKeys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, 3+len(s.AdditionalDocs))
	for _, obj := range []*storage.StoredObject{s.Photo, s.Resume, s.License} {
		if obj != nil {
			keys = append(keys, obj.DeleteKey)
		}
	}
	for _, obj := range s.AdditionalDocs {
		keys = append(keys, obj.DeleteKey)
	}
	return keys
}

// FileGate 对上传文件做类型、大小与数量校验，通过后转交存储后端。
// 任一文件被拒绝时，本次请求已写入的文件会在错误返回前被清理。
type FileGate struct {
	backend      storage.Backend
	maxFileBytes int64
	clamdAddr    string
	logger       *slog.Logger
}

// NewFileGate 构造 FileGate。clamdAddr 为空时跳过病毒扫描。
func NewFileGate(backend storage.Backend, maxFileBytes int64, clamdAddr string, logger *slog.Logger) *FileGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileGate{
		backend:      backend,
		maxFileBytes: maxFileBytes,
		clamdAddr:    clamdAddr,
		logger:       logger,
	}
}

// Accept 校验表单中的全部文件字段并写入存储后端。
// 返回的 FileSet 中缺失的必填文件由调用方处理；校验失败时不留下任何孤儿对象。
func (g *FileGate) Accept(ctx context.Context, form *multipart.Form) (*FileSet, error) {
	set := &FileSet{}
	if form == nil || len(form.File) == 0 {
		return set, nil
	}

	for field := range form.File {
		if _, ok := fieldPrefixes[field]; !ok {
			return nil, newFieldError(field, "is not an accepted file field")
		}
	}

	photos := form.File[FieldProfilePhoto]
	resumes := form.File[FieldResume]
	licenses := form.File[FieldDriverLicense]
	extras := form.File[FieldAdditionalDocs]

	switch {
	case len(photos) > 1:
		return nil, newFieldError(FieldProfilePhoto, "only one profile photo is allowed")
	case len(resumes) > 1:
		return nil, newFieldError(FieldResume, "only one resume is allowed")
	case len(licenses) > 1:
		return nil, newFieldError(FieldDriverLicense, "only one driver license is allowed")
	case len(extras) > MaxAdditionalDocs:
		return nil, newFieldError(FieldAdditionalDocs, fmt.Sprintf("at most %d additional documents are allowed", MaxAdditionalDocs))
	}

	store := func(field string, header *multipart.FileHeader) (*storage.StoredObject, error) {
		obj, err := g.acceptOne(ctx, field, header)
		if err != nil {
			g.Discard(ctx, set)
			return nil, err
		}
		return obj, nil
	}

	var err error
	if len(photos) == 1 {
		if set.Photo, err = store(FieldProfilePhoto, photos[0]); err != nil {
			return nil, err
		}
	}
	if len(resumes) == 1 {
		if set.Resume, err = store(FieldResume, resumes[0]); err != nil {
			return nil, err
		}
	}
	if len(licenses) == 1 {
		if set.License, err = store(FieldDriverLicense, licenses[0]); err != nil {
			return nil, err
		}
	}
	for _, header := range extras {
		obj, err := store(FieldAdditionalDocs, header)
		if err != nil {
			return nil, err
		}
		set.AdditionalDocs = append(set.AdditionalDocs, *obj)
	}

	return set, nil
}

// Discard 并发删除集合中的全部文件，单个失败只记录日志。
func (g *FileGate) Discard(ctx context.Context, set *FileSet) {
	deleteStored(ctx, g.backend, g.logger, set.DeleteKeys())
}

func (g *FileGate) acceptOne(ctx context.Context, field string, header *multipart.FileHeader) (*storage.StoredObject, error) {
	if header.Size > g.maxFileBytes {
		return nil, &FileTooLargeError{Field: field, Limit: g.maxFileBytes}
	}
	if err := validateFileType(field, header); err != nil {
		return nil, err
	}
	if g.clamdAddr != "" {
		if err := g.scan(field, header); err != nil {
			return nil, err
		}
	}

	reader, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file for %q: %w", field, err)
	}
	defer reader.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectKey := fmt.Sprintf("%s/%s%s", fieldPrefixes[field], uuid.NewString(), strings.ToLower(filepath.Ext(header.Filename)))
	obj, err := g.backend.Store(ctx, objectKey, reader, header.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("store file for %q: %w", field, err)
	}
	return &obj, nil
}

// scan 通过 ClamAV 扫描上传内容，检出病毒时按校验失败处理。
func (g *FileGate) scan(field string, header *multipart.FileHeader) error {
	reader, err := header.Open()
	if err != nil {
		return fmt.Errorf("open uploaded file for %q: %w", field, err)
	}
	defer reader.Close()

	abort := make(chan bool)
	defer close(abort)

	results, err := clamd.NewClamd(g.clamdAddr).ScanStream(reader, abort)
	if err != nil {
		return fmt.Errorf("scan file for %q: %w", field, err)
	}
	for result := range results {
		if result.Status != clamd.RES_OK {
			return newFieldError(field, "malicious file detected")
		}
	}
	return nil
}

func validateFileType(field string, header *multipart.FileHeader) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	contentType := header.Header.Get("Content-Type")

	switch field {
	case FieldProfilePhoto, FieldDriverLicense:
		if imageExtensions[ext] || strings.HasPrefix(contentType, "image/") {
			return nil
		}
		return newFieldError(field, "only image files (jpeg, jpg, png, gif) are allowed")
	case FieldResume:
		if resumeExtensions[ext] || contentType == "application/pdf" || strings.Contains(contentType, "document") {
			return nil
		}
		return newFieldError(field, "only PDF, DOC and DOCX files are allowed")
	default:
		// 附加文档不限制类型
		return nil
	}
}

// deleteStored 并发发起独立的删除请求；失败互不影响，仅记录日志。
func deleteStored(ctx context.Context, backend storage.Backend, logger *slog.Logger, keys []string) {
	if len(keys) == 0 {
		return
	}

	// 请求上下文可能已随错误响应终止，清理用独立的超时上下文。
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, key := range keys {
		key := strings.TrimSpace(key)
		if key == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := backend.Delete(cleanupCtx, key); err != nil {
				logger.Error("delete stored file failed",
					slog.String("delete_key", key),
					slog.String("error", err.Error()),
				)
			}
		}()
	}
	wg.Wait()
}
