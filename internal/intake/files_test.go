package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"jobintake/internal/storage"
)

// fakeBackend 在内存中记录写入与删除，供测试断言。
type fakeBackend struct {
	mu       sync.Mutex
	stored   map[string][]byte
	deleted  []string
	failKeys map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		stored:   map[string][]byte{},
		failKeys: map[string]bool{},
	}
}

func (b *fakeBackend) Store(_ context.Context, objectKey string, reader io.Reader, _ int64, _ string) (storage.StoredObject, error) {
	data, _ := io.ReadAll(reader)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stored[objectKey] = data
	return storage.StoredObject{Ref: objectKey, DeleteKey: objectKey}, nil
}

func (b *fakeBackend) Delete(_ context.Context, deleteKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failKeys[deleteKey] {
		return errors.New("delete rejected")
	}
	b.deleted = append(b.deleted, deleteKey)
	delete(b.stored, deleteKey)
	return nil
}

func (b *fakeBackend) storedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stored)
}

type formFile struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func buildMultipartForm(t *testing.T, files []formFile) *multipart.Form {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		contentType := f.contentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/apply", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("parse multipart form: %v", err)
	}
	return req.MultipartForm
}

func photoAndResume() []formFile {
	return []formFile{
		{field: FieldProfilePhoto, filename: "photo.png", contentType: "image/png", content: []byte("png-bytes")},
		{field: FieldResume, filename: "resume.pdf", contentType: "application/pdf", content: []byte("pdf-bytes")},
	}
}

func TestFileGate_AcceptStoresByField(t *testing.T) {
	backend := newFakeBackend()
	gate := NewFileGate(backend, 10<<20, "", nil)

	files := append(photoAndResume(),
		formFile{field: FieldDriverLicense, filename: "license.jpg", contentType: "image/jpeg", content: []byte("jpg")},
		formFile{field: FieldAdditionalDocs, filename: "cert.pdf", contentType: "application/pdf", content: []byte("doc")},
	)
	set, err := gate.Accept(context.Background(), buildMultipartForm(t, files))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	if set.Photo == nil || !strings.HasPrefix(set.Photo.Ref, "photos/") {
		t.Errorf("photo ref = %+v, want photos/ prefix", set.Photo)
	}
	if set.Resume == nil || !strings.HasPrefix(set.Resume.Ref, "resumes/") {
		t.Errorf("resume ref = %+v, want resumes/ prefix", set.Resume)
	}
	if set.License == nil || !strings.HasPrefix(set.License.Ref, "licenses/") {
		t.Errorf("license ref = %+v, want licenses/ prefix", set.License)
	}
	if len(set.AdditionalDocs) != 1 || !strings.HasPrefix(set.AdditionalDocs[0].Ref, "documents/") {
		t.Errorf("additional docs = %+v", set.AdditionalDocs)
	}
	if backend.storedCount() != 4 {
		t.Errorf("stored count = %d, want 4", backend.storedCount())
	}
}

func TestFileGate_RejectsBadResumeTypeAndCleansUp(t *testing.T) {
	backend := newFakeBackend()
	gate := NewFileGate(backend, 10<<20, "", nil)

	files := []formFile{
		{field: FieldProfilePhoto, filename: "photo.png", contentType: "image/png", content: []byte("png")},
		{field: FieldResume, filename: "resume.exe", contentType: "application/x-msdownload", content: []byte("bad")},
	}
	_, err := gate.Accept(context.Background(), buildMultipartForm(t, files))

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := ve.Fields[FieldResume]; !ok {
		t.Errorf("error should name the resume field: %v", ve.Fields)
	}
	// 已写入的照片必须被清理，不留孤儿对象
	if backend.storedCount() != 0 {
		t.Errorf("stored count after cleanup = %d, want 0", backend.storedCount())
	}
}

func TestFileGate_RejectsPhotoWithBadType(t *testing.T) {
	backend := newFakeBackend()
	gate := NewFileGate(backend, 10<<20, "", nil)

	files := []formFile{
		{field: FieldProfilePhoto, filename: "photo.pdf", contentType: "application/pdf", content: []byte("pdf")},
		{field: FieldResume, filename: "resume.pdf", contentType: "application/pdf", content: []byte("pdf")},
	}
	_, err := gate.Accept(context.Background(), buildMultipartForm(t, files))

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if backend.storedCount() != 0 {
		t.Errorf("stored count = %d, want 0", backend.storedCount())
	}
}

func TestFileGate_RejectsTooManyAdditionalDocs(t *testing.T) {
	backend := newFakeBackend()
	gate := NewFileGate(backend, 10<<20, "", nil)

	files := photoAndResume()
	for i := 0; i < MaxAdditionalDocs+1; i++ {
		files = append(files, formFile{
			field:    FieldAdditionalDocs,
			filename: fmt.Sprintf("doc-%d.txt", i),
			content:  []byte("x"),
		})
	}
	_, err := gate.Accept(context.Background(), buildMultipartForm(t, files))

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if backend.storedCount() != 0 {
		t.Errorf("nothing should be stored when cardinality fails, got %d", backend.storedCount())
	}
}

func TestFileGate_RejectsOversizeFile(t *testing.T) {
	backend := newFakeBackend()
	gate := NewFileGate(backend, 8, "", nil)

	files := []formFile{
		{field: FieldProfilePhoto, filename: "photo.png", contentType: "image/png", content: []byte("tiny")},
		{field: FieldResume, filename: "resume.pdf", contentType: "application/pdf", content: []byte("this is larger than eight bytes")},
	}
	_, err := gate.Accept(context.Background(), buildMultipartForm(t, files))

	var tle *FileTooLargeError
	if !errors.As(err, &tle) {
		t.Fatalf("expected FileTooLargeError, got %v", err)
	}
	if tle.Field != FieldResume {
		t.Errorf("field = %q, want %q", tle.Field, FieldResume)
	}
	if backend.storedCount() != 0 {
		t.Errorf("stored count after cleanup = %d, want 0", backend.storedCount())
	}
}

func TestFileGate_RejectsUnknownFileField(t *testing.T) {
	backend := newFakeBackend()
	gate := NewFileGate(backend, 10<<20, "", nil)

	files := append(photoAndResume(),
		formFile{field: "portfolio", filename: "x.zip", content: []byte("zip")},
	)
	_, err := gate.Accept(context.Background(), buildMultipartForm(t, files))

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if backend.storedCount() != 0 {
		t.Errorf("stored count = %d, want 0", backend.storedCount())
	}
}

func TestFileGate_MissingFilesYieldEmptySet(t *testing.T) {
	backend := newFakeBackend()
	gate := NewFileGate(backend, 10<<20, "", nil)

	set, err := gate.Accept(context.Background(), buildMultipartForm(t, nil))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if set.Photo != nil || set.Resume != nil {
		t.Errorf("expected empty set, got %+v", set)
	}
}
