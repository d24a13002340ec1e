package intake

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"jobintake/internal/database"
	"jobintake/internal/storage"
)

type notification struct {
	kind   string
	appID  uint
	status string
}

// fakeNotifier 记录通知调用，可配置为总是失败。
type fakeNotifier struct {
	mu    sync.Mutex
	calls []notification
	fail  bool
}

func (n *fakeNotifier) ApplicationSubmitted(_ context.Context, app *database.Application, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{kind: "submitted", appID: app.ID, status: app.Status})
	if n.fail {
		return errors.New("notifier down")
	}
	return nil
}

func (n *fakeNotifier) StatusChanged(_ context.Context, app *database.Application, status, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{kind: "status", appID: app.ID, status: status})
	if n.fail {
		return errors.New("notifier down")
	}
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.Application{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *fakeBackend, *fakeNotifier, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	backend := newFakeBackend()
	notifier := &fakeNotifier{}
	return NewService(db, backend, notifier, nil), backend, notifier, db
}

func storedSet(t *testing.T, backend *fakeBackend, extras int) *FileSet {
	t.Helper()
	ctx := context.Background()
	store := func(key string) *storage.StoredObject {
		obj, err := backend.Store(ctx, key, strings.NewReader("content"), 7, "application/octet-stream")
		if err != nil {
			t.Fatalf("seed backend: %v", err)
		}
		return &obj
	}
	set := &FileSet{
		Photo:  store("photos/p.png"),
		Resume: store("resumes/r.pdf"),
	}
	for i := 0; i < extras; i++ {
		obj := store("documents/d" + string(rune('a'+i)))
		set.AdditionalDocs = append(set.AdditionalDocs, *obj)
	}
	return set
}

var applicationNumberPattern = regexp.MustCompile(`^APP-\d+-\d{4}$`)

func TestSubmit_CreatesPendingApplication(t *testing.T) {
	svc, backend, notifier, _ := newTestService(t)

	set := storedSet(t, backend, 2)
	app, err := svc.Submit(context.Background(), validFormValues(), set, "req-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if app.Status != database.StatusPending {
		t.Errorf("status = %q, want pending", app.Status)
	}
	if !applicationNumberPattern.MatchString(app.ApplicationNumber) {
		t.Errorf("application number %q does not match format", app.ApplicationNumber)
	}
	if app.ProfilePhoto != "photos/p.png" || app.Resume != "resumes/r.pdf" {
		t.Errorf("file refs not attached: photo=%q resume=%q", app.ProfilePhoto, app.Resume)
	}
	if app.SubmittedAt.IsZero() {
		t.Errorf("submittedAt not set")
	}
	if notifier.count() != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.count())
	}
}

func TestSubmit_MissingResumeCleansUpFiles(t *testing.T) {
	svc, backend, _, db := newTestService(t)

	ctx := context.Background()
	obj, err := backend.Store(ctx, "photos/only.png", strings.NewReader("png"), 3, "image/png")
	if err != nil {
		t.Fatalf("seed backend: %v", err)
	}
	set := &FileSet{Photo: &obj}

	_, err = svc.Submit(ctx, validFormValues(), set, "req-1")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if backend.storedCount() != 0 {
		t.Errorf("stored count after cleanup = %d, want 0", backend.storedCount())
	}

	var count int64
	db.Model(&database.Application{}).Count(&count)
	if count != 0 {
		t.Errorf("no record should exist, got %d", count)
	}
}

func TestSubmit_InvalidFieldsCleanUpFiles(t *testing.T) {
	svc, backend, notifier, db := newTestService(t)

	set := storedSet(t, backend, 0)
	values := validFormValues()
	delete(values, "firstName")

	_, err := svc.Submit(context.Background(), values, set, "req-1")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if backend.storedCount() != 0 {
		t.Errorf("stored count after cleanup = %d, want 0", backend.storedCount())
	}
	if notifier.count() != 0 {
		t.Errorf("no notification expected, got %d", notifier.count())
	}

	var count int64
	db.Model(&database.Application{}).Count(&count)
	if count != 0 {
		t.Errorf("no record should exist, got %d", count)
	}
}

func TestSubmit_NotifierFailureDoesNotRollBack(t *testing.T) {
	svc, backend, notifier, db := newTestService(t)
	notifier.fail = true

	set := storedSet(t, backend, 0)
	app, err := svc.Submit(context.Background(), validFormValues(), set, "req-1")
	if err != nil {
		t.Fatalf("submit should swallow notifier failure, got %v", err)
	}

	var found database.Application
	if err := db.First(&found, app.ID).Error; err != nil {
		t.Fatalf("record should be persisted: %v", err)
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc, backend, _, db := newTestService(t)
	set := storedSet(t, backend, 0)
	app, err := svc.Submit(context.Background(), validFormValues(), set, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = svc.UpdateStatus(context.Background(), app.ID, "archived", nil, "")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	var found database.Application
	db.First(&found, app.ID)
	if found.Status != database.StatusPending {
		t.Errorf("status changed to %q, want pending", found.Status)
	}
}

func TestUpdateStatus_UnknownIDIsNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.UpdateStatus(context.Background(), 999, database.StatusAccepted, nil, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus_UpdatesAndNotifies(t *testing.T) {
	svc, backend, notifier, _ := newTestService(t)
	set := storedSet(t, backend, 0)
	app, err := svc.Submit(context.Background(), validFormValues(), set, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	notes := "strong candidate"
	updated, err := svc.UpdateStatus(context.Background(), app.ID, database.StatusInterview, &notes, "req-2")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != database.StatusInterview {
		t.Errorf("status = %q", updated.Status)
	}
	if updated.Notes != notes {
		t.Errorf("notes = %q", updated.Notes)
	}
	if notifier.count() != 2 {
		t.Errorf("notifier calls = %d, want 2 (submit + status)", notifier.count())
	}

	// nil notes 保留原备注
	updated, err = svc.UpdateStatus(context.Background(), app.ID, database.StatusAccepted, nil, "req-3")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Notes != notes {
		t.Errorf("notes = %q, want preserved %q", updated.Notes, notes)
	}
}

func TestUpdateStatus_SameStatusStillRefreshesAndNotifies(t *testing.T) {
	svc, backend, notifier, _ := newTestService(t)
	set := storedSet(t, backend, 0)
	app, err := svc.Submit(context.Background(), validFormValues(), set, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	first, err := svc.UpdateStatus(context.Background(), app.ID, database.StatusReviewing, nil, "")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	before := first.UpdatedAt
	time.Sleep(10 * time.Millisecond)

	second, err := svc.UpdateStatus(context.Background(), app.ID, database.StatusReviewing, nil, "")
	if err != nil {
		t.Fatalf("repeat update: %v", err)
	}
	if !second.UpdatedAt.After(before) {
		t.Errorf("updatedAt not refreshed: before=%v after=%v", before, second.UpdatedAt)
	}
	if notifier.count() != 3 {
		t.Errorf("notifier calls = %d, want 3", notifier.count())
	}
}

func TestDelete_RemovesRecordAndFiles(t *testing.T) {
	svc, backend, _, _ := newTestService(t)
	set := storedSet(t, backend, 2)
	app, err := svc.Submit(context.Background(), validFormValues(), set, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := svc.Delete(context.Background(), app.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.Get(context.Background(), app.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if backend.storedCount() != 0 {
		t.Errorf("stored count = %d, want 0", backend.storedCount())
	}
}

func TestDelete_SurvivesFileDeletionFailure(t *testing.T) {
	svc, backend, _, _ := newTestService(t)
	set := storedSet(t, backend, 1)
	app, err := svc.Submit(context.Background(), validFormValues(), set, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	backend.failKeys["resumes/r.pdf"] = true

	if err := svc.Delete(context.Background(), app.ID); err != nil {
		t.Fatalf("delete should tolerate file failures: %v", err)
	}
	if _, err := svc.Get(context.Background(), app.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("record should be gone, got %v", err)
	}
}

func TestDelete_UnknownIDIsNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if err := svc.Delete(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func submitN(t *testing.T, svc *Service, backend *fakeBackend, n int, position string) {
	t.Helper()
	for i := 0; i < n; i++ {
		set := storedSet(t, backend, 0)
		values := validFormValues()
		values["position"] = []string{position}
		if _, err := svc.Submit(context.Background(), values, set, ""); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
}

func TestList_PaginatesAndFilters(t *testing.T) {
	svc, backend, _, _ := newTestService(t)
	submitN(t, svc, backend, 7, "Engineer")
	submitN(t, svc, backend, 3, "Designer")

	result, err := svc.List(context.Background(), ListParams{Page: 1, Limit: 4})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 10 || result.TotalPages != 3 || result.CurrentPage != 1 {
		t.Errorf("total=%d totalPages=%d currentPage=%d", result.Total, result.TotalPages, result.CurrentPage)
	}
	if len(result.Applications) != 4 {
		t.Errorf("page size = %d, want 4", len(result.Applications))
	}

	// 超出总页数返回空列表而非错误
	result, err = svc.List(context.Background(), ListParams{Page: 9, Limit: 4})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Applications) != 0 {
		t.Errorf("out-of-range page should be empty, got %d", len(result.Applications))
	}

	// 职位子串过滤不区分大小写
	result, err = svc.List(context.Background(), ListParams{Position: "design"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 3 {
		t.Errorf("position filter total = %d, want 3", result.Total)
	}

	result, err = svc.List(context.Background(), ListParams{Status: database.StatusPending, Limit: 100})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 10 {
		t.Errorf("status filter total = %d, want 10", result.Total)
	}
}

func TestStatistics_ZeroFillsAndRanksPositions(t *testing.T) {
	svc, backend, _, _ := newTestService(t)
	submitN(t, svc, backend, 4, "Engineer")
	submitN(t, svc, backend, 2, "Designer")
	submitN(t, svc, backend, 1, "Manager")

	// 流转一条到 accepted
	result, err := svc.List(context.Background(), ListParams{Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), result.Applications[0].ID, database.StatusAccepted, nil, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}

	stats, err := svc.Statistics(context.Background())
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.Total != 7 {
		t.Errorf("total = %d, want 7", stats.Total)
	}
	if stats.Pending != 6 || stats.Accepted != 1 {
		t.Errorf("pending=%d accepted=%d", stats.Pending, stats.Accepted)
	}
	if stats.Reviewing != 0 || stats.Interview != 0 || stats.Rejected != 0 {
		t.Errorf("absent statuses must be zero-filled: %+v", stats)
	}
	if len(stats.TopPositions) != 3 {
		t.Fatalf("top positions = %d, want 3", len(stats.TopPositions))
	}
	if stats.TopPositions[0].Position != "Engineer" || stats.TopPositions[0].Count != 4 {
		t.Errorf("top position = %+v, want Engineer/4", stats.TopPositions[0])
	}
}
