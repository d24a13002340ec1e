package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"jobintake/internal/database"
	"jobintake/internal/storage"
)

// Notifier 是通知协作方的抽象。发送失败只记录日志，绝不回滚已提交的记录。
type Notifier interface {
	ApplicationSubmitted(ctx context.Context, app *database.Application, requestID string) error
	StatusChanged(ctx context.Context, app *database.Application, status, requestID string) error
}

// Service 编排申请的完整生命周期：提交、状态流转、删除与查询统计。
type Service struct {
	db       *gorm.DB
	backend  storage.Backend
	notifier Notifier
	logger   *slog.Logger
}

// NewService 构造 Service。协作方句柄由进程入口注入。
func NewService(db *gorm.DB, backend storage.Backend, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, backend: backend, notifier: notifier, logger: logger}
}

// Submit 将一次表单提交变为持久化记录。
// 持久化失败时删除本次已写入的全部文件（补偿清理），随后返回原始错误。
func (s *Service) Submit(ctx context.Context, values map[string][]string, files *FileSet, requestID string) (*database.Application, error) {
	if files == nil || files.Photo == nil || files.Resume == nil {
		s.discard(ctx, files)
		return nil, &ValidationError{Message: "Profile photo and resume are required"}
	}

	app, err := parseSubmission(values)
	if err != nil {
		s.discard(ctx, files)
		return nil, err
	}

	if err := attachFiles(app, files); err != nil {
		s.discard(ctx, files)
		return nil, err
	}

	app.Status = database.StatusPending
	app.SubmittedAt = time.Now()

	// 申请编号由时间戳加当前记录数组成。读取计数与写入之间没有原子性，
	// 并发提交下的唯一性依赖时间戳前缀，属既定取舍。
	var count int64
	if err := s.db.WithContext(ctx).Model(&database.Application{}).Count(&count).Error; err != nil {
		s.discard(ctx, files)
		return nil, fmt.Errorf("count applications: %w", err)
	}
	app.ApplicationNumber = fmt.Sprintf("APP-%d-%04d", time.Now().UnixMilli(), count+1)

	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		s.discard(ctx, files)
		return nil, fmt.Errorf("create application: %w", err)
	}

	if err := s.notifier.ApplicationSubmitted(ctx, app, requestID); err != nil {
		s.logger.Warn("send confirmation notification failed",
			slog.Uint64("application_id", uint64(app.ID)),
			slog.String("error", err.Error()),
		)
	}

	return app, nil
}

// Get 按内部 ID 查询申请。
func (s *Service) Get(ctx context.Context, id uint) (*database.Application, error) {
	var app database.Application
	if err := s.db.WithContext(ctx).First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query application %d: %w", id, err)
	}
	return &app, nil
}

// UpdateStatus 将申请流转到目标状态并更新备注。
// 状态机为全连接：任意状态可以流转到任意状态。notes 为 nil 时保留原备注。
// 目标状态与当前状态相同也会刷新 UpdatedAt 并触发通知。
func (s *Service) UpdateStatus(ctx context.Context, id uint, status string, notes *string, requestID string) (*database.Application, error) {
	if !database.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	if err := s.db.WithContext(ctx).Model(app).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update application %d: %w", id, err)
	}
	if err := s.db.WithContext(ctx).First(app, id).Error; err != nil {
		return nil, fmt.Errorf("reload application %d: %w", id, err)
	}

	if err := s.notifier.StatusChanged(ctx, app, status, requestID); err != nil {
		s.logger.Warn("send status notification failed",
			slog.Uint64("application_id", uint64(app.ID)),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
	}

	return app, nil
}

// Delete 删除申请及其全部存储文件。
// 文件删除是尽力而为的：单个文件失败不阻塞记录删除。
func (s *Service) Delete(ctx context.Context, id uint) error {
	app, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	deleteStored(ctx, s.backend, s.logger, recordDeleteKeys(app))

	if err := s.db.WithContext(ctx).Delete(&database.Application{}, app.ID).Error; err != nil {
		return fmt.Errorf("delete application %d: %w", id, err)
	}
	return nil
}

// ListParams 是列表查询的过滤与分页参数。
type ListParams struct {
	Status   string
	Position string
	Page     int
	Limit    int
}

// ListResult 是列表查询的响应载荷。
type ListResult struct {
	Applications []database.Application `json:"applications"`
	TotalPages   int64                  `json:"totalPages"`
	CurrentPage  int                    `json:"currentPage"`
	Total        int64                  `json:"total"`
}

// List 按提交时间倒序返回申请列表，支持状态过滤与职位子串匹配。
// 超出总页数的页码返回空列表而非错误。
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 10
	}

	query := s.db.WithContext(ctx).Model(&database.Application{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Position != "" {
		query = query.Where("LOWER(position) LIKE ?", "%"+strings.ToLower(params.Position)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}

	apps := make([]database.Application, 0, limit)
	if err := query.
		Order("submitted_at DESC, id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	return &ListResult{
		Applications: apps,
		TotalPages:   (total + int64(limit) - 1) / int64(limit),
		CurrentPage:  page,
		Total:        total,
	}, nil
}

// PositionCount 是按职位聚合的计数项。_id 字段名与既有管理前端保持一致。
type PositionCount struct {
	Position string `gorm:"column:position" json:"_id"`
	Count    int64  `gorm:"column:count" json:"count"`
}

// Stats 是统计接口的响应载荷，五个状态计数始终补零给出。
type Stats struct {
	Total        int64           `json:"total"`
	Pending      int64           `json:"pending"`
	Reviewing    int64           `json:"reviewing"`
	Interview    int64           `json:"interview"`
	Accepted     int64           `json:"accepted"`
	Rejected     int64           `json:"rejected"`
	TopPositions []PositionCount `json:"topPositions"`
}

// Statistics 返回总量、按状态的计数以及收到申请最多的前五个职位。
func (s *Service) Statistics(ctx context.Context) (*Stats, error) {
	stats := &Stats{TopPositions: []PositionCount{}}

	if err := s.db.WithContext(ctx).Model(&database.Application{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}

	var statusRows []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&database.Application{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return nil, fmt.Errorf("aggregate statuses: %w", err)
	}
	for _, row := range statusRows {
		switch row.Status {
		case database.StatusPending:
			stats.Pending = row.Count
		case database.StatusReviewing:
			stats.Reviewing = row.Count
		case database.StatusInterview:
			stats.Interview = row.Count
		case database.StatusAccepted:
			stats.Accepted = row.Count
		case database.StatusRejected:
			stats.Rejected = row.Count
		}
	}

	if err := s.db.WithContext(ctx).Model(&database.Application{}).
		Select("position, COUNT(*) AS count").
		Group("position").
		Order("count DESC").
		Limit(5).
		Scan(&stats.TopPositions).Error; err != nil {
		return nil, fmt.Errorf("aggregate positions: %w", err)
	}

	return stats, nil
}

func (s *Service) discard(ctx context.Context, files *FileSet) {
	deleteStored(ctx, s.backend, s.logger, files.DeleteKeys())
}

// attachFiles 将已存储文件的引用与删除键写入记录。
func attachFiles(app *database.Application, files *FileSet) error {
	app.ProfilePhoto = files.Photo.Ref
	app.ProfilePhotoKey = files.Photo.DeleteKey
	app.Resume = files.Resume.Ref
	app.ResumeKey = files.Resume.DeleteKey
	if files.License != nil {
		app.DriverLicense = files.License.Ref
		app.DriverLicenseKey = files.License.DeleteKey
	}

	refs := make([]string, 0, len(files.AdditionalDocs))
	keys := make([]string, 0, len(files.AdditionalDocs))
	for _, doc := range files.AdditionalDocs {
		refs = append(refs, doc.Ref)
		keys = append(keys, doc.DeleteKey)
	}

	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("marshal additional doc refs: %w", err)
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("marshal additional doc keys: %w", err)
	}
	app.AdditionalDocs = datatypes.JSON(refsJSON)
	app.AdditionalDocKeys = datatypes.JSON(keysJSON)
	return nil
}

// recordDeleteKeys 收集一条记录引用的全部存储文件删除键。
func recordDeleteKeys(app *database.Application) []string {
	keys := make([]string, 0, 4)
	for _, k := range []string{app.ProfilePhotoKey, app.ResumeKey, app.DriverLicenseKey} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(app.AdditionalDocKeys) > 0 {
		var docKeys []string
		if err := json.Unmarshal(app.AdditionalDocKeys, &docKeys); err == nil {
			keys = append(keys, docKeys...)
		}
	}
	return keys
}
