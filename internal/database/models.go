package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 申请状态枚举。持久层中只允许出现这五个值（见 ValidStatus）。
const (
	StatusPending   = "pending"
	StatusReviewing = "reviewing"
	StatusInterview = "interview"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
)

// Statuses 按固定顺序列出全部合法状态，统计接口据此补零。
var Statuses = []string{StatusPending, StatusReviewing, StatusInterview, StatusAccepted, StatusRejected}

// ValidStatus 判断给定状态是否属于枚举。
func ValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Application 表示一份完整的职位申请记录。
// ApplicationNumber 在首次持久化时生成，之后不可变。
type Application struct {
	gorm.Model

	// 申请人信息
	FirstName   string    `gorm:"size:128" json:"firstName"`
	LastName    string    `gorm:"size:128" json:"lastName"`
	Email       string    `gorm:"size:255;index" json:"email"`
	Phone       string    `gorm:"size:64" json:"phone"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	Gender      string    `gorm:"size:32" json:"gender"`
	Address     string    `gorm:"size:512" json:"address"`
	City        string    `gorm:"size:128" json:"city"`
	State       string    `gorm:"size:128" json:"state"`
	ZipCode     string    `gorm:"size:32" json:"zipCode"`
	Country     string    `gorm:"size:128" json:"country"`

	// 职位信息
	Position       string    `gorm:"size:255;index" json:"position"`
	Department     string    `gorm:"size:255" json:"department"`
	EmploymentType string    `gorm:"size:64" json:"employmentType"`
	ExpectedSalary float64   `json:"expectedSalary"`
	StartDate      time.Time `json:"startDate"`

	// 教育背景
	EducationLevel string `gorm:"size:128" json:"educationLevel"`
	FieldOfStudy   string `gorm:"size:255" json:"fieldOfStudy"`
	Institution    string `gorm:"size:255" json:"institution"`
	GraduationYear int    `json:"graduationYear"`

	// 工作经历（PreviousEmployer/PreviousJobTitle 可为空）
	YearsOfExperience int    `json:"yearsOfExperience"`
	PreviousEmployer  string `gorm:"size:255" json:"previousEmployer,omitempty"`
	PreviousJobTitle  string `gorm:"size:255" json:"previousJobTitle,omitempty"`
	Skills            string `gorm:"type:text" json:"skills"`

	// 文档引用与对应的删除键（删除键用于后续清理存储对象）
	ProfilePhoto      string         `gorm:"size:512" json:"profilePhoto"`
	ProfilePhotoKey   string         `gorm:"size:512" json:"-"`
	Resume            string         `gorm:"size:512" json:"resume"`
	ResumeKey         string         `gorm:"size:512" json:"-"`
	DriverLicense     string         `gorm:"size:512" json:"driverLicense,omitempty"`
	DriverLicenseKey  string         `gorm:"size:512" json:"-"`
	AdditionalDocs    datatypes.JSON `gorm:"type:jsonb" json:"additionalDocs"`
	AdditionalDocKeys datatypes.JSON `gorm:"type:jsonb" json:"-"`

	// 补充信息
	ReferralSource    string `gorm:"size:255" json:"referralSource,omitempty"`
	CoverLetter       string `gorm:"type:text" json:"coverLetter"`
	WorkAuthorization string `gorm:"size:128" json:"workAuthorization"`
	BackgroundCheck   bool   `json:"backgroundCheck"`
	TermsAccepted     bool   `json:"termsAccepted"`

	// 元数据
	ApplicationNumber string    `gorm:"uniqueIndex;size:64" json:"applicationNumber"`
	Status            string    `gorm:"size:32;default:pending;index" json:"status"`
	SubmittedAt       time.Time `gorm:"index" json:"submittedAt"`
	Notes             string    `gorm:"type:text" json:"notes,omitempty"`
}
