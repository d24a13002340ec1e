package intake

import (
	"strconv"
	"strings"
	"time"

	"jobintake/internal/database"
)

// 日期字段统一采用 HTML date input 的格式。
const dateLayout = "2006-01-02"

// parseSubmission 将 multipart 表单中的原始键值对校验并转换为强类型记录。
// 文件引用、状态与申请编号不在此处填充。所有字段问题汇总到一个 ValidationError 返回。
func parseSubmission(values map[string][]string) (*database.Application, error) {
	f := &formReader{values: values, problems: map[string]string{}}

	app := &database.Application{
		FirstName:   f.required("firstName"),
		LastName:    f.required("lastName"),
		Email:       strings.ToLower(f.required("email")),
		Phone:       f.required("phone"),
		DateOfBirth: f.date("dateOfBirth"),
		Gender:      f.required("gender"),
		Address:     f.required("address"),
		City:        f.required("city"),
		State:       f.required("state"),
		ZipCode:     f.required("zipCode"),
		Country:     f.required("country"),

		Position:       f.required("position"),
		Department:     f.required("department"),
		EmploymentType: f.required("employmentType"),
		ExpectedSalary: f.float("expectedSalary"),
		StartDate:      f.date("startDate"),

		EducationLevel: f.required("educationLevel"),
		FieldOfStudy:   f.required("fieldOfStudy"),
		Institution:    f.required("institution"),
		GraduationYear: f.integer("graduationYear"),

		YearsOfExperience: f.integer("yearsOfExperience"),
		PreviousEmployer:  f.optional("previousEmployer"),
		PreviousJobTitle:  f.optional("previousJobTitle"),
		Skills:            f.required("skills"),

		ReferralSource:    f.optional("referralSource"),
		CoverLetter:       f.required("coverLetter"),
		WorkAuthorization: f.required("workAuthorization"),
		BackgroundCheck:   f.checkbox("backgroundCheck"),
		TermsAccepted:     f.checkbox("termsAccepted"),
	}

	if len(f.problems) > 0 {
		return nil, &ValidationError{Fields: f.problems}
	}
	return app, nil
}

// formReader 逐字段读取表单值并累积问题，避免在第一个错误处中断。
type formReader struct {
	values   map[string][]string
	problems map[string]string
}

func (f *formReader) raw(key string) string {
	vs := f.values[key]
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[0])
}

func (f *formReader) optional(key string) string {
	return f.raw(key)
}

func (f *formReader) required(key string) string {
	v := f.raw(key)
	if v == "" {
		f.problems[key] = "is required"
	}
	return v
}

func (f *formReader) date(key string) time.Time {
	v := f.required(key)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		f.problems[key] = "must be a date in YYYY-MM-DD format"
		return time.Time{}
	}
	return t
}

func (f *formReader) integer(key string) int {
	v := f.required(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f.problems[key] = "must be an integer"
		return 0
	}
	return n
}

func (f *formReader) float(key string) float64 {
	v := f.required(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		f.problems[key] = "must be a number"
		return 0
	}
	return n
}

// checkbox 按浏览器复选框约定解析：勾选时提交 "on"，未勾选时整个字段缺失。
func (f *formReader) checkbox(key string) bool {
	switch strings.ToLower(f.raw(key)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}
