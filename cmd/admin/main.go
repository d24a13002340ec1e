package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"jobintake/internal/config"
	"jobintake/internal/database"
)

// 运维用 CLI：在不经过 HTTP 层的情况下查看或流转一条申请记录。
// 通过该工具做的状态流转不会触发邮件通知。
func main() {
	var (
		id     = flag.Uint("id", 0, "申请记录 ID（必填）")
		status = flag.String("status", "", "目标状态（可选；为空时仅打印记录）")
		notes  = flag.String("notes", "", "备注（可选，仅在流转状态时写入）")
		dbHost = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		ssl    = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	if *id == 0 {
		log.Fatal("missing required flag: --id")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *ssl)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	var app database.Application
	switch err := db.First(&app, *id).Error; {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Fatalf("application %d not found", *id)
	default:
		log.Fatalf("query application: %v", err)
	}

	if *status == "" {
		printApplication(app)
		return
	}

	target := strings.ToLower(strings.TrimSpace(*status))
	if !database.ValidStatus(target) {
		log.Fatalf("invalid status %q (want one of %s)", *status, strings.Join(database.Statuses, ", "))
	}

	updates := map[string]any{
		"status":     target,
		"updated_at": time.Now(),
	}
	if *notes != "" {
		updates["notes"] = *notes
	}
	if err := db.Model(&app).Updates(updates).Error; err != nil {
		log.Fatalf("update application: %v", err)
	}

	fmt.Printf("application %d (%s) moved to %q\n", app.ID, app.ApplicationNumber, target)
	fmt.Println("note: status changes made through this tool do not send emails")
}

func printApplication(app database.Application) {
	fmt.Printf("ID:            %d\n", app.ID)
	fmt.Printf("Number:        %s\n", app.ApplicationNumber)
	fmt.Printf("Applicant:     %s %s <%s>\n", app.FirstName, app.LastName, app.Email)
	fmt.Printf("Position:      %s / %s (%s)\n", app.Position, app.Department, app.EmploymentType)
	fmt.Printf("Status:        %s\n", app.Status)
	fmt.Printf("Submitted:     %s\n", app.SubmittedAt.Format(time.RFC3339))
	fmt.Printf("Updated:       %s\n", app.UpdatedAt.Format(time.RFC3339))
	if app.Notes != "" {
		fmt.Printf("Notes:         %s\n", app.Notes)
	}
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}
