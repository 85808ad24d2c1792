// Package sqlstore persists sessions and templates through gorm, on SQLite or Postgres.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
)

type sessionRow struct {
	ID                string    `gorm:"primaryKey;size:64"`
	Code              string    `gorm:"type:text"`
	Language          string    `gorm:"size:64"`
	CreatedAt         time.Time
	CreatedBy         string   `gorm:"size:128;index"`
	Admins            []string `gorm:"serializer:json"`
	Solution          string   `gorm:"type:text"`
	SolutionPresented bool
	Linting           bool
}

func (sessionRow) TableName() string { return "sessions" }

type templateRow struct {
	ID       string `gorm:"primaryKey;size:64"`
	Title    string `gorm:"size:255;index"`
	Code     string `gorm:"type:text"`
	Solution string `gorm:"type:text"`
	Language string `gorm:"size:64"`
}

func (templateRow) TableName() string { return "templates" }

var dialectors = map[string]func(string) gorm.Dialector{
	"sqlite":   sqlite.Open,
	"postgres": postgres.Open,
}

// Open connects with the named driver and migrates both tables.
func Open(driver, dsn string) (*gorm.DB, error) {
	dialect, ok := dialectors[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := gorm.Open(dialect(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&sessionRow{}, &templateRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// NewStore wraps an opened database in both repositories.
func NewStore(db *gorm.DB) *repositories.Store {
	closeFn := func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return repositories.NewStore(&SessionRepo{DB: db}, &TemplateRepo{DB: db}, closeFn)
}

type SessionRepo struct {
	DB *gorm.DB
}

func (r *SessionRepo) Create(ctx context.Context, s *models.Session) (*models.Session, error) {
	row := sessionToRow(s)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	var row sessionRow
	err := r.DB.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *SessionRepo) Update(ctx context.Context, s *models.Session) error {
	db := r.DB.WithContext(ctx)
	var existing sessionRow
	if err := db.Select("id").First(&existing, "id = ?", s.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repositories.ErrNotFound
		}
		return err
	}
	row := sessionToRow(s)
	return db.Save(&row).Error
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	result := r.DB.WithContext(ctx).Delete(&sessionRow{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) DeleteAll(ctx context.Context) (int64, error) {
	result := r.DB.WithContext(ctx).Where("1 = 1").Delete(&sessionRow{})
	return result.RowsAffected, result.Error
}

type TemplateRepo struct {
	DB *gorm.DB
}

func (r *TemplateRepo) Create(ctx context.Context, t *models.Template) (*models.Template, error) {
	row := templateRow(*t)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	out := models.Template(row)
	return &out, nil
}

func (r *TemplateRepo) Get(ctx context.Context, id string) (*models.Template, error) {
	var row templateRow
	err := r.DB.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := models.Template(row)
	return &out, nil
}

func (r *TemplateRepo) Update(ctx context.Context, t *models.Template) error {
	result := r.DB.WithContext(ctx).Model(&templateRow{}).Where("id = ?", t.ID).Updates(map[string]any{
		"title":    t.Title,
		"code":     t.Code,
		"solution": t.Solution,
		"language": t.Language,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *TemplateRepo) Delete(ctx context.Context, id string) error {
	result := r.DB.WithContext(ctx).Delete(&templateRow{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *TemplateRepo) List(ctx context.Context) ([]models.Template, error) {
	var rows []templateRow
	if err := r.DB.WithContext(ctx).Order("title asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Template, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Template(row))
	}
	return out, nil
}

func sessionToRow(s *models.Session) sessionRow {
	admins := s.Admins
	if admins == nil {
		admins = []string{}
	}
	return sessionRow{
		ID:                s.ID,
		Code:              s.Code,
		Language:          s.Language,
		CreatedAt:         s.CreatedAt,
		CreatedBy:         s.CreatedBy,
		Admins:            admins,
		Solution:          s.Solution,
		SolutionPresented: s.SolutionPresented,
		Linting:           s.Linting,
	}
}

func (row sessionRow) toModel() *models.Session {
	admins := row.Admins
	if admins == nil {
		admins = []string{}
	}
	return &models.Session{
		ID:                row.ID,
		Code:              row.Code,
		Language:          row.Language,
		CreatedAt:         row.CreatedAt,
		CreatedBy:         row.CreatedBy,
		Admins:            admins,
		Solution:          row.Solution,
		SolutionPresented: row.SolutionPresented,
		Linting:           row.Linting,
	}
}
