package vehiclemodel

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Upsert 按 (code, source) 幂等写入。
func (r *Repo) Upsert(ctx context.Context, m *Model) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if m.Code == "" {
		return fmt.Errorf("model code is empty")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}, {Name: "source"}},
		UpdateAll: true,
	}).Create(m).Error
}

// FindByCode 按 code 查找（读 API 不区分来源，任取一条）。
func (r *Repo) FindByCode(ctx context.Context, code string) (*Model, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var m Model
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByCodes 批量按 code 查找，返回 code -> Model。
func (r *Repo) FindByCodes(ctx context.Context, codes []string) (map[string]Model, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	out := make(map[string]Model, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	var models []Model
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&models).Error; err != nil {
		return nil, err
	}
	for _, m := range models {
		out[m.Code] = m
	}
	return out, nil
}

// ListAll 全量车型（refresh 投影用）。
func (r *Repo) ListAll(ctx context.Context) ([]Model, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var models []Model
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}
