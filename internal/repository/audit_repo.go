package repository

import (
	"context"

	"tokensmith/internal/entity"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditLog) error
	WithTx(tx *gorm.DB) AuditRepository
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) WithTx(tx *gorm.DB) AuditRepository {
	return &auditRepository{db: tx}
}

func (r *auditRepository) Append(ctx context.Context, entry *entity.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
