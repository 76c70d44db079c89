package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/huban/huban/pkg/errors"
	"github.com/huban/huban/pkg/model"
)

// ScheduleRepository 排班计划仓储
type ScheduleRepository struct {
	db DB
}

// NewScheduleRepository 创建排班计划仓储
func NewScheduleRepository(db DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, name, start_date, end_date, status, version,
	created_by, published_at, created_at, updated_at`

// Create 创建排班计划
func (r *ScheduleRepository) Create(ctx context.Context, schedule *model.Schedule) error {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	now := time.Now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	query := `
		INSERT INTO schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID, schedule.Name, schedule.StartDate, schedule.EndDate,
		schedule.Status, schedule.Version, schedule.CreatedBy, schedule.PublishedAt,
		schedule.CreatedAt, schedule.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "创建排班计划失败")
	}

	return nil
}

// GetByID 根据ID获取排班计划
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	var schedule model.Schedule
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&schedule.ID, &schedule.Name, &schedule.StartDate, &schedule.EndDate,
		&schedule.Status, &schedule.Version, &schedule.CreatedBy, &schedule.PublishedAt,
		&schedule.CreatedAt, &schedule.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("排班计划", id.String())
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询排班计划失败")
	}
	return &schedule, nil
}

// Publish 发布排班计划
// 只有草稿状态的计划可以发布
func (r *ScheduleRepository) Publish(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE schedules
		SET status = 'published', published_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'draft'
	`
	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "发布排班计划失败")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.New(apperrors.CodeScheduleConflict, "排班计划不存在或不是草稿状态")
	}
	return nil
}
