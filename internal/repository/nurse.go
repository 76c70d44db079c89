package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/huban/huban/pkg/errors"
	"github.com/huban/huban/pkg/model"
)

// NurseRepository 护士仓储
type NurseRepository struct {
	db DB
}

// NewNurseRepository 创建护士仓储
func NewNurseRepository(db DB) *NurseRepository {
	return &NurseRepository{db: db}
}

const nurseColumns = `id, department_id, name, employee_no, status, employment_type, hire_date,
	base_hourly_rate, overtime_hourly_rate,
	max_hours_per_week, max_consecutive_days, min_hours_between_shifts,
	fatigue_score, seniority_points, skills, preferences, weekend_available,
	created_at, updated_at`

// Create 创建护士
func (r *NurseRepository) Create(ctx context.Context, nurse *model.Nurse) error {
	if nurse.ID == uuid.Nil {
		nurse.ID = uuid.New()
	}
	now := time.Now()
	nurse.CreatedAt = now
	nurse.UpdatedAt = now

	skillsJSON, _ := json.Marshal(nurse.Skills)
	prefsJSON, _ := json.Marshal(nurse.Preferences)

	query := `
		INSERT INTO nurses (` + nurseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.db.ExecContext(ctx, query,
		nurse.ID, nurse.DepartmentID, nurse.Name, nurse.EmployeeNo, nurse.Status,
		nurse.EmployType, nurse.HireDate,
		nurse.BaseHourlyRate, nurse.OvertimeHourlyRate,
		nurse.MaxHoursPerWeek, nurse.MaxConsecutiveDays, nurse.MinHoursBetweenShifts,
		nurse.FatigueScore, nurse.SeniorityPoints, skillsJSON, prefsJSON, nurse.WeekendAvailable,
		nurse.CreatedAt, nurse.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "创建护士失败")
	}

	return nil
}

// GetByID 根据ID获取护士
func (r *NurseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Nurse, error) {
	query := `SELECT ` + nurseColumns + ` FROM nurses WHERE id = $1`
	nurse, err := r.scanNurse(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("护士", id.String())
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询护士失败")
	}
	return nurse, nil
}

// ListActive 列出科室内全部在职护士
func (r *NurseRepository) ListActive(ctx context.Context, departmentIDs []uuid.UUID) ([]*model.Nurse, error) {
	query := `
		SELECT ` + nurseColumns + `
		FROM nurses
		WHERE status = 'active' AND department_id = ANY($1)
		ORDER BY id
	`

	ids := make([]string, len(departmentIDs))
	for i, id := range departmentIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询在职护士失败")
	}
	defer rows.Close()

	var nurses []*model.Nurse
	for rows.Next() {
		nurse, err := r.scanNurse(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描护士记录失败")
		}
		nurses = append(nurses, nurse)
	}
	return nurses, rows.Err()
}

// UpdateFatigueScore 更新护士疲劳分数
func (r *NurseRepository) UpdateFatigueScore(ctx context.Context, id uuid.UUID, score int) error {
	query := `UPDATE nurses SET fatigue_score = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, score, time.Now())
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "更新疲劳分数失败")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.NotFound("护士", id.String())
	}
	return nil
}

// scanNurse 扫描单行护士记录
func (r *NurseRepository) scanNurse(row Scanner) (*model.Nurse, error) {
	var nurse model.Nurse
	var skillsJSON, prefsJSON []byte

	err := row.Scan(
		&nurse.ID, &nurse.DepartmentID, &nurse.Name, &nurse.EmployeeNo, &nurse.Status,
		&nurse.EmployType, &nurse.HireDate,
		&nurse.BaseHourlyRate, &nurse.OvertimeHourlyRate,
		&nurse.MaxHoursPerWeek, &nurse.MaxConsecutiveDays, &nurse.MinHoursBetweenShifts,
		&nurse.FatigueScore, &nurse.SeniorityPoints, &skillsJSON, &prefsJSON, &nurse.WeekendAvailable,
		&nurse.CreatedAt, &nurse.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(skillsJSON) > 0 {
		if err := json.Unmarshal(skillsJSON, &nurse.Skills); err != nil {
			return nil, fmt.Errorf("解析技能列表失败: %w", err)
		}
	}
	if len(prefsJSON) > 0 && string(prefsJSON) != "null" {
		nurse.Preferences = &model.ShiftPreferences{}
		if err := json.Unmarshal(prefsJSON, nurse.Preferences); err != nil {
			return nil, fmt.Errorf("解析班次偏好失败: %w", err)
		}
	}

	return &nurse, nil
}
