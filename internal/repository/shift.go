package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/huban/huban/pkg/errors"
	"github.com/huban/huban/pkg/model"
)

// ShiftRepository 班次仓储
type ShiftRepository struct {
	db DB
}

// NewShiftRepository 创建班次仓储
func NewShiftRepository(db DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

const shiftColumns = `id, department_id, start_time, end_time, shift_type,
	required_nurses, required_skills, patient_ratio_target,
	status, priority_score, auto_generated, created_at, updated_at`

// Create 创建班次
func (r *ShiftRepository) Create(ctx context.Context, shift *model.Shift) error {
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	now := time.Now()
	shift.CreatedAt = now
	shift.UpdatedAt = now

	skillsJSON, _ := json.Marshal(shift.RequiredSkills)

	query := `
		INSERT INTO shifts (` + shiftColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		shift.ID, shift.DepartmentID, shift.StartTime, shift.EndTime, shift.ShiftType,
		shift.RequiredNurses, skillsJSON, shift.PatientRatioTarget,
		shift.Status, shift.PriorityScore, shift.AutoGenerated,
		shift.CreatedAt, shift.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "创建班次失败")
	}

	return nil
}

// GetByID 根据ID获取班次
func (r *ShiftRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1`
	shift, err := r.scanShift(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("班次", id.String())
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询班次失败")
	}
	return shift, nil
}

// ListInRange 列出日期范围内指定科室的班次
func (r *ShiftRepository) ListInRange(
	ctx context.Context,
	departmentIDs []uuid.UUID,
	start, end time.Time,
) ([]*model.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE department_id = ANY($1) AND start_time >= $2 AND start_time < $3
		ORDER BY start_time, id
	`

	ids := make([]string, len(departmentIDs))
	for i, id := range departmentIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids), start, end)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询班次失败")
	}
	defer rows.Close()

	var shifts []*model.Shift
	for rows.Next() {
		shift, err := r.scanShift(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描班次记录失败")
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// buildShiftListQuery 根据过滤器构造分页班次查询
func buildShiftListQuery(filter ListFilter) (string, []interface{}) {
	query := `SELECT ` + shiftColumns + ` FROM shifts`
	var conds []string
	var args []interface{}

	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		conds = append(conds, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		conds = append(conds, fmt.Sprintf("start_time >= $%d::date", len(args)))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		conds = append(conds, fmt.Sprintf("start_time < $%d::date + interval '1 day'", len(args)))
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_time, id"

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	return query, args
}

// List 按过滤器分页列出班次
func (r *ShiftRepository) List(ctx context.Context, filter ListFilter) ([]*model.Shift, error) {
	query, args := buildShiftListQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询班次失败")
	}
	defer rows.Close()

	var shifts []*model.Shift
	for rows.Next() {
		shift, err := r.scanShift(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描班次记录失败")
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// UpdateStatus 更新班次状态
func (r *ShiftRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ShiftStatus) error {
	query := `UPDATE shifts SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "更新班次状态失败")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.NotFound("班次", id.String())
	}
	return nil
}

// scanShift 扫描单行班次记录
func (r *ShiftRepository) scanShift(row Scanner) (*model.Shift, error) {
	var shift model.Shift
	var skillsJSON []byte

	err := row.Scan(
		&shift.ID, &shift.DepartmentID, &shift.StartTime, &shift.EndTime, &shift.ShiftType,
		&shift.RequiredNurses, &skillsJSON, &shift.PatientRatioTarget,
		&shift.Status, &shift.PriorityScore, &shift.AutoGenerated,
		&shift.CreatedAt, &shift.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(skillsJSON) > 0 {
		if err := json.Unmarshal(skillsJSON, &shift.RequiredSkills); err != nil {
			return nil, err
		}
	}

	return &shift, nil
}

// AssignmentRepository 排班分配仓储
type AssignmentRepository struct {
	db DB
}

// NewAssignmentRepository 创建排班分配仓储
func NewAssignmentRepository(db DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, shift_id, nurse_id, department_id, start_time, end_time,
	patient_load, is_primary, status, is_swapped, original_nurse_id, notes,
	created_at, updated_at`

// Create 创建排班分配
func (r *AssignmentRepository) Create(ctx context.Context, a *model.ShiftAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO shift_assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.ShiftID, a.NurseID, a.DepartmentID, a.StartTime, a.EndTime,
		a.PatientLoad, a.IsPrimary, a.Status, a.IsSwapped, a.OriginalNurseID, a.Notes,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "创建排班分配失败")
	}

	return nil
}

// ListInRange 列出时间范围内指定科室的排班分配
func (r *AssignmentRepository) ListInRange(
	ctx context.Context,
	departmentIDs []uuid.UUID,
	start, end time.Time,
) ([]*model.ShiftAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM shift_assignments
		WHERE department_id = ANY($1) AND start_time >= $2 AND start_time < $3
		ORDER BY start_time, id
	`

	ids := make([]string, len(departmentIDs))
	for i, id := range departmentIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids), start, end)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询排班分配失败")
	}
	defer rows.Close()

	var assignments []*model.ShiftAssignment
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描排班分配失败")
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ListByNurse 列出护士在时间范围内的排班分配
func (r *AssignmentRepository) ListByNurse(
	ctx context.Context,
	nurseID uuid.UUID,
	start, end time.Time,
) ([]*model.ShiftAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM shift_assignments
		WHERE nurse_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time, id
	`

	rows, err := r.db.QueryContext(ctx, query, nurseID, start, end)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询护士排班失败")
	}
	defer rows.Close()

	var assignments []*model.ShiftAssignment
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描排班分配失败")
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// Cancel 取消排班分配
func (r *AssignmentRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE shift_assignments SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, model.AssignmentCancelled, time.Now())
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "取消排班分配失败")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.NotFound("排班分配", id.String())
	}
	return nil
}

// scanAssignment 扫描单行排班分配记录
func (r *AssignmentRepository) scanAssignment(row Scanner) (*model.ShiftAssignment, error) {
	var a model.ShiftAssignment
	err := row.Scan(
		&a.ID, &a.ShiftID, &a.NurseID, &a.DepartmentID, &a.StartTime, &a.EndTime,
		&a.PatientLoad, &a.IsPrimary, &a.Status, &a.IsSwapped, &a.OriginalNurseID, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
