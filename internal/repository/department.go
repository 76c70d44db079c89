package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	apperrors "github.com/huban/huban/pkg/errors"
	"github.com/huban/huban/pkg/model"
)

// DepartmentRepository 科室仓储
type DepartmentRepository struct {
	db DB
}

// NewDepartmentRepository 创建科室仓储
func NewDepartmentRepository(db DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

const departmentColumns = `id, name, code, is_active, created_at, updated_at`

// GetByID 根据ID获取科室
func (r *DepartmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1`
	dept, err := r.scanDepartment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("科室", id.String())
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询科室失败")
	}
	return dept, nil
}

// ListActive 列出所有启用的科室
func (r *DepartmentRepository) ListActive(ctx context.Context) ([]*model.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE is_active ORDER BY code, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询科室列表失败")
	}
	defer rows.Close()

	var departments []*model.Department
	for rows.Next() {
		dept, err := r.scanDepartment(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描科室记录失败")
		}
		departments = append(departments, dept)
	}
	return departments, rows.Err()
}

// scanDepartment 扫描单行科室记录
func (r *DepartmentRepository) scanDepartment(row Scanner) (*model.Department, error) {
	var dept model.Department
	err := row.Scan(
		&dept.ID, &dept.Name, &dept.Code, &dept.IsActive,
		&dept.CreatedAt, &dept.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &dept, nil
}
