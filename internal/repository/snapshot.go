package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/huban/huban/internal/database"
	apperrors "github.com/huban/huban/pkg/errors"
	"github.com/huban/huban/pkg/model"
	"github.com/huban/huban/pkg/scheduler"
	"github.com/huban/huban/pkg/scheduler/optimizer"
)

// defaultHistoryLookbackDays 快照默认回看天数，保证周工时和连班检查有足够历史
const defaultHistoryLookbackDays = 28

// SnapshotService 负责在数据库和排班引擎快照之间转换
// 引擎只处理内存快照，读写数据库都发生在引擎调用之外
type SnapshotService struct {
	db          *database.DB
	historyDays int
	nurses      *NurseRepository
	shifts      *ShiftRepository
	assignments *AssignmentRepository
}

// NewSnapshotService 创建快照服务
// historyDays 是分配回看窗口（天），非正值使用默认值
func NewSnapshotService(db *database.DB, historyDays int) *SnapshotService {
	if historyDays <= 0 {
		historyDays = defaultHistoryLookbackDays
	}
	return &SnapshotService{
		db:          db,
		historyDays: historyDays,
		nurses:      NewNurseRepository(db),
		shifts:      NewShiftRepository(db),
		assignments: NewAssignmentRepository(db),
	}
}

// Load 加载排班引擎所需的完整快照
// 班次取目标范围内的，分配额外回看若干天以支撑历史约束检查
func (s *SnapshotService) Load(
	ctx context.Context,
	departmentIDs []uuid.UUID,
	start, end time.Time,
) (*scheduler.Snapshot, error) {
	nurses, err := s.nurses.ListActive(ctx, departmentIDs)
	if err != nil {
		return nil, err
	}

	shifts, err := s.shifts.ListInRange(ctx, departmentIDs, start, end)
	if err != nil {
		return nil, err
	}

	lookback := start.AddDate(0, 0, -s.historyDays)
	assignments, err := s.assignments.ListInRange(ctx, departmentIDs, lookback, end)
	if err != nil {
		return nil, err
	}

	return &scheduler.Snapshot{
		Nurses:      nurses,
		Shifts:      shifts,
		Assignments: assignments,
	}, nil
}

// SaveAssignments 在单个事务内写入一批新分配
func (s *SnapshotService) SaveAssignments(ctx context.Context, assignments []*model.ShiftAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		repo := NewAssignmentRepository(tx)
		for _, a := range assignments {
			if err := repo.Create(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveSchedule 在单个事务内保存排班计划及其全部分配
// 计划以草稿状态落库，发布是独立操作
func (s *SnapshotService) SaveSchedule(ctx context.Context, schedule *model.Schedule) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := NewScheduleRepository(tx).Create(ctx, schedule); err != nil {
			return err
		}
		repo := NewAssignmentRepository(tx)
		for _, a := range schedule.Assignments {
			if err := repo.Create(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplySwaps 在单个事务内应用优化器提出的换班方案
// 每个方案取消原分配并写入新分配，任一失败则整体回滚
func (s *SnapshotService) ApplySwaps(ctx context.Context, proposals []optimizer.ProposedSwap) error {
	if len(proposals) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		repo := NewAssignmentRepository(tx)
		for _, p := range proposals {
			if p.NewAssignment == nil {
				return apperrors.New(apperrors.CodeInvalidInput, "换班方案缺少新分配")
			}
			if err := repo.Cancel(ctx, p.RemoveAssignmentID); err != nil {
				return err
			}
			if err := repo.Create(ctx, p.NewAssignment); err != nil {
				return err
			}
		}
		return nil
	})
}
