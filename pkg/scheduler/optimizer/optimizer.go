// Package optimizer 提供排班优化
//
// 这是有界局部搜索而非全局最优求解：排班问题在一般情形下是 NP 难的，
// 限时限量的局部搜索是刻意的设计取舍。搜索过程完全确定：
// 逐分配评估、按改进幅度降序贪心接受，平局按 ID 升序，无任何随机性
package optimizer

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/errors"
	"github.com/huban/huban/pkg/logger"
	"github.com/huban/huban/pkg/model"
	"github.com/huban/huban/pkg/scheduler/constraint"
)

// 改进幅度低于该阈值的交换不值得提出
const minImprovement = 1e-9

// Request 优化请求
type Request struct {
	Goals       []model.OptimizationGoal  `json:"goals"`
	Constraints model.OptimizeConstraints `json:"constraints"`
	Pool        []*model.Nurse            `json:"pool"`
}

// ProposedSwap 换班建议：移除原分配，新建替代分配
type ProposedSwap struct {
	RemoveAssignmentID uuid.UUID              `json:"remove_assignment_id"`
	ShiftID            uuid.UUID              `json:"shift_id"`
	FromNurseID        uuid.UUID              `json:"from_nurse_id"`
	ToNurseID          uuid.UUID              `json:"to_nurse_id"`
	NewAssignment      *model.ShiftAssignment `json:"new_assignment"`
	Improvement        float64                `json:"improvement"`
}

// Result 优化结果
// 找不到任何改进交换时返回空建议列表，这是合法结果而非错误
type Result struct {
	Proposals            []ProposedSwap `json:"proposals"`
	EvaluatedSwaps       int            `json:"evaluated_swaps"`
	PredictedImprovement float64        `json:"predicted_improvement"`
	Duration             time.Duration  `json:"duration"`
}

// Optimizer 排班优化器
type Optimizer struct {
	evaluator *constraint.Evaluator
	logger    *logger.EngineLogger
}

// New 创建优化器
func New(evaluator *constraint.Evaluator) *Optimizer {
	return &Optimizer{
		evaluator: evaluator,
		logger:    logger.NewEngineLogger(),
	}
}

// Optimize 在现有排班上搜索改进交换
// 两阶段：先独立评估每个分配的最佳替代护士，
// 再按预测改进降序贪心接受互不冲突的交换，直到每位护士的变更预算耗尽
func (o *Optimizer) Optimize(ctx context.Context, schedCtx *constraint.Context, req *Request) (*Result, error) {
	start := time.Now()

	if len(req.Goals) == 0 {
		return nil, errors.InvalidInput("goals", "优化目标列表不能为空")
	}
	for _, g := range req.Goals {
		if !g.IsValid() {
			return nil, errors.InvalidInput("goals", "未知的优化目标: "+string(g))
		}
	}
	if err := req.Constraints.Validate(); err != nil {
		return nil, err
	}

	obj := newObjective(req.Goals, req.Pool)
	result := &Result{Proposals: make([]ProposedSwap, 0)}

	candidates := o.scanSwaps(ctx, schedCtx, req, obj)

	// 按改进降序、分配 ID 升序排序后贪心接受
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Improvement != candidates[j].Improvement {
			return candidates[i].Improvement > candidates[j].Improvement
		}
		return candidates[i].RemoveAssignmentID.String() < candidates[j].RemoveAssignmentID.String()
	})

	o.acceptSwaps(schedCtx, req, candidates, result)

	result.Duration = time.Since(start)
	o.logger.OptimizeComplete(result.EvaluatedSwaps, len(result.Proposals), result.Duration)
	return result, nil
}

// scanSwaps 第一阶段：为每个可动分配独立寻找最佳替代护士
func (o *Optimizer) scanSwaps(
	ctx context.Context,
	schedCtx *constraint.Context,
	req *Request,
	obj *objective,
) []ProposedSwap {
	// 固定遍历顺序保证确定性
	assignments := make([]*model.ShiftAssignment, 0, len(schedCtx.Assignments))
	for _, a := range schedCtx.Assignments {
		if a.IsCancelled() {
			continue
		}
		if req.Constraints.PreserveConfirmed && a.IsConfirmed() {
			continue
		}
		assignments = append(assignments, a)
	}
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].ID.String() < assignments[j].ID.String()
	})

	baseline := obj.evaluate(schedCtx)
	var candidates []ProposedSwap

	for _, a := range assignments {
		if ctx.Err() != nil {
			break
		}

		shift := schedCtx.GetShift(a.ShiftID)
		if shift == nil {
			continue
		}

		best, improvement := o.bestAlternative(schedCtx, req, obj, baseline, a, shift)
		if best == nil {
			continue
		}

		candidates = append(candidates, ProposedSwap{
			RemoveAssignmentID: a.ID,
			ShiftID:            shift.ID,
			FromNurseID:        a.NurseID,
			ToNurseID:          best.ID,
			Improvement:        improvement,
		})
	}

	return candidates
}

// bestAlternative 为单个分配寻找改进最大的替代护士
// 在移除原分配的上下文中检查替代者的硬约束，保证交换不引入新违反
func (o *Optimizer) bestAlternative(
	schedCtx *constraint.Context,
	req *Request,
	obj *objective,
	baseline float64,
	a *model.ShiftAssignment,
	shift *model.Shift,
) (*model.Nurse, float64) {
	// 池按 ID 升序遍历，等改进时先到者胜，保证确定性
	pool := make([]*model.Nurse, len(req.Pool))
	copy(pool, req.Pool)
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].ID.String() < pool[j].ID.String()
	})

	schedCtx.RemoveAssignment(a.ID)
	defer schedCtx.AddAssignment(a)

	var best *model.Nurse
	var bestImprovement float64

	for _, n := range pool {
		if n.ID == a.NurseID || !n.IsActive() {
			continue
		}
		if schedCtx.IsNurseAssignedToShift(n.ID, shift.ID) {
			continue
		}

		eval := o.evaluator.Evaluate(schedCtx, n, shift)
		if !eval.Feasible {
			continue
		}

		trial := &model.ShiftAssignment{
			BaseModel:    model.BaseModel{ID: a.ID},
			ShiftID:      a.ShiftID,
			NurseID:      n.ID,
			DepartmentID: a.DepartmentID,
			StartTime:    a.StartTime,
			EndTime:      a.EndTime,
			PatientLoad:  a.PatientLoad,
			IsPrimary:    a.IsPrimary,
			Status:       model.AssignmentAssigned,
		}
		schedCtx.AddAssignment(trial)
		improvement := baseline - obj.evaluate(schedCtx)
		schedCtx.RemoveAssignment(trial.ID)

		if improvement > minImprovement && improvement > bestImprovement {
			best = n
			bestImprovement = improvement
		}
	}

	return best, bestImprovement
}

// acceptSwaps 第二阶段：贪心接受互不冲突的交换
// 接受前在当前上下文里复核可行性，已接受的交换会改变后续交换的前提
func (o *Optimizer) acceptSwaps(schedCtx *constraint.Context, req *Request, candidates []ProposedSwap, result *Result) {
	changesPerNurse := make(map[uuid.UUID]int)
	budget := req.Constraints.MaxChangesPerNurse

	nurseMap := make(map[uuid.UUID]*model.Nurse, len(req.Pool))
	for _, n := range req.Pool {
		nurseMap[n.ID] = n
	}

	for _, swap := range candidates {
		result.EvaluatedSwaps++

		if changesPerNurse[swap.FromNurseID] >= budget || changesPerNurse[swap.ToNurseID] >= budget {
			continue
		}

		original := o.findAssignment(schedCtx, swap.RemoveAssignmentID)
		if original == nil {
			continue
		}
		shift := schedCtx.GetShift(swap.ShiftID)
		incoming := nurseMap[swap.ToNurseID]
		if shift == nil || incoming == nil {
			continue
		}

		// 在已接受交换后的上下文里复核替代者可行性
		schedCtx.RemoveAssignment(original.ID)
		eval := o.evaluator.Evaluate(schedCtx, incoming, shift)
		if !eval.Feasible {
			schedCtx.AddAssignment(original)
			continue
		}

		replacement := &model.ShiftAssignment{
			BaseModel:       model.NewBaseModel(),
			ShiftID:         original.ShiftID,
			NurseID:         incoming.ID,
			DepartmentID:    original.DepartmentID,
			StartTime:       original.StartTime,
			EndTime:         original.EndTime,
			PatientLoad:     original.PatientLoad,
			IsPrimary:       original.IsPrimary,
			Status:          model.AssignmentAssigned,
			IsSwapped:       true,
			OriginalNurseID: &original.NurseID,
		}
		schedCtx.AddAssignment(replacement)

		changesPerNurse[swap.FromNurseID]++
		changesPerNurse[swap.ToNurseID]++

		accepted := swap
		accepted.NewAssignment = replacement
		result.Proposals = append(result.Proposals, accepted)
		result.PredictedImprovement += swap.Improvement

		o.logger.SwapAccepted(original.ID.String(),
			swap.FromNurseID.String(), swap.ToNurseID.String(), swap.Improvement)
	}
}

// findAssignment 在上下文中查找分配
func (o *Optimizer) findAssignment(schedCtx *constraint.Context, id uuid.UUID) *model.ShiftAssignment {
	for _, a := range schedCtx.Assignments {
		if a.ID == id && !a.IsCancelled() {
			return a
		}
	}
	return nil
}
