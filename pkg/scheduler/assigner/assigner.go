// Package assigner 提供单班次自动分配
package assigner

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/errors"
	"github.com/huban/huban/pkg/logger"
	"github.com/huban/huban/pkg/model"
	"github.com/huban/huban/pkg/scheduler/constraint"
	"github.com/huban/huban/pkg/scheduler/ranker"
)

// Request 单班次分配请求
type Request struct {
	ShiftID     uuid.UUID                   `json:"shift_id"`
	Preferences model.AssignmentPreferences `json:"preferences"`
	Pool        []*model.Nurse              `json:"pool"`

	// 管理员兜底：显式开启时允许分配违反约束的候选人，
	// 被绕过的约束会写入分配的审计备注，绝不静默放宽
	Override     bool   `json:"override,omitempty"`
	OverrideNote string `json:"override_note,omitempty"`

	// 运行负载（由生成器传入，单独调用时为空）
	Load            *ranker.RunLoad `json:"-"`
	BalanceWorkload bool            `json:"-"`
	FairRotation    bool            `json:"-"`
}

// Exclusion 护士被排除的原因
type Exclusion struct {
	NurseID    uuid.UUID              `json:"nurse_id"`
	NurseName  string                 `json:"nurse_name"`
	Violations []constraint.Violation `json:"violations"`
}

// Result 单班次分配结果
// 无可用候选人是预期的业务结果而非错误，通过空分配列表和排除明细表达
type Result struct {
	ShiftID        uuid.UUID                `json:"shift_id"`
	Assignments    []*model.ShiftAssignment `json:"assignments"`
	Candidates     []ranker.Candidate       `json:"candidates,omitempty"`
	Exclusions     []Exclusion              `json:"exclusions,omitempty"`
	AlreadyStaffed bool                     `json:"already_staffed,omitempty"`
	Understaffed   bool                     `json:"understaffed,omitempty"`
	Reason         string                   `json:"reason,omitempty"`
}

// Assigned 返回本次创建的分配数
func (r *Result) Assigned() int {
	return len(r.Assignments)
}

// NoEligibleCandidate 检查是否因无可用候选人而未分配
func (r *Result) NoEligibleCandidate() bool {
	return !r.AlreadyStaffed && len(r.Assignments) == 0
}

// Assigner 单班次自动分配器
type Assigner struct {
	evaluator *constraint.Evaluator
	logger    *logger.EngineLogger
}

// New 创建分配器
func New(evaluator *constraint.Evaluator) *Assigner {
	return &Assigner{
		evaluator: evaluator,
		logger:    logger.NewEngineLogger(),
	}
}

// Assign 为一个班次自动分配护士
// 流程：约束过滤 → 疲劳硬过滤 → 加权排序 → 依次选取直到满足需求人数
// 只提出分配建议，不写入任何存储
func (a *Assigner) Assign(ctx *constraint.Context, req *Request) (*Result, error) {
	if err := req.Preferences.Validate(); err != nil {
		return nil, err
	}
	if req.Override && req.OverrideNote == "" {
		return nil, errors.InvalidInput("override_note", "管理员兜底分配必须提供审计备注")
	}

	shift := ctx.GetShift(req.ShiftID)
	if shift == nil {
		return nil, errors.NotFound("班次", req.ShiftID.String())
	}

	result := &Result{ShiftID: shift.ID}

	needed := shift.RequiredNurses - ctx.ShiftAssignedCount(shift.ID)
	if needed <= 0 {
		result.AlreadyStaffed = true
		result.Reason = "班次人员已满，无需分配"
		return result, nil
	}

	feasible, exclusions := a.filterPool(ctx, shift, req)
	result.Exclusions = exclusions

	r := ranker.New(req.Preferences)
	candidates := r.RankWithLoad(ctx, shift, feasible, req.Load, req.BalanceWorkload, req.FairRotation)
	result.Candidates = candidates

	for _, c := range candidates {
		if len(result.Assignments) >= needed {
			break
		}
		assignment := a.buildAssignment(ctx, shift, c.Nurse, "")
		ctx.AddAssignment(assignment)
		result.Assignments = append(result.Assignments, assignment)
		if req.Load != nil {
			req.Load.Record(c.Nurse.ID)
		}
		a.logger.ShiftAssigned(shift.ID.String(), c.Nurse.ID.String(), c.Score)
	}

	// 管理员兜底：可行候选人不足时允许使用违反约束的候选人
	if req.Override && len(result.Assignments) < needed {
		a.assignWithOverride(ctx, shift, req, result, needed)
	}

	if len(result.Assignments) < needed {
		result.Understaffed = true
		result.Reason = fmt.Sprintf("需求 %d 人，仅分配 %d 人", needed, len(result.Assignments))
		a.logger.ShiftUnderstaffed(shift.ID.String(),
			ctx.ShiftAssignedCount(shift.ID), shift.RequiredNurses)
	}

	return result, nil
}

// filterPool 过滤候选池：在职、未分配本班次、通过硬约束和疲劳上限
func (a *Assigner) filterPool(ctx *constraint.Context, shift *model.Shift, req *Request) ([]*model.Nurse, []Exclusion) {
	var feasible []*model.Nurse
	var exclusions []Exclusion

	for _, n := range req.Pool {
		if !n.IsActive() {
			continue
		}
		if ctx.IsNurseAssignedToShift(n.ID, shift.ID) {
			continue
		}

		// 疲劳硬过滤：超过偏好上限的候选人直接排除，不参与评分
		if n.FatigueScore > req.Preferences.MaxFatigueScore {
			exclusions = append(exclusions, Exclusion{
				NurseID:   n.ID,
				NurseName: n.Name,
				Violations: []constraint.Violation{
					constraint.FatigueViolation(n, shift.ID, req.Preferences.MaxFatigueScore),
				},
			})
			continue
		}

		eval := a.evaluator.Evaluate(ctx, n, shift)
		if !eval.Feasible {
			for _, v := range eval.Violations {
				a.logger.ConstraintViolation(string(v.Rule), n.Name, v.Message)
			}
			exclusions = append(exclusions, Exclusion{
				NurseID:    n.ID,
				NurseName:  n.Name,
				Violations: eval.Violations,
			})
			continue
		}

		feasible = append(feasible, n)
	}

	return feasible, exclusions
}

// assignWithOverride 管理员兜底分配
// 从被约束排除的候选人中选取评分最高者，绕过的约束写入审计备注
// 疲劳超限的候选人不参与兜底
func (a *Assigner) assignWithOverride(ctx *constraint.Context, shift *model.Shift, req *Request, result *Result, needed int) {
	var overridable []*model.Nurse
	violationsByNurse := make(map[uuid.UUID][]constraint.Violation)

	for _, ex := range result.Exclusions {
		bypassable := true
		for _, v := range ex.Violations {
			if v.Rule == constraint.RuleFatigueScoreExceeded {
				bypassable = false
				break
			}
		}
		if !bypassable {
			continue
		}
		n := ctx.GetNurse(ex.NurseID)
		if n == nil {
			continue
		}
		overridable = append(overridable, n)
		violationsByNurse[n.ID] = ex.Violations
	}

	r := ranker.New(req.Preferences)
	candidates := r.RankWithLoad(ctx, shift, overridable, req.Load, req.BalanceWorkload, req.FairRotation)

	for _, c := range candidates {
		if len(result.Assignments) >= needed {
			break
		}
		note := overrideNote(req.OverrideNote, violationsByNurse[c.Nurse.ID])
		assignment := a.buildAssignment(ctx, shift, c.Nurse, note)
		ctx.AddAssignment(assignment)
		result.Assignments = append(result.Assignments, assignment)
		if req.Load != nil {
			req.Load.Record(c.Nurse.ID)
		}
		a.logger.ShiftAssigned(shift.ID.String(), c.Nurse.ID.String(), c.Score)
	}
}

// buildAssignment 构造分配建议
func (a *Assigner) buildAssignment(ctx *constraint.Context, shift *model.Shift, nurse *model.Nurse, note string) *model.ShiftAssignment {
	return &model.ShiftAssignment{
		BaseModel:    model.NewBaseModel(),
		ShiftID:      shift.ID,
		NurseID:      nurse.ID,
		DepartmentID: shift.DepartmentID,
		StartTime:    shift.StartTime,
		EndTime:      shift.EndTime,
		PatientLoad:  int(math.Round(shift.PatientRatioTarget)),
		IsPrimary:    ctx.ShiftAssignedCount(shift.ID) == 0,
		Status:       model.AssignmentAssigned,
		Notes:        note,
	}
}

// overrideNote 生成兜底分配的审计备注
func overrideNote(managerNote string, violations []constraint.Violation) string {
	rules := make([]string, 0, len(violations))
	for _, v := range violations {
		rules = append(rules, string(v.Rule))
	}
	return fmt.Sprintf("管理员兜底分配: %s (绕过约束: %s)",
		managerNote, strings.Join(rules, ", "))
}
