// Package optimizer 提供排班优化
package optimizer

import (
	"github.com/google/uuid"

	"github.com/huban/huban/pkg/model"
	"github.com/huban/huban/pkg/scheduler/constraint"
)

// objective 目标函数集合
// 每个目标都表达为"越小越好"的代价值，便于统一比较交换前后的差值
type objective struct {
	goals []model.OptimizationGoal
	pool  []*model.Nurse
}

func newObjective(goals []model.OptimizationGoal, pool []*model.Nurse) *objective {
	return &objective{goals: goals, pool: pool}
}

// evaluate 计算当前排班在所选目标下的总代价
// 各目标代价按其当前规模归一化后求和，避免量纲差异主导结果
func (o *objective) evaluate(ctx *constraint.Context) float64 {
	var total float64
	for _, g := range o.goals {
		switch g {
		case model.GoalMinimizeCost:
			total += o.laborCost(ctx)
		case model.GoalBalanceWorkload:
			total += o.workloadVariance(ctx)
		case model.GoalReduceFatigue:
			total += o.fatigueLoad(ctx)
		case model.GoalMaximizeSatisfaction:
			total += o.dissatisfaction(ctx)
		}
	}
	return total
}

// laborCost 人力成本：基础时薪，超出周上限的部分按加班时薪计
func (o *objective) laborCost(ctx *constraint.Context) float64 {
	var cost float64
	for _, n := range o.pool {
		hoursByWeek := make(map[string]float64)
		for _, a := range ctx.GetNurseAssignments(n.ID) {
			hoursByWeek[model.ISOWeekKey(a.StartTime)] += a.WorkingHours()
		}
		for _, hours := range hoursByWeek {
			regular := hours
			var overtime float64
			if n.MaxHoursPerWeek > 0 && hours > n.MaxHoursPerWeek {
				regular = n.MaxHoursPerWeek
				overtime = hours - n.MaxHoursPerWeek
			}
			cost += regular*n.BaseHourlyRate + overtime*n.OvertimeHourlyRate
		}
	}
	// 归一化到千元量级，与其他目标代价可比
	return cost / 1000.0
}

// workloadVariance 工作量均衡：候选池内人均工时的方差
func (o *objective) workloadVariance(ctx *constraint.Context) float64 {
	if len(o.pool) == 0 {
		return 0
	}

	hours := make([]float64, len(o.pool))
	var sum float64
	for i, n := range o.pool {
		for _, a := range ctx.GetNurseAssignments(n.ID) {
			hours[i] += a.WorkingHours()
		}
		sum += hours[i]
	}
	mean := sum / float64(len(o.pool))

	var variance float64
	for _, h := range hours {
		d := h - mean
		variance += d * d
	}
	return variance / float64(len(o.pool))
}

// fatigueLoad 疲劳负荷：分配工时按护士疲劳分加权求和
func (o *objective) fatigueLoad(ctx *constraint.Context) float64 {
	nurseMap := make(map[uuid.UUID]*model.Nurse, len(o.pool))
	for _, n := range o.pool {
		nurseMap[n.ID] = n
	}

	var load float64
	for _, a := range ctx.Assignments {
		if a.IsCancelled() {
			continue
		}
		n := nurseMap[a.NurseID]
		if n == nil {
			continue
		}
		load += float64(n.FatigueScore) / 100.0 * a.WorkingHours()
	}
	return load
}

// dissatisfaction 不满意度：偏好失配程度求和
// 落在偏好窗口记 0，仅可用记 0.5，明确避免或周末冲突记 1
func (o *objective) dissatisfaction(ctx *constraint.Context) float64 {
	nurseMap := make(map[uuid.UUID]*model.Nurse, len(o.pool))
	for _, n := range o.pool {
		nurseMap[n.ID] = n
	}

	var total float64
	for _, a := range ctx.Assignments {
		if a.IsCancelled() {
			continue
		}
		n := nurseMap[a.NurseID]
		s := ctx.GetShift(a.ShiftID)
		if n == nil || s == nil {
			continue
		}
		total += 1 - preferenceMatch(n, s)
	}
	return total
}

// preferenceMatch 偏好匹配度 [0,1]
func preferenceMatch(n *model.Nurse, s *model.Shift) float64 {
	if s.IsWeekend() && !n.WeekendAvailable {
		return 0
	}
	if n.AvoidsShiftType(s.ShiftType) {
		return 0
	}
	if n.PrefersShiftType(s.ShiftType) || n.PrefersWeekday(s.StartTime.Weekday()) {
		return 1
	}
	return 0.5
}
