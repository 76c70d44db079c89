// Package constraint 提供排班硬约束评估
package constraint

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/model"
)

// Rule 约束规则标识
type Rule string

const (
	RuleSkillMismatch          Rule = "skill_mismatch"           // 技能不匹配
	RuleInsufficientRest       Rule = "insufficient_rest"        // 休息时间不足
	RuleMaxHoursExceeded       Rule = "max_hours_exceeded"       // 超过周最大工时
	RuleMaxConsecutiveExceeded Rule = "max_consecutive_exceeded" // 超过最大连续班次
	RuleMinDaysOffViolation    Rule = "min_days_off_violation"   // 休息天数不足
	RuleFatigueScoreExceeded   Rule = "fatigue_score_exceeded"   // 疲劳分超过偏好上限
)

// Violation 约束违反详情
// Measured/Allowed 提供实测值与阈值，供调用方渲染可操作的提示
type Violation struct {
	Rule     Rule      `json:"rule"`
	NurseID  uuid.UUID `json:"nurse_id"`
	ShiftID  uuid.UUID `json:"shift_id"`
	Measured float64   `json:"measured"`
	Allowed  float64   `json:"allowed"`
	Message  string    `json:"message"`
}

// Evaluation 约束评估结果
type Evaluation struct {
	Feasible   bool        `json:"feasible"`
	Violations []Violation `json:"violations"`
}

// Evaluator 硬约束评估器
// 对候选（护士, 班次）逐条评估五项硬约束，收集全部违反而不短路
type Evaluator struct {
	options model.SchedulingOptions
}

// NewEvaluator 创建约束评估器
func NewEvaluator(options model.SchedulingOptions) *Evaluator {
	return &Evaluator{options: options}
}

// Options 返回当前排班选项
func (e *Evaluator) Options() model.SchedulingOptions {
	return e.options
}

// Evaluate 评估候选分配的可行性
// 按固定顺序评估：技能、休息间隔、周工时、连续班次、休息天数
func (e *Evaluator) Evaluate(ctx *Context, nurse *model.Nurse, shift *model.Shift) Evaluation {
	var violations []Violation

	if v := e.checkSkills(nurse, shift); v != nil {
		violations = append(violations, *v)
	}
	if v := e.checkRestGap(ctx, nurse, shift); v != nil {
		violations = append(violations, *v)
	}
	if v := e.checkWeeklyHours(ctx, nurse, shift); v != nil {
		violations = append(violations, *v)
	}
	if v := e.checkConsecutiveShifts(ctx, nurse, shift); v != nil {
		violations = append(violations, *v)
	}
	if v := e.checkMinDaysOff(ctx, nurse, shift); v != nil {
		violations = append(violations, *v)
	}

	return Evaluation{
		Feasible:   len(violations) == 0,
		Violations: violations,
	}
}

// checkSkills 规则1：班次需求技能必须是护士技能的子集
func (e *Evaluator) checkSkills(nurse *model.Nurse, shift *model.Shift) *Violation {
	missing := nurse.MissingSkills(shift.RequiredSkills)
	if len(missing) == 0 {
		return nil
	}

	matched := len(shift.RequiredSkills) - len(missing)
	return &Violation{
		Rule:     RuleSkillMismatch,
		NurseID:  nurse.ID,
		ShiftID:  shift.ID,
		Measured: float64(matched),
		Allowed:  float64(len(shift.RequiredSkills)),
		Message: fmt.Sprintf("护士 %s 缺少技能: %s",
			nurse.Name, strings.Join(missing, ", ")),
	}
}

// checkRestGap 规则2：与相邻班次的间隔不得小于护士的最小休息时间
func (e *Evaluator) checkRestGap(ctx *Context, nurse *model.Nurse, shift *model.Shift) *Violation {
	minRest := nurse.MinHoursBetweenShifts
	shiftRange := shift.Range()

	minGap := -1.0
	for _, a := range ctx.GetNurseAssignments(nurse.ID) {
		if a.ShiftID == shift.ID {
			continue
		}
		gap := shiftRange.GapHours(a.Range())
		if minGap < 0 || gap < minGap {
			minGap = gap
		}
	}

	if minGap < 0 || minGap >= minRest {
		return nil
	}

	msg := fmt.Sprintf("护士 %s 与相邻班次间隔仅 %.1f 小时，少于要求的 %.1f 小时",
		nurse.Name, minGap, minRest)
	if minGap == 0 {
		msg = fmt.Sprintf("护士 %s 存在时间重叠的班次", nurse.Name)
	}

	return &Violation{
		Rule:     RuleInsufficientRest,
		NurseID:  nurse.ID,
		ShiftID:  shift.ID,
		Measured: minGap,
		Allowed:  minRest,
		Message:  msg,
	}
}

// checkWeeklyHours 规则3：ISO 周内已承诺工时加候选班次不得超过周最大工时
func (e *Evaluator) checkWeeklyHours(ctx *Context, nurse *model.Nurse, shift *model.Shift) *Violation {
	week := model.ISOWeekKey(shift.StartTime)
	committed := ctx.NurseHoursInISOWeek(nurse.ID, week)
	total := committed + shift.DurationHours()

	if total <= nurse.MaxHoursPerWeek {
		return nil
	}

	return &Violation{
		Rule:     RuleMaxHoursExceeded,
		NurseID:  nurse.ID,
		ShiftID:  shift.ID,
		Measured: total,
		Allowed:  nurse.MaxHoursPerWeek,
		Message: fmt.Sprintf("护士 %s 在周 %s 的工时将达 %.1f 小时，超过上限 %.1f 小时",
			nurse.Name, week, total, nurse.MaxHoursPerWeek),
	}
}

// checkConsecutiveShifts 规则4：包含候选班次在内的连续工作天数不得超过上限
// 上限取排班选项与护士个人限制中的较小值
func (e *Evaluator) checkConsecutiveShifts(ctx *Context, nurse *model.Nurse, shift *model.Shift) *Violation {
	maxConsecutive := e.options.MaxConsecutiveShifts
	if nurse.MaxConsecutiveDays > 0 && nurse.MaxConsecutiveDays < maxConsecutive {
		maxConsecutive = nurse.MaxConsecutiveDays
	}

	dates := ctx.NurseWorkedDates(nurse.ID)
	target := shift.StartTime

	// 向前、向后数连续工作天数（不含目标日期），上限 31 天防止异常数据
	count := 1
	for i := 1; i <= 31; i++ {
		if !dates[target.AddDate(0, 0, -i).Format("2006-01-02")] {
			break
		}
		count++
	}
	for i := 1; i <= 31; i++ {
		if !dates[target.AddDate(0, 0, i).Format("2006-01-02")] {
			break
		}
		count++
	}

	if count <= maxConsecutive {
		return nil
	}

	return &Violation{
		Rule:     RuleMaxConsecutiveExceeded,
		NurseID:  nurse.ID,
		ShiftID:  shift.ID,
		Measured: float64(count),
		Allowed:  float64(maxConsecutive),
		Message: fmt.Sprintf("护士 %s 将连续工作 %d 天，超过上限 %d 天",
			nurse.Name, count, maxConsecutive),
	}
}

// checkMinDaysOff 规则5：以候选班次日期为终点的滚动 7 天周期内，
// 休息天数不得少于排班选项要求
func (e *Evaluator) checkMinDaysOff(ctx *Context, nurse *model.Nurse, shift *model.Shift) *Violation {
	minDaysOff := e.options.MinDaysOff
	if minDaysOff <= 0 {
		return nil
	}

	dates := ctx.NurseWorkedDates(nurse.ID)
	target := shift.StartTime

	worked := 1 // 候选班次当天算作工作日
	for i := 1; i < 7; i++ {
		if dates[target.AddDate(0, 0, -i).Format("2006-01-02")] {
			worked++
		}
	}
	offDays := 7 - worked

	if offDays >= minDaysOff {
		return nil
	}

	return &Violation{
		Rule:     RuleMinDaysOffViolation,
		NurseID:  nurse.ID,
		ShiftID:  shift.ID,
		Measured: float64(offDays),
		Allowed:  float64(minDaysOff),
		Message: fmt.Sprintf("护士 %s 近 7 天仅有 %d 个休息日，少于要求的 %d 个",
			nurse.Name, offDays, minDaysOff),
	}
}

// FatigueViolation 构造疲劳分超限的违反记录
// 疲劳过滤是分配偏好的硬过滤，不属于五项排班约束，但复用同一违反结构
func FatigueViolation(nurse *model.Nurse, shiftID uuid.UUID, maxScore int) Violation {
	return Violation{
		Rule:     RuleFatigueScoreExceeded,
		NurseID:  nurse.ID,
		ShiftID:  shiftID,
		Measured: float64(nurse.FatigueScore),
		Allowed:  float64(maxScore),
		Message: fmt.Sprintf("护士 %s 疲劳分 %d 超过偏好上限 %d",
			nurse.Name, nurse.FatigueScore, maxScore),
	}
}
