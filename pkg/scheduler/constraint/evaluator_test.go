package constraint

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/model"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("解析时间失败: %v", err)
	}
	return parsed
}

func newTestNurse(name string) *model.Nurse {
	return &model.Nurse{
		BaseModel:             model.NewBaseModel(),
		Name:                  name,
		Status:                "active",
		MaxHoursPerWeek:       40,
		MaxConsecutiveDays:    5,
		MinHoursBetweenShifts: 11,
	}
}

func newTestShift(t *testing.T, start, end string) *model.Shift {
	return &model.Shift{
		BaseModel:      model.NewBaseModel(),
		StartTime:      mustTime(t, start),
		EndTime:        mustTime(t, end),
		ShiftType:      model.ShiftDay,
		RequiredNurses: 1,
		Status:         model.ShiftScheduled,
	}
}

func newAssignment(nurse *model.Nurse, shift *model.Shift) *model.ShiftAssignment {
	return &model.ShiftAssignment{
		BaseModel: model.NewBaseModel(),
		ShiftID:   shift.ID,
		NurseID:   nurse.ID,
		StartTime: shift.StartTime,
		EndTime:   shift.EndTime,
		Status:    model.AssignmentAssigned,
	}
}

func findViolation(violations []Violation, rule Rule) *Violation {
	for i := range violations {
		if violations[i].Rule == rule {
			return &violations[i]
		}
	}
	return nil
}

func TestEvaluateFeasibleWithoutHistory(t *testing.T) {
	ctx := NewContext("2026-01-12", "2026-01-18")
	nurse := newTestNurse("小张")
	ctx.SetNurses([]*model.Nurse{nurse})

	shift := newTestShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z")
	evaluator := NewEvaluator(model.DefaultSchedulingOptions())

	eval := evaluator.Evaluate(ctx, nurse, shift)
	if !eval.Feasible {
		t.Fatalf("期望可行，违反: %+v", eval.Violations)
	}
}

func TestEvaluateSkillSubset(t *testing.T) {
	ctx := NewContext("2026-01-12", "2026-01-18")
	evaluator := NewEvaluator(model.DefaultSchedulingOptions())

	nurse := newTestNurse("小张")
	nurse.Skills = []string{"icu"}

	shift := newTestShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z")
	shift.RequiredSkills = []string{"icu", "pediatrics"}

	eval := evaluator.Evaluate(ctx, nurse, shift)
	if eval.Feasible {
		t.Fatal("缺少技能时应不可行")
	}

	v := findViolation(eval.Violations, RuleSkillMismatch)
	if v == nil {
		t.Fatal("应包含 skill_mismatch 违反")
	}
	if v.Measured != 1 || v.Allowed != 2 {
		t.Errorf("技能匹配数 measured=%v allowed=%v，期望 1/2", v.Measured, v.Allowed)
	}

	// 技能补全后可行
	nurse.Skills = []string{"icu", "pediatrics", "triage"}
	eval = evaluator.Evaluate(ctx, nurse, shift)
	if !eval.Feasible {
		t.Errorf("技能为需求超集时应可行，违反: %+v", eval.Violations)
	}
}

func TestEvaluateInsufficientRest(t *testing.T) {
	ctx := NewContext("2026-01-12", "2026-01-18")
	evaluator := NewEvaluator(model.DefaultSchedulingOptions())

	nurse := newTestNurse("小李")
	ctx.SetNurses([]*model.Nurse{nurse})

	// 已有晚班 16:00-00:00，候选次日 08:00 开始，间隔 8 小时 < 11
	prev := newTestShift(t, "2026-01-12T16:00:00Z", "2026-01-13T00:00:00Z")
	ctx.SetShifts([]*model.Shift{prev})
	ctx.AddAssignment(newAssignment(nurse, prev))

	candidate := newTestShift(t, "2026-01-13T08:00:00Z", "2026-01-13T16:00:00Z")

	eval := evaluator.Evaluate(ctx, nurse, candidate)
	v := findViolation(eval.Violations, RuleInsufficientRest)
	if v == nil {
		t.Fatalf("应包含 insufficient_rest 违反: %+v", eval.Violations)
	}
	if v.Measured != 8 || v.Allowed != 11 {
		t.Errorf("间隔 measured=%v allowed=%v，期望 8/11", v.Measured, v.Allowed)
	}

	// 间隔足够时可行
	later := newTestShift(t, "2026-01-13T12:00:00Z", "2026-01-13T20:00:00Z")
	eval = evaluator.Evaluate(ctx, nurse, later)
	if findViolation(eval.Violations, RuleInsufficientRest) != nil {
		t.Error("间隔 12 小时不应违反休息约束")
	}
}

func TestEvaluateWeeklyHoursExceeded(t *testing.T) {
	ctx := NewContext("2026-01-12", "2026-01-18")
	evaluator := NewEvaluator(model.DefaultSchedulingOptions())

	nurse := newTestNurse("小王")
	nurse.MinHoursBetweenShifts = 0
	ctx.SetNurses([]*model.Nurse{nurse})

	// 同一 ISO 周内已承诺 38 小时（周一到周五每天约 7.6 小时，此处用 4 班凑 38）
	committed := []struct{ start, end string }{
		{"2026-01-12T08:00:00Z", "2026-01-12T18:00:00Z"}, // 10h
		{"2026-01-13T08:00:00Z", "2026-01-13T18:00:00Z"}, // 10h
		{"2026-01-14T08:00:00Z", "2026-01-14T18:00:00Z"}, // 10h
		{"2026-01-15T08:00:00Z", "2026-01-15T16:00:00Z"}, // 8h
	}
	for _, c := range committed {
		s := newTestShift(t, c.start, c.end)
		ctx.AddAssignment(newAssignment(nurse, s))
	}

	// 候选 8 小时班，38 + 8 = 46 > 40
	candidate := newTestShift(t, "2026-01-16T08:00:00Z", "2026-01-16T16:00:00Z")

	eval := evaluator.Evaluate(ctx, nurse, candidate)
	v := findViolation(eval.Violations, RuleMaxHoursExceeded)
	if v == nil {
		t.Fatalf("应包含 max_hours_exceeded 违反: %+v", eval.Violations)
	}
	if v.Measured != 46 || v.Allowed != 40 {
		t.Errorf("周工时 measured=%v allowed=%v，期望 46/40", v.Measured, v.Allowed)
	}

	// 下一个 ISO 周的班次不受本周承诺影响
	nextWeek := newTestShift(t, "2026-01-19T08:00:00Z", "2026-01-19T16:00:00Z")
	eval = evaluator.Evaluate(ctx, nurse, nextWeek)
	if findViolation(eval.Violations, RuleMaxHoursExceeded) != nil {
		t.Error("跨周班次不应计入本周工时")
	}
}

func TestEvaluateConsecutiveExceeded(t *testing.T) {
	ctx := NewContext("2026-01-12", "2026-01-25")
	options := model.DefaultSchedulingOptions()
	options.MaxConsecutiveShifts = 3
	evaluator := NewEvaluator(options)

	nurse := newTestNurse("小赵")
	nurse.MinHoursBetweenShifts = 0
	nurse.MaxHoursPerWeek = 100
	ctx.SetNurses([]*model.Nurse{nurse})

	// 已连续工作 1/12 到 1/14
	for _, day := range []string{"12", "13", "14"} {
		s := newTestShift(t, "2026-01-"+day+"T08:00:00Z", "2026-01-"+day+"T16:00:00Z")
		ctx.AddAssignment(newAssignment(nurse, s))
	}

	// 候选 1/15，连续第 4 天
	candidate := newTestShift(t, "2026-01-15T08:00:00Z", "2026-01-15T16:00:00Z")
	eval := evaluator.Evaluate(ctx, nurse, candidate)
	v := findViolation(eval.Violations, RuleMaxConsecutiveExceeded)
	if v == nil {
		t.Fatalf("应包含 max_consecutive_exceeded 违反: %+v", eval.Violations)
	}
	if v.Measured != 4 || v.Allowed != 3 {
		t.Errorf("连续天数 measured=%v allowed=%v，期望 4/3", v.Measured, v.Allowed)
	}

	// 中间隔一天的候选不违反
	gapDay := newTestShift(t, "2026-01-16T08:00:00Z", "2026-01-16T16:00:00Z")
	eval = evaluator.Evaluate(ctx, nurse, gapDay)
	if findViolation(eval.Violations, RuleMaxConsecutiveExceeded) != nil {
		t.Error("隔天班次不应违反连续班次约束")
	}
}

func TestEvaluateConsecutiveUsesStricterLimit(t *testing.T) {
	ctx := NewContext("2026-01-12", "2026-01-25")
	options := model.DefaultSchedulingOptions()
	options.MaxConsecutiveShifts = 5
	evaluator := NewEvaluator(options)

	nurse := newTestNurse("小钱")
	nurse.MinHoursBetweenShifts = 0
	nurse.MaxHoursPerWeek = 100
	nurse.MaxConsecutiveDays = 2
	ctx.SetNurses([]*model.Nurse{nurse})

	for _, day := range []string{"12", "13"} {
		s := newTestShift(t, "2026-01-"+day+"T08:00:00Z", "2026-01-"+day+"T16:00:00Z")
		ctx.AddAssignment(newAssignment(nurse, s))
	}

	candidate := newTestShift(t, "2026-01-14T08:00:00Z", "2026-01-14T16:00:00Z")
	eval := evaluator.Evaluate(ctx, nurse, candidate)
	v := findViolation(eval.Violations, RuleMaxConsecutiveExceeded)
	if v == nil {
		t.Fatal("个人上限 2 天更严格，应违反")
	}
	if v.Allowed != 2 {
		t.Errorf("上限应取个人限制 2，实际 %v", v.Allowed)
	}
}

func TestEvaluateMinDaysOffViolation(t *testing.T) {
	ctx := NewContext("2026-01-12", "2026-01-25")
	options := model.DefaultSchedulingOptions()
	options.MaxConsecutiveShifts = 7
	options.MinDaysOff = 1
	evaluator := NewEvaluator(options)

	nurse := newTestNurse("小孙")
	nurse.MinHoursBetweenShifts = 0
	nurse.MaxHoursPerWeek = 100
	nurse.MaxConsecutiveDays = 7
	ctx.SetNurses([]*model.Nurse{nurse})

	// 过去 6 天全部工作
	for _, day := range []string{"12", "13", "14", "15", "16", "17"} {
		s := newTestShift(t, "2026-01-"+day+"T08:00:00Z", "2026-01-"+day+"T16:00:00Z")
		ctx.AddAssignment(newAssignment(nurse, s))
	}

	// 候选第 7 天，滚动窗口内 0 个休息日
	candidate := newTestShift(t, "2026-01-18T08:00:00Z", "2026-01-18T16:00:00Z")
	eval := evaluator.Evaluate(ctx, nurse, candidate)
	v := findViolation(eval.Violations, RuleMinDaysOffViolation)
	if v == nil {
		t.Fatalf("应包含 min_days_off_violation 违反: %+v", eval.Violations)
	}
	if v.Measured != 0 || v.Allowed != 1 {
		t.Errorf("休息日 measured=%v allowed=%v，期望 0/1", v.Measured, v.Allowed)
	}
}

func TestEvaluateCollectsAllViolations(t *testing.T) {
	ctx := NewContext("2026-01-12", "2026-01-18")
	evaluator := NewEvaluator(model.DefaultSchedulingOptions())

	nurse := newTestNurse("小周")
	nurse.Skills = nil
	nurse.MaxHoursPerWeek = 8
	ctx.SetNurses([]*model.Nurse{nurse})

	// 紧邻的已有班次同时触发休息与工时违反
	prev := newTestShift(t, "2026-01-12T00:00:00Z", "2026-01-12T08:00:00Z")
	ctx.AddAssignment(newAssignment(nurse, prev))

	candidate := newTestShift(t, "2026-01-12T10:00:00Z", "2026-01-12T18:00:00Z")
	candidate.RequiredSkills = []string{"icu"}

	eval := evaluator.Evaluate(ctx, nurse, candidate)
	if len(eval.Violations) < 3 {
		t.Fatalf("应收集多项违反，实际 %d 项: %+v", len(eval.Violations), eval.Violations)
	}
	for _, rule := range []Rule{RuleSkillMismatch, RuleInsufficientRest, RuleMaxHoursExceeded} {
		if findViolation(eval.Violations, rule) == nil {
			t.Errorf("缺少 %s 违反", rule)
		}
	}
}

func TestEvaluateIgnoresCancelledAssignments(t *testing.T) {
	ctx := NewContext("2026-01-12", "2026-01-18")
	evaluator := NewEvaluator(model.DefaultSchedulingOptions())

	nurse := newTestNurse("小吴")
	ctx.SetNurses([]*model.Nurse{nurse})

	prev := newTestShift(t, "2026-01-12T16:00:00Z", "2026-01-13T00:00:00Z")
	a := newAssignment(nurse, prev)
	a.Status = model.AssignmentCancelled
	ctx.AddAssignment(a)

	candidate := newTestShift(t, "2026-01-13T02:00:00Z", "2026-01-13T10:00:00Z")
	eval := evaluator.Evaluate(ctx, nurse, candidate)
	if !eval.Feasible {
		t.Errorf("已取消的分配不应触发约束: %+v", eval.Violations)
	}
}

func TestFatigueViolation(t *testing.T) {
	nurse := newTestNurse("小郑")
	nurse.FatigueScore = 72
	shiftID := uuid.New()

	v := FatigueViolation(nurse, shiftID, 50)
	if v.Rule != RuleFatigueScoreExceeded {
		t.Errorf("规则 = %s，期望 %s", v.Rule, RuleFatigueScoreExceeded)
	}
	if v.Measured != 72 || v.Allowed != 50 {
		t.Errorf("measured=%v allowed=%v，期望 72/50", v.Measured, v.Allowed)
	}
}
