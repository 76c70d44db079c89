package validator

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

func newNurse(name string) *model.Nurse {
	return &model.Nurse{
		BaseModel:             model.NewBaseModel(),
		Name:                  name,
		Status:                "active",
		MaxHoursPerWeek:       40,
		MinHoursBetweenShifts: 11,
	}
}

func newShift(t *testing.T, start, end string, required int) *model.Shift {
	return &model.Shift{
		BaseModel:      model.NewBaseModel(),
		StartTime:      mustTime(t, start),
		EndTime:        mustTime(t, end),
		ShiftType:      model.ShiftDay,
		RequiredNurses: required,
		Status:         model.ShiftScheduled,
	}
}

func assign(nurse *model.Nurse, shift *model.Shift) *model.ShiftAssignment {
	return &model.ShiftAssignment{
		BaseModel: model.NewBaseModel(),
		ShiftID:   shift.ID,
		NurseID:   nurse.ID,
		StartTime: shift.StartTime,
		EndTime:   shift.EndTime,
		Status:    model.AssignmentAssigned,
	}
}

func findConflict(report *Report, ct ConflictType) *Conflict {
	for i := range report.Conflicts {
		if report.Conflicts[i].Type == ct {
			return &report.Conflicts[i]
		}
	}
	return nil
}

func TestValidateCleanSchedule(t *testing.T) {
	nurse := newNurse("甲")
	s1 := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 1)
	s2 := newShift(t, "2026-01-13T08:00:00Z", "2026-01-13T16:00:00Z", 1)

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{assign(nurse, s1), assign(nurse, s2)},
		[]*model.Nurse{nurse},
		[]*model.Shift{s1, s2},
	)

	if !report.Valid {
		t.Errorf("合规排班应通过校验，冲突: %+v", report.Conflicts)
	}
	if len(report.Conflicts) != 0 {
		t.Errorf("冲突数 = %d，期望 0", len(report.Conflicts))
	}
}

func TestValidateTimeOverlap(t *testing.T) {
	nurse := newNurse("甲")
	s1 := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 1)
	s2 := newShift(t, "2026-01-12T12:00:00Z", "2026-01-12T20:00:00Z", 1)

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{assign(nurse, s1), assign(nurse, s2)},
		[]*model.Nurse{nurse},
		[]*model.Shift{s1, s2},
	)

	c := findConflict(report, ConflictOverlap)
	if c == nil {
		t.Fatal("未检测到时间重叠冲突")
	}
	if c.Severity != "error" {
		t.Errorf("重叠冲突级别 = %s，期望 error", c.Severity)
	}
	if report.Valid {
		t.Error("存在重叠时报告不应为有效")
	}
}

func TestValidateDuplicateAssignment(t *testing.T) {
	nurse := newNurse("甲")
	s := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 2)

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{assign(nurse, s), assign(nurse, s)},
		[]*model.Nurse{nurse},
		[]*model.Shift{s},
	)

	if findConflict(report, ConflictDuplicate) == nil {
		t.Error("未检测到重复分配冲突")
	}
	// 同一班次的重复分配不应同时报告为时间重叠
	if findConflict(report, ConflictOverlap) != nil {
		t.Error("重复分配不应额外报告为时间重叠")
	}
}

func TestValidateInsufficientRest(t *testing.T) {
	nurse := newNurse("甲")
	s1 := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 1)
	// 间隔仅 8 小时，低于 11 小时要求
	s2 := newShift(t, "2026-01-13T00:00:00Z", "2026-01-13T08:00:00Z", 1)

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{assign(nurse, s1), assign(nurse, s2)},
		[]*model.Nurse{nurse},
		[]*model.Shift{s1, s2},
	)

	c := findConflict(report, ConflictInsufficientRest)
	if c == nil {
		t.Fatal("未检测到休息不足冲突")
	}
	if c.NurseID != nurse.ID {
		t.Errorf("冲突护士 = %s，期望 %s", c.NurseID, nurse.ID)
	}
}

func TestValidateWeeklyHoursExceeded(t *testing.T) {
	nurse := newNurse("甲")
	nurse.MaxHoursPerWeek = 20

	// 同一 ISO 周内三个 8 小时班次，合计 24 小时
	s1 := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 1)
	s2 := newShift(t, "2026-01-13T08:00:00Z", "2026-01-13T16:00:00Z", 1)
	s3 := newShift(t, "2026-01-14T08:00:00Z", "2026-01-14T16:00:00Z", 1)

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{assign(nurse, s1), assign(nurse, s2), assign(nurse, s3)},
		[]*model.Nurse{nurse},
		[]*model.Shift{s1, s2, s3},
	)

	if findConflict(report, ConflictWeeklyHours) == nil {
		t.Error("未检测到周工时超限冲突")
	}
}

func TestValidateHoursNotAccumulatedAcrossWeeks(t *testing.T) {
	nurse := newNurse("甲")
	nurse.MaxHoursPerWeek = 10
	nurse.MinHoursBetweenShifts = 0

	// 2026-01-11 属于第 2 周，2026-01-12 属于第 3 周
	s1 := newShift(t, "2026-01-11T08:00:00Z", "2026-01-11T16:00:00Z", 1)
	s2 := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 1)

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{assign(nurse, s1), assign(nurse, s2)},
		[]*model.Nurse{nurse},
		[]*model.Shift{s1, s2},
	)

	if findConflict(report, ConflictWeeklyHours) != nil {
		t.Error("跨 ISO 周的工时不应累计")
	}
}

func TestValidateUnderstaffedIsWarning(t *testing.T) {
	nurse := newNurse("甲")
	s := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 2)

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{assign(nurse, s)},
		[]*model.Nurse{nurse},
		[]*model.Shift{s},
	)

	c := findConflict(report, ConflictUnderstaffed)
	if c == nil {
		t.Fatal("未检测到人数不足")
	}
	if c.Severity != "warning" {
		t.Errorf("人数不足级别 = %s，期望 warning", c.Severity)
	}
	if !report.Valid {
		t.Error("仅有警告时报告应为有效")
	}
	if report.Warnings != 1 || report.Errors != 0 {
		t.Errorf("warnings=%d errors=%d，期望 1/0", report.Warnings, report.Errors)
	}
}

func TestValidateOverstaffed(t *testing.T) {
	a := newNurse("甲")
	b := newNurse("乙")
	s := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 1)

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{assign(a, s), assign(b, s)},
		[]*model.Nurse{a, b},
		[]*model.Shift{s},
	)

	if findConflict(report, ConflictOverstaffed) == nil {
		t.Error("未检测到人数超额")
	}
}

func TestValidateUnknownReferences(t *testing.T) {
	nurse := newNurse("甲")
	s := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 1)

	orphan := assign(nurse, s)
	orphan.NurseID = uuid.New()
	orphan.ShiftID = uuid.New()

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{orphan},
		[]*model.Nurse{nurse},
		[]*model.Shift{s},
	)

	if findConflict(report, ConflictUnknownNurse) == nil {
		t.Error("未检测到未知护士引用")
	}
	if findConflict(report, ConflictUnknownShift) == nil {
		t.Error("未检测到未知班次引用")
	}
}

func TestValidateInactiveNurse(t *testing.T) {
	nurse := newNurse("甲")
	nurse.Status = "inactive"
	s := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 1)

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{assign(nurse, s)},
		[]*model.Nurse{nurse},
		[]*model.Shift{s},
	)

	if findConflict(report, ConflictInactiveNurse) == nil {
		t.Error("未检测到非在职护士分配")
	}
}

func TestValidateIgnoresCancelledAssignments(t *testing.T) {
	nurse := newNurse("甲")
	s1 := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 1)
	s2 := newShift(t, "2026-01-12T12:00:00Z", "2026-01-12T20:00:00Z", 0)

	cancelled := assign(nurse, s2)
	cancelled.Status = model.AssignmentCancelled

	report := NewConflictValidator().Validate(
		[]*model.ShiftAssignment{assign(nurse, s1), cancelled},
		[]*model.Nurse{nurse},
		[]*model.Shift{s1, s2},
	)

	if findConflict(report, ConflictOverlap) != nil {
		t.Error("已取消的分配不应参与重叠检查")
	}
}

func TestValidateSkipsCancelledShiftStaffing(t *testing.T) {
	nurse := newNurse("甲")
	s := newShift(t, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z", 3)
	s.Status = model.ShiftCancelled

	report := NewConflictValidator().Validate(
		nil,
		[]*model.Nurse{nurse},
		[]*model.Shift{s},
	)

	if findConflict(report, ConflictUnderstaffed) != nil {
		t.Error("已取消的班次不应报告人数不足")
	}
}
