// Package scenario 提供场景测试
package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/model"
	"github.com/huban/huban/pkg/scheduler"
	"github.com/huban/huban/pkg/stats"
	"github.com/huban/huban/pkg/validator"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("解析时间失败: %v", err)
	}
	return parsed
}

func newNurse(name string, deptID uuid.UUID) *model.Nurse {
	return &model.Nurse{
		BaseModel:             model.NewBaseModel(),
		DepartmentID:          deptID,
		Name:                  name,
		Status:                "active",
		MaxHoursPerWeek:       40,
		MaxConsecutiveDays:    5,
		MinHoursBetweenShifts: 11,
		WeekendAvailable:      true,
	}
}

func newShift(t *testing.T, deptID uuid.UUID, start, end string) *model.Shift {
	return &model.Shift{
		BaseModel:      model.NewBaseModel(),
		DepartmentID:   deptID,
		StartTime:      mustTime(t, start),
		EndTime:        mustTime(t, end),
		ShiftType:      model.ShiftDay,
		RequiredNurses: 1,
		Status:         model.ShiftScheduled,
	}
}

// weekOfShifts 构造 2026-01-12 至 2026-01-18 一周，每天两个白班
func weekOfShifts(t *testing.T, deptID uuid.UUID) []*model.Shift {
	var shifts []*model.Shift
	for day := 12; day <= 18; day++ {
		date := time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		shifts = append(shifts,
			newShift(t, deptID, date+"T08:00:00Z", date+"T16:00:00Z"),
			newShift(t, deptID, date+"T08:00:00Z", date+"T16:00:00Z"),
		)
	}
	return shifts
}

// TestWeeklyScheduleGeneration 测试一周排班的完整流程：
// 生成 → 冲突校验 → 公平性分析
func TestWeeklyScheduleGeneration(t *testing.T) {
	deptID := uuid.New()
	nurses := []*model.Nurse{
		newNurse("张护士", deptID),
		newNurse("李护士", deptID),
		newNurse("王护士", deptID),
		newNurse("赵护士", deptID),
	}
	shifts := weekOfShifts(t, deptID)

	engine := scheduler.New()
	snapshot := &scheduler.Snapshot{Nurses: nurses, Shifts: shifts}

	result, err := engine.GenerateSchedule(
		context.Background(),
		snapshot,
		model.DateRange{StartDate: "2026-01-12", EndDate: "2026-01-18"},
		[]uuid.UUID{deptID},
		model.DefaultSchedulingOptions(),
	)
	if err != nil {
		t.Fatalf("生成排班失败: %v", err)
	}

	t.Logf("总班次=%d 已排=%d 未排=%d 告警=%d",
		result.TotalShifts, result.AssignedShifts, result.UnassignedShifts, len(result.Warnings))

	if result.TotalShifts != 14 {
		t.Errorf("总班次 = %d，期望 14", result.TotalShifts)
	}
	if result.AssignedShifts != 14 {
		t.Errorf("已排班次 = %d，期望 14", result.AssignedShifts)
		for _, w := range result.Warnings {
			t.Logf("  告警: 班次=%s 已分配=%d 需求=%d", w.ShiftID, w.Assigned, w.Required)
		}
	}
	if result.AssignedShifts+result.UnassignedShifts != result.TotalShifts {
		t.Errorf("已排(%d)+未排(%d) != 总数(%d)",
			result.AssignedShifts, result.UnassignedShifts, result.TotalShifts)
	}

	// 生成结果必须通过全局冲突校验
	report := validator.NewConflictValidator().Validate(result.Assignments, nurses, shifts)
	if !report.Valid {
		t.Errorf("生成的排班存在冲突: errors=%d", report.Errors)
		for _, c := range report.Conflicts {
			t.Logf("  冲突: type=%s severity=%s %s", c.Type, c.Severity, c.Message)
		}
	}

	// 公平性分析
	metrics := stats.NewFairnessAnalyzer().Analyze(result.Assignments, nurses, shifts)
	t.Logf("公平性: 评分=%.1f 基尼=%.3f 人均工时=%.1f 最大=%.1f 最小=%.1f",
		metrics.OverallFairnessScore, metrics.WorkloadGini,
		metrics.AvgHoursPerNurse, metrics.MaxHours, metrics.MinHours)

	if metrics.AvgHoursPerNurse != 28 {
		t.Errorf("人均工时 = %v，期望 28", metrics.AvgHoursPerNurse)
	}
	if len(metrics.NurseStats) != 4 {
		t.Errorf("护士统计数 = %d，期望 4", len(metrics.NurseStats))
	}
	if metrics.OverallFairnessScore <= 0 || metrics.OverallFairnessScore > 100 {
		t.Errorf("公平性评分越界: %v", metrics.OverallFairnessScore)
	}
}

// TestScheduleGenerationDeterminism 相同输入重复生成必须产生相同排班
func TestScheduleGenerationDeterminism(t *testing.T) {
	deptID := uuid.New()
	nurses := []*model.Nurse{
		newNurse("张护士", deptID),
		newNurse("李护士", deptID),
		newNurse("王护士", deptID),
	}
	shifts := weekOfShifts(t, deptID)

	engine := scheduler.New()
	dateRange := model.DateRange{StartDate: "2026-01-12", EndDate: "2026-01-18"}

	type pair struct {
		shift uuid.UUID
		nurse uuid.UUID
	}

	var baseline []pair
	for run := 0; run < 3; run++ {
		snapshot := &scheduler.Snapshot{Nurses: nurses, Shifts: shifts}
		result, err := engine.GenerateSchedule(
			context.Background(), snapshot, dateRange,
			[]uuid.UUID{deptID}, model.DefaultSchedulingOptions(),
		)
		if err != nil {
			t.Fatalf("第 %d 次生成失败: %v", run+1, err)
		}

		pairs := make([]pair, 0, len(result.Assignments))
		for _, a := range result.Assignments {
			pairs = append(pairs, pair{shift: a.ShiftID, nurse: a.NurseID})
		}

		if run == 0 {
			baseline = pairs
			continue
		}
		if len(pairs) != len(baseline) {
			t.Fatalf("第 %d 次分配数 = %d，首次 = %d", run+1, len(pairs), len(baseline))
		}
		for i := range pairs {
			if pairs[i] != baseline[i] {
				t.Errorf("第 %d 次第 %d 条分配与首次不一致: %v vs %v",
					run+1, i, pairs[i], baseline[i])
			}
		}
	}
}

// TestUnderstaffedScheduleIsPartialNotFailed 人手不足时生成部分排班并告警，而非报错
func TestUnderstaffedScheduleIsPartialNotFailed(t *testing.T) {
	deptID := uuid.New()
	nurses := []*model.Nurse{newNurse("独苗护士", deptID)}

	// 三个同时段班次，一名护士最多覆盖一个
	shifts := []*model.Shift{
		newShift(t, deptID, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z"),
		newShift(t, deptID, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z"),
		newShift(t, deptID, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z"),
	}

	engine := scheduler.New()
	snapshot := &scheduler.Snapshot{Nurses: nurses, Shifts: shifts}

	result, err := engine.GenerateSchedule(
		context.Background(), snapshot,
		model.DateRange{StartDate: "2026-01-12", EndDate: "2026-01-12"},
		[]uuid.UUID{deptID},
		model.DefaultSchedulingOptions(),
	)
	if err != nil {
		t.Fatalf("人手不足不应返回错误: %v", err)
	}

	if result.AssignedShifts != 1 {
		t.Errorf("已排班次 = %d，期望 1", result.AssignedShifts)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("告警数 = %d，期望 2", len(result.Warnings))
	}

	// 校验器对人数不足给出警告而非错误
	report := validator.NewConflictValidator().Validate(result.Assignments, nurses, shifts)
	if !report.Valid {
		t.Error("人数不足只应产生警告，报告应保持有效")
	}
	if report.Warnings != 2 {
		t.Errorf("校验警告数 = %d，期望 2", report.Warnings)
	}
}
