package scenario

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/model"
	"github.com/huban/huban/pkg/scheduler"
	"github.com/huban/huban/pkg/stats"
)

// TestSingleShiftDispatch 测试单班次派班：疲劳最低的可行护士优先
func TestSingleShiftDispatch(t *testing.T) {
	deptID := uuid.New()

	rested := newNurse("休整护士", deptID)
	rested.FatigueScore = 10
	tired := newNurse("疲惫护士", deptID)
	tired.FatigueScore = 60
	exhausted := newNurse("透支护士", deptID)
	exhausted.FatigueScore = 95

	shift := newShift(t, deptID, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z")

	engine := scheduler.New()
	snapshot := &scheduler.Snapshot{
		Nurses: []*model.Nurse{rested, tired, exhausted},
		Shifts: []*model.Shift{shift},
	}

	prefs := model.DefaultAssignmentPreferences()
	prefs.MaxFatigueScore = 50

	result, err := engine.AutoAssignShift(snapshot, shift.ID, prefs)
	if err != nil {
		t.Fatalf("派班失败: %v", err)
	}

	if result.Assigned() != 1 {
		t.Fatalf("分配数 = %d，期望 1", result.Assigned())
	}
	if result.Assignments[0].NurseID != rested.ID {
		t.Errorf("应选中休整护士，实际 %s", result.Assignments[0].NurseID)
	}
	if len(result.Exclusions) != 2 {
		t.Errorf("排除数 = %d，期望 2（疲劳超限两人）", len(result.Exclusions))
	}

	t.Logf("派班结果: 护士=%s 候选数=%d 排除数=%d",
		result.Assignments[0].NurseID, len(result.Candidates), len(result.Exclusions))
}

// TestDispatchNoEligibleCandidate 无合格候选人是业务结果而非错误
func TestDispatchNoEligibleCandidate(t *testing.T) {
	deptID := uuid.New()
	nurse := newNurse("普通护士", deptID)

	shift := newShift(t, deptID, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z")
	shift.RequiredSkills = []string{"ICU", "呼吸机操作"}

	engine := scheduler.New()
	snapshot := &scheduler.Snapshot{
		Nurses: []*model.Nurse{nurse},
		Shifts: []*model.Shift{shift},
	}

	result, err := engine.AutoAssignShift(snapshot, shift.ID, model.DefaultAssignmentPreferences())
	if err != nil {
		t.Fatalf("无候选人不应返回错误: %v", err)
	}

	if !result.NoEligibleCandidate() {
		t.Error("应报告无合格候选人")
	}
	if !result.Understaffed {
		t.Error("班次应标记为人员不足")
	}
}

// TestDispatchWithManagerOverride 管理员兜底可绕过技能约束并留下审计备注
func TestDispatchWithManagerOverride(t *testing.T) {
	deptID := uuid.New()
	nurse := newNurse("普通护士", deptID)

	shift := newShift(t, deptID, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z")
	shift.RequiredSkills = []string{"ICU"}

	engine := scheduler.New()
	snapshot := &scheduler.Snapshot{
		Nurses: []*model.Nurse{nurse},
		Shifts: []*model.Shift{shift},
	}

	result, err := engine.AutoAssignShiftWithOverride(
		snapshot, shift.ID,
		model.DefaultAssignmentPreferences(),
		"夜间急诊缺人，护士长批准",
	)
	if err != nil {
		t.Fatalf("兜底派班失败: %v", err)
	}

	if result.Assigned() != 1 {
		t.Fatalf("兜底应完成分配，实际 %d", result.Assigned())
	}

	note := result.Assignments[0].Notes
	t.Logf("审计备注: %s", note)

	if !strings.Contains(note, "护士长批准") {
		t.Error("审计备注应包含管理员说明")
	}
	if !strings.Contains(note, "skill_mismatch") {
		t.Error("审计备注应记录被绕过的约束")
	}
}

// TestOptimizeImprovesWorkloadFairness 优化建议应用后公平性评分应提升
func TestOptimizeImprovesWorkloadFairness(t *testing.T) {
	deptID := uuid.New()
	busy := newNurse("加班护士", deptID)
	idle := newNurse("空闲护士", deptID)
	nurses := []*model.Nurse{busy, idle}

	s1 := newShift(t, deptID, "2026-01-12T08:00:00Z", "2026-01-12T16:00:00Z")
	s2 := newShift(t, deptID, "2026-01-13T08:00:00Z", "2026-01-13T16:00:00Z")
	shifts := []*model.Shift{s1, s2}

	makeAssignment := func(s *model.Shift) *model.ShiftAssignment {
		return &model.ShiftAssignment{
			BaseModel:    model.NewBaseModel(),
			ShiftID:      s.ID,
			NurseID:      busy.ID,
			DepartmentID: deptID,
			StartTime:    s.StartTime,
			EndTime:      s.EndTime,
			Status:       model.AssignmentAssigned,
		}
	}
	assignments := []*model.ShiftAssignment{makeAssignment(s1), makeAssignment(s2)}

	analyzer := stats.NewFairnessAnalyzer()
	before := analyzer.Analyze(assignments, nurses, shifts)
	t.Logf("优化前公平性评分: %.1f", before.OverallFairnessScore)

	engine := scheduler.New()
	snapshot := &scheduler.Snapshot{Nurses: nurses, Shifts: shifts, Assignments: assignments}

	result, err := engine.OptimizeSchedule(
		context.Background(), snapshot,
		[]model.OptimizationGoal{model.GoalBalanceWorkload},
		model.OptimizeConstraints{MaxChangesPerNurse: 1},
	)
	if err != nil {
		t.Fatalf("优化失败: %v", err)
	}

	if len(result.Proposals) != 1 {
		t.Fatalf("建议数 = %d，期望 1", len(result.Proposals))
	}

	p := result.Proposals[0]
	if p.FromNurseID != busy.ID || p.ToNurseID != idle.ID {
		t.Errorf("交换方向错误: from=%s to=%s", p.FromNurseID, p.ToNurseID)
	}
	if p.Improvement <= 0 {
		t.Errorf("改进值 = %v，应为正", p.Improvement)
	}

	// 按建议应用交换后重新评估公平性
	applied := make([]*model.ShiftAssignment, 0, len(assignments))
	for _, a := range assignments {
		if a.ID == p.RemoveAssignmentID {
			continue
		}
		applied = append(applied, a)
	}
	applied = append(applied, p.NewAssignment)

	after := analyzer.Analyze(applied, nurses, shifts)
	t.Logf("优化后公平性评分: %.1f", after.OverallFairnessScore)

	if after.OverallFairnessScore <= before.OverallFairnessScore {
		t.Errorf("应用建议后评分应提升: 前=%.1f 后=%.1f",
			before.OverallFairnessScore, after.OverallFairnessScore)
	}
}
