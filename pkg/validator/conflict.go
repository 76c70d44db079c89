// Package validator 提供排班结果的事后校验功能
// 与约束评估器不同，这里对完整排班方案做全局一致性检查
package validator

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictOverlap          ConflictType = "time_overlap"       // 同一护士时间重叠
	ConflictDuplicate        ConflictType = "duplicate"          // 同一护士重复分配到同一班次
	ConflictInsufficientRest ConflictType = "insufficient_rest"  // 休息间隔不足
	ConflictWeeklyHours      ConflictType = "weekly_hours"       // 周工时超限
	ConflictUnderstaffed     ConflictType = "understaffed"       // 班次人数不足
	ConflictOverstaffed      ConflictType = "overstaffed"        // 班次人数超额
	ConflictUnknownNurse     ConflictType = "unknown_nurse"      // 分配引用了未知护士
	ConflictUnknownShift     ConflictType = "unknown_shift"      // 分配引用了未知班次
	ConflictInactiveNurse    ConflictType = "inactive_nurse"     // 分配给了非在职护士
)

// Conflict 一条校验冲突
type Conflict struct {
	Type     ConflictType `json:"type"`
	NurseID  uuid.UUID    `json:"nurse_id,omitempty"`
	ShiftID  uuid.UUID    `json:"shift_id,omitempty"`
	Severity string       `json:"severity"` // error / warning
	Message  string       `json:"message"`
}

// Report 校验报告
type Report struct {
	Valid     bool       `json:"valid"`
	Conflicts []Conflict `json:"conflicts"`
	Errors    int        `json:"errors"`
	Warnings  int        `json:"warnings"`
}

// ConflictValidator 排班冲突校验器
type ConflictValidator struct{}

// NewConflictValidator 创建冲突校验器
func NewConflictValidator() *ConflictValidator {
	return &ConflictValidator{}
}

// Validate 校验完整排班方案，返回全部冲突
func (v *ConflictValidator) Validate(
	assignments []*model.ShiftAssignment,
	nurses []*model.Nurse,
	shifts []*model.Shift,
) *Report {
	report := &Report{Valid: true}

	nurseMap := make(map[uuid.UUID]*model.Nurse, len(nurses))
	for _, n := range nurses {
		nurseMap[n.ID] = n
	}
	shiftMap := make(map[uuid.UUID]*model.Shift, len(shifts))
	for _, s := range shifts {
		shiftMap[s.ID] = s
	}

	active := filterActive(assignments)

	v.checkReferences(report, active, nurseMap, shiftMap)
	v.checkDuplicates(report, active)
	v.checkOverlaps(report, active)
	v.checkRestGaps(report, active, nurseMap)
	v.checkWeeklyHours(report, active, nurseMap)
	v.checkStaffing(report, active, shifts)

	for _, c := range report.Conflicts {
		if c.Severity == "error" {
			report.Errors++
		} else {
			report.Warnings++
		}
	}
	report.Valid = report.Errors == 0
	return report
}

func filterActive(assignments []*model.ShiftAssignment) []*model.ShiftAssignment {
	out := make([]*model.ShiftAssignment, 0, len(assignments))
	for _, a := range assignments {
		if !a.IsCancelled() {
			out = append(out, a)
		}
	}
	return out
}

func (v *ConflictValidator) addConflict(report *Report, c Conflict) {
	report.Conflicts = append(report.Conflicts, c)
}

// checkReferences 检查分配引用的护士和班次是否存在、护士是否在职
func (v *ConflictValidator) checkReferences(
	report *Report,
	assignments []*model.ShiftAssignment,
	nurseMap map[uuid.UUID]*model.Nurse,
	shiftMap map[uuid.UUID]*model.Shift,
) {
	for _, a := range assignments {
		nurse, ok := nurseMap[a.NurseID]
		if !ok {
			v.addConflict(report, Conflict{
				Type:     ConflictUnknownNurse,
				NurseID:  a.NurseID,
				ShiftID:  a.ShiftID,
				Severity: "error",
				Message:  fmt.Sprintf("分配引用了未知护士 %s", a.NurseID),
			})
		} else if !nurse.IsActive() {
			v.addConflict(report, Conflict{
				Type:     ConflictInactiveNurse,
				NurseID:  a.NurseID,
				ShiftID:  a.ShiftID,
				Severity: "error",
				Message:  fmt.Sprintf("护士 %s 当前非在职状态", nurse.Name),
			})
		}
		if _, ok := shiftMap[a.ShiftID]; !ok {
			v.addConflict(report, Conflict{
				Type:     ConflictUnknownShift,
				NurseID:  a.NurseID,
				ShiftID:  a.ShiftID,
				Severity: "error",
				Message:  fmt.Sprintf("分配引用了未知班次 %s", a.ShiftID),
			})
		}
	}
}

// checkDuplicates 检查同一护士是否被重复分配到同一班次
func (v *ConflictValidator) checkDuplicates(report *Report, assignments []*model.ShiftAssignment) {
	type key struct {
		nurse uuid.UUID
		shift uuid.UUID
	}
	seen := make(map[key]bool)
	for _, a := range assignments {
		k := key{nurse: a.NurseID, shift: a.ShiftID}
		if seen[k] {
			v.addConflict(report, Conflict{
				Type:     ConflictDuplicate,
				NurseID:  a.NurseID,
				ShiftID:  a.ShiftID,
				Severity: "error",
				Message:  fmt.Sprintf("护士 %s 被重复分配到班次 %s", a.NurseID, a.ShiftID),
			})
		}
		seen[k] = true
	}
}

// checkOverlaps 检查同一护士的分配是否存在时间重叠
func (v *ConflictValidator) checkOverlaps(report *Report, assignments []*model.ShiftAssignment) {
	byNurse := groupByNurse(assignments)
	for _, nurseID := range sortedKeys(byNurse) {
		list := byNurse[nurseID]
		sort.Slice(list, func(i, j int) bool {
			return list[i].StartTime.Before(list[j].StartTime)
		})
		for i := 0; i < len(list)-1; i++ {
			a, b := list[i], list[i+1]
			if a.ShiftID == b.ShiftID {
				continue // 重复分配由 checkDuplicates 报告
			}
			if a.Overlaps(b) {
				v.addConflict(report, Conflict{
					Type:     ConflictOverlap,
					NurseID:  nurseID,
					ShiftID:  b.ShiftID,
					Severity: "error",
					Message: fmt.Sprintf("护士 %s 的班次 %s 与 %s 时间重叠",
						nurseID, a.ShiftID, b.ShiftID),
				})
			}
		}
	}
}

// checkRestGaps 检查相邻班次间的休息间隔
func (v *ConflictValidator) checkRestGaps(
	report *Report,
	assignments []*model.ShiftAssignment,
	nurseMap map[uuid.UUID]*model.Nurse,
) {
	byNurse := groupByNurse(assignments)
	for _, nurseID := range sortedKeys(byNurse) {
		nurse, ok := nurseMap[nurseID]
		if !ok || nurse.MinHoursBetweenShifts <= 0 {
			continue
		}
		list := byNurse[nurseID]
		sort.Slice(list, func(i, j int) bool {
			return list[i].StartTime.Before(list[j].StartTime)
		})
		for i := 0; i < len(list)-1; i++ {
			a, b := list[i], list[i+1]
			if a.Overlaps(b) {
				continue // 重叠由 checkOverlaps 报告
			}
			gap := a.Range().GapHours(b.Range())
			if gap < nurse.MinHoursBetweenShifts {
				v.addConflict(report, Conflict{
					Type:     ConflictInsufficientRest,
					NurseID:  nurseID,
					ShiftID:  b.ShiftID,
					Severity: "error",
					Message: fmt.Sprintf("护士 %s 班次间休息 %.1f 小时，低于要求的 %.1f 小时",
						nurse.Name, gap, nurse.MinHoursBetweenShifts),
				})
			}
		}
	}
}

// checkWeeklyHours 检查每个 ISO 周的工时是否超过护士上限
func (v *ConflictValidator) checkWeeklyHours(
	report *Report,
	assignments []*model.ShiftAssignment,
	nurseMap map[uuid.UUID]*model.Nurse,
) {
	byNurse := groupByNurse(assignments)
	for _, nurseID := range sortedKeys(byNurse) {
		nurse, ok := nurseMap[nurseID]
		if !ok || nurse.MaxHoursPerWeek <= 0 {
			continue
		}
		weekly := make(map[string]float64)
		for _, a := range byNurse[nurseID] {
			weekly[model.ISOWeekKey(a.StartTime)] += a.WorkingHours()
		}
		weeks := make([]string, 0, len(weekly))
		for w := range weekly {
			weeks = append(weeks, w)
		}
		sort.Strings(weeks)
		for _, w := range weeks {
			if weekly[w] > nurse.MaxHoursPerWeek {
				v.addConflict(report, Conflict{
					Type:     ConflictWeeklyHours,
					NurseID:  nurseID,
					Severity: "error",
					Message: fmt.Sprintf("护士 %s 在 %s 周工时 %.1f 小时，超过上限 %.1f 小时",
						nurse.Name, w, weekly[w], nurse.MaxHoursPerWeek),
				})
			}
		}
	}
}

// checkStaffing 检查各班次人数是否满足要求
func (v *ConflictValidator) checkStaffing(
	report *Report,
	assignments []*model.ShiftAssignment,
	shifts []*model.Shift,
) {
	counts := make(map[uuid.UUID]int)
	for _, a := range assignments {
		counts[a.ShiftID]++
	}

	sorted := make([]*model.Shift, len(shifts))
	copy(sorted, shifts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	for _, s := range sorted {
		if s.Status == model.ShiftCancelled {
			continue
		}
		n := counts[s.ID]
		switch {
		case n < s.RequiredNurses:
			v.addConflict(report, Conflict{
				Type:     ConflictUnderstaffed,
				ShiftID:  s.ID,
				Severity: "warning",
				Message:  fmt.Sprintf("班次 %s 需要 %d 人，实际分配 %d 人", s.ID, s.RequiredNurses, n),
			})
		case n > s.RequiredNurses:
			v.addConflict(report, Conflict{
				Type:     ConflictOverstaffed,
				ShiftID:  s.ID,
				Severity: "warning",
				Message:  fmt.Sprintf("班次 %s 需要 %d 人，实际分配 %d 人", s.ID, s.RequiredNurses, n),
			})
		}
	}
}

func groupByNurse(assignments []*model.ShiftAssignment) map[uuid.UUID][]*model.ShiftAssignment {
	byNurse := make(map[uuid.UUID][]*model.ShiftAssignment)
	for _, a := range assignments {
		byNurse[a.NurseID] = append(byNurse[a.NurseID], a)
	}
	return byNurse
}

func sortedKeys(m map[uuid.UUID][]*model.ShiftAssignment) []uuid.UUID {
	keys := make([]uuid.UUID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
