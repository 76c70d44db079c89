// Package model 定义护士排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Nurse 护士
type Nurse struct {
	BaseModel
	DepartmentID uuid.UUID `json:"department_id" db:"department_id"`
	Name         string    `json:"name" db:"name"`
	EmployeeNo   string    `json:"employee_no" db:"employee_no"`
	Status       string    `json:"status" db:"status"`                 // active/inactive
	EmployType   string    `json:"employment_type" db:"employment_type"` // full_time/part_time/per_diem
	HireDate     string    `json:"hire_date" db:"hire_date"`

	// 薪酬
	BaseHourlyRate     float64 `json:"base_hourly_rate" db:"base_hourly_rate"`
	OvertimeHourlyRate float64 `json:"overtime_hourly_rate" db:"overtime_hourly_rate"`

	// 排班硬性限制
	MaxHoursPerWeek       float64 `json:"max_hours_per_week" db:"max_hours_per_week"`
	MaxConsecutiveDays    int     `json:"max_consecutive_days" db:"max_consecutive_days"`
	MinHoursBetweenShifts float64 `json:"min_hours_between_shifts" db:"min_hours_between_shifts"`

	// 状态指标
	FatigueScore    int `json:"fatigue_score" db:"fatigue_score"`       // 0-100，由疲劳评估更新
	SeniorityPoints int `json:"seniority_points" db:"seniority_points"` // 资历积分

	// 能力与偏好
	Skills           []string          `json:"skills" db:"skills"`
	Preferences      *ShiftPreferences `json:"preferences,omitempty" db:"preferences"`
	WeekendAvailable bool              `json:"weekend_available" db:"weekend_available"`
}

// ShiftPreferences 护士班次偏好
type ShiftPreferences struct {
	PreferredShiftTypes []ShiftType    `json:"preferred_shift_types,omitempty"` // 偏好班次类型
	AvoidShiftTypes     []ShiftType    `json:"avoid_shift_types,omitempty"`     // 避免班次类型
	PreferredDays       []time.Weekday `json:"preferred_days,omitempty"`        // 偏好工作日
}

// IsActive 检查护士是否在职
func (n *Nurse) IsActive() bool {
	return n.Status == "active"
}

// HasSkill 检查护士是否具备某技能
func (n *Nurse) HasSkill(skill string) bool {
	for _, s := range n.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// MissingSkills 返回需求技能中护士缺少的部分
func (n *Nurse) MissingSkills(required []string) []string {
	var missing []string
	for _, skill := range required {
		if !n.HasSkill(skill) {
			missing = append(missing, skill)
		}
	}
	return missing
}

// PrefersShiftType 检查护士是否偏好某班次类型
func (n *Nurse) PrefersShiftType(t ShiftType) bool {
	if n.Preferences == nil {
		return false
	}
	for _, p := range n.Preferences.PreferredShiftTypes {
		if p == t {
			return true
		}
	}
	return false
}

// AvoidsShiftType 检查护士是否避免某班次类型
func (n *Nurse) AvoidsShiftType(t ShiftType) bool {
	if n.Preferences == nil {
		return false
	}
	for _, a := range n.Preferences.AvoidShiftTypes {
		if a == t {
			return true
		}
	}
	return false
}

// PrefersWeekday 检查护士是否偏好某工作日
func (n *Nurse) PrefersWeekday(d time.Weekday) bool {
	if n.Preferences == nil {
		return false
	}
	for _, p := range n.Preferences.PreferredDays {
		if p == d {
			return true
		}
	}
	return false
}

// WorkHistoryWindow 护士工作历史窗口（只读输入，由调用方提供）
// 覆盖近 7/14/28 天的已承诺排班，用于疲劳评估和约束检查
type WorkHistoryWindow struct {
	NurseID     uuid.UUID          `json:"nurse_id"`
	From        time.Time          `json:"from"`
	To          time.Time          `json:"to"`
	Assignments []*ShiftAssignment `json:"assignments"`
}

// TotalHours 返回窗口内非取消排班的总工时
func (w *WorkHistoryWindow) TotalHours() float64 {
	var hours float64
	for _, a := range w.Assignments {
		if a.IsCancelled() {
			continue
		}
		hours += a.WorkingHours()
	}
	return hours
}

// HoursInISOWeek 返回与指定时间同一 ISO 周内的总工时
func (w *WorkHistoryWindow) HoursInISOWeek(t time.Time) float64 {
	week := ISOWeekKey(t)
	var hours float64
	for _, a := range w.Assignments {
		if a.IsCancelled() {
			continue
		}
		if ISOWeekKey(a.StartTime) == week {
			hours += a.WorkingHours()
		}
	}
	return hours
}

// WorkedDates 返回窗口内有非取消排班的日期集合（YYYY-MM-DD）
func (w *WorkHistoryWindow) WorkedDates() map[string]bool {
	dates := make(map[string]bool)
	for _, a := range w.Assignments {
		if a.IsCancelled() {
			continue
		}
		dates[a.StartTime.Format("2006-01-02")] = true
	}
	return dates
}
