// Package model 定义护士排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// ShiftStatus 班次状态
type ShiftStatus string

const (
	ShiftScheduled    ShiftStatus = "scheduled"    // 已排班
	ShiftInProgress   ShiftStatus = "in_progress"  // 进行中（由外部定时任务按时钟推进）
	ShiftCompleted    ShiftStatus = "completed"    // 已完成
	ShiftCancelled    ShiftStatus = "cancelled"    // 已取消
	ShiftUnderstaffed ShiftStatus = "understaffed" // 人员不足
	ShiftOverstaffed  ShiftStatus = "overstaffed"  // 人员超配
)

// AssignmentStatus 排班分配状态
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"  // 已分配
	AssignmentConfirmed AssignmentStatus = "confirmed" // 已确认
	AssignmentCancelled AssignmentStatus = "cancelled" // 已取消
)

// Shift 班次
type Shift struct {
	BaseModel
	DepartmentID       uuid.UUID   `json:"department_id" db:"department_id"`
	StartTime          time.Time   `json:"start_time" db:"start_time"`
	EndTime            time.Time   `json:"end_time" db:"end_time"`
	ShiftType          ShiftType   `json:"shift_type" db:"shift_type"`
	RequiredNurses     int         `json:"required_nurses" db:"required_nurses"`
	RequiredSkills     []string    `json:"required_skills" db:"required_skills"`
	PatientRatioTarget float64     `json:"patient_ratio_target" db:"patient_ratio_target"`
	Status             ShiftStatus `json:"status" db:"status"`
	PriorityScore      int         `json:"priority_score" db:"priority_score"`
	AutoGenerated      bool        `json:"auto_generated" db:"auto_generated"`
}

// DurationHours 返回班次时长（小时）
func (s *Shift) DurationHours() float64 {
	return s.EndTime.Sub(s.StartTime).Hours()
}

// Date 返回班次开始日期（YYYY-MM-DD）
func (s *Shift) Date() string {
	return s.StartTime.Format("2006-01-02")
}

// Range 返回班次的时间范围
func (s *Shift) Range() TimeRange {
	return TimeRange{Start: s.StartTime, End: s.EndTime}
}

// IsNightShift 检查是否为大夜班
func (s *Shift) IsNightShift() bool {
	return s.ShiftType == ShiftNight
}

// IsWeekend 检查班次是否落在周末
func (s *Shift) IsWeekend() bool {
	d := s.StartTime.Weekday()
	return d == time.Saturday || d == time.Sunday
}

// ShiftAssignment 排班分配（一名护士对一个班次）
type ShiftAssignment struct {
	BaseModel
	ShiftID         uuid.UUID        `json:"shift_id" db:"shift_id"`
	NurseID         uuid.UUID        `json:"nurse_id" db:"nurse_id"`
	DepartmentID    uuid.UUID        `json:"department_id" db:"department_id"`
	StartTime       time.Time        `json:"start_time" db:"start_time"`
	EndTime         time.Time        `json:"end_time" db:"end_time"`
	PatientLoad     int              `json:"patient_load" db:"patient_load"`
	IsPrimary       bool             `json:"is_primary" db:"is_primary"`
	Status          AssignmentStatus `json:"status" db:"status"`
	IsSwapped       bool             `json:"is_swapped" db:"is_swapped"`
	OriginalNurseID *uuid.UUID       `json:"original_nurse_id,omitempty" db:"original_nurse_id"`
	Notes           string           `json:"notes,omitempty" db:"notes"`
}

// WorkingHours 计算工作时长（小时）
func (a *ShiftAssignment) WorkingHours() float64 {
	return a.EndTime.Sub(a.StartTime).Hours()
}

// Range 返回分配的时间范围
func (a *ShiftAssignment) Range() TimeRange {
	return TimeRange{Start: a.StartTime, End: a.EndTime}
}

// IsCancelled 检查分配是否已取消
func (a *ShiftAssignment) IsCancelled() bool {
	return a.Status == AssignmentCancelled
}

// IsConfirmed 检查分配是否已确认
func (a *ShiftAssignment) IsConfirmed() bool {
	return a.Status == AssignmentConfirmed
}

// Overlaps 检查两个分配的时间范围是否重叠
func (a *ShiftAssignment) Overlaps(other *ShiftAssignment) bool {
	return a.Range().Overlaps(other.Range())
}

// Schedule 排班计划
type Schedule struct {
	BaseModel
	Name        string             `json:"name" db:"name"`
	StartDate   string             `json:"start_date" db:"start_date"`
	EndDate     string             `json:"end_date" db:"end_date"`
	Status      string             `json:"status" db:"status"` // draft/published/archived
	Version     int                `json:"version" db:"version"`
	CreatedBy   *uuid.UUID         `json:"created_by,omitempty" db:"created_by"`
	PublishedAt *time.Time         `json:"published_at,omitempty" db:"published_at"`
	Assignments []*ShiftAssignment `json:"assignments,omitempty" db:"-"`
}
