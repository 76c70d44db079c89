// Package constraint 提供排班硬约束评估
package constraint

import (
	"sort"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/model"
)

// Context 单次排班运行的上下文
// 持有调用方提供的只读快照和本次运行内累积的分配，
// 所有状态都是运行局部的，并发运行之间互不可见
type Context struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Nurses      []*model.Nurse           `json:"nurses"`
	Shifts      []*model.Shift           `json:"shifts"`
	Assignments []*model.ShiftAssignment `json:"assignments"`

	// 索引缓存
	nurseMap           map[uuid.UUID]*model.Nurse
	shiftMap           map[uuid.UUID]*model.Shift
	assignmentsByNurse map[uuid.UUID][]*model.ShiftAssignment
	assignmentsByShift map[uuid.UUID][]*model.ShiftAssignment
}

// NewContext 创建新的排班上下文
func NewContext(startDate, endDate string) *Context {
	return &Context{
		StartDate:          startDate,
		EndDate:            endDate,
		Nurses:             make([]*model.Nurse, 0),
		Shifts:             make([]*model.Shift, 0),
		Assignments:        make([]*model.ShiftAssignment, 0),
		nurseMap:           make(map[uuid.UUID]*model.Nurse),
		shiftMap:           make(map[uuid.UUID]*model.Shift),
		assignmentsByNurse: make(map[uuid.UUID][]*model.ShiftAssignment),
		assignmentsByShift: make(map[uuid.UUID][]*model.ShiftAssignment),
	}
}

// SetNurses 设置护士列表
func (c *Context) SetNurses(nurses []*model.Nurse) {
	c.Nurses = nurses
	c.nurseMap = make(map[uuid.UUID]*model.Nurse)
	for _, n := range nurses {
		c.nurseMap[n.ID] = n
	}
}

// SetShifts 设置班次列表
func (c *Context) SetShifts(shifts []*model.Shift) {
	c.Shifts = shifts
	c.shiftMap = make(map[uuid.UUID]*model.Shift)
	for _, s := range shifts {
		c.shiftMap[s.ID] = s
	}
}

// SetAssignments 设置已承诺的排班分配
func (c *Context) SetAssignments(assignments []*model.ShiftAssignment) {
	c.Assignments = assignments
	c.rebuildAssignmentIndexes()
}

// AddAssignment 添加排班分配
func (c *Context) AddAssignment(a *model.ShiftAssignment) {
	c.Assignments = append(c.Assignments, a)
	c.assignmentsByNurse[a.NurseID] = append(c.assignmentsByNurse[a.NurseID], a)
	c.assignmentsByShift[a.ShiftID] = append(c.assignmentsByShift[a.ShiftID], a)
}

// RemoveAssignment 移除排班分配
func (c *Context) RemoveAssignment(id uuid.UUID) {
	for i, a := range c.Assignments {
		if a.ID == id {
			c.Assignments = append(c.Assignments[:i], c.Assignments[i+1:]...)
			break
		}
	}
	c.rebuildAssignmentIndexes()
}

// rebuildAssignmentIndexes 重建分配索引
func (c *Context) rebuildAssignmentIndexes() {
	c.assignmentsByNurse = make(map[uuid.UUID][]*model.ShiftAssignment)
	c.assignmentsByShift = make(map[uuid.UUID][]*model.ShiftAssignment)
	for _, a := range c.Assignments {
		c.assignmentsByNurse[a.NurseID] = append(c.assignmentsByNurse[a.NurseID], a)
		c.assignmentsByShift[a.ShiftID] = append(c.assignmentsByShift[a.ShiftID], a)
	}
}

// GetNurse 获取护士
func (c *Context) GetNurse(id uuid.UUID) *model.Nurse {
	return c.nurseMap[id]
}

// GetShift 获取班次
func (c *Context) GetShift(id uuid.UUID) *model.Shift {
	return c.shiftMap[id]
}

// GetNurseAssignments 获取护士的所有非取消分配
func (c *Context) GetNurseAssignments(nurseID uuid.UUID) []*model.ShiftAssignment {
	var active []*model.ShiftAssignment
	for _, a := range c.assignmentsByNurse[nurseID] {
		if !a.IsCancelled() {
			active = append(active, a)
		}
	}
	return active
}

// GetShiftAssignments 获取班次的所有非取消分配
func (c *Context) GetShiftAssignments(shiftID uuid.UUID) []*model.ShiftAssignment {
	var active []*model.ShiftAssignment
	for _, a := range c.assignmentsByShift[shiftID] {
		if !a.IsCancelled() {
			active = append(active, a)
		}
	}
	return active
}

// ShiftAssignedCount 返回班次当前的有效分配数
func (c *Context) ShiftAssignedCount(shiftID uuid.UUID) int {
	return len(c.GetShiftAssignments(shiftID))
}

// IsNurseAssignedToShift 检查护士是否已分配到该班次
func (c *Context) IsNurseAssignedToShift(nurseID, shiftID uuid.UUID) bool {
	for _, a := range c.GetShiftAssignments(shiftID) {
		if a.NurseID == nurseID {
			return true
		}
	}
	return false
}

// NurseHoursInISOWeek 返回护士在指定时间所在 ISO 周内的已承诺工时
func (c *Context) NurseHoursInISOWeek(nurseID uuid.UUID, week string) float64 {
	var hours float64
	for _, a := range c.GetNurseAssignments(nurseID) {
		if model.ISOWeekKey(a.StartTime) == week {
			hours += a.WorkingHours()
		}
	}
	return hours
}

// NurseWorkedDates 返回护士有非取消分配的日期集合（YYYY-MM-DD）
func (c *Context) NurseWorkedDates(nurseID uuid.UUID) map[string]bool {
	dates := make(map[string]bool)
	for _, a := range c.GetNurseAssignments(nurseID) {
		dates[a.StartTime.Format("2006-01-02")] = true
	}
	return dates
}

// SortedNurseAssignments 返回按开始时间排序的护士分配
func (c *Context) SortedNurseAssignments(nurseID uuid.UUID) []*model.ShiftAssignment {
	assignments := c.GetNurseAssignments(nurseID)
	sorted := make([]*model.ShiftAssignment, len(assignments))
	copy(sorted, assignments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})
	return sorted
}
