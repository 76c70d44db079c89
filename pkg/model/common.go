// Package model 定义护士排班引擎的核心数据模型
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ShiftType 班次类型
type ShiftType string

const (
	ShiftDay     ShiftType = "day"     // 白班
	ShiftEvening ShiftType = "evening" // 小夜班
	ShiftNight   ShiftType = "night"   // 大夜班
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Department 科室
type Department struct {
	BaseModel
	Name     string `json:"name" db:"name"`
	Code     string `json:"code" db:"code"`
	IsActive bool   `json:"is_active" db:"is_active"`
}

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// GapHours 返回两个不重叠时间范围之间的间隔（小时）
// 重叠时返回 0
func (tr TimeRange) GapHours(other TimeRange) float64 {
	if tr.Overlaps(other) {
		return 0
	}
	if !tr.End.After(other.Start) {
		return other.Start.Sub(tr.End).Hours()
	}
	return tr.Start.Sub(other.End).Hours()
}

// DateRange 日期范围
type DateRange struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
}

// Days 返回日期范围内的天数（含首尾），无效范围返回 0
func (dr DateRange) Days() int {
	start, err1 := time.Parse("2006-01-02", dr.StartDate)
	end, err2 := time.Parse("2006-01-02", dr.EndDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// IsValid 检查日期范围是否有效（格式正确且结束不早于开始）
func (dr DateRange) IsValid() bool {
	return dr.Days() > 0
}

// ISOWeekKey 返回时间点所在 ISO 周的标识（如 2025-W02）
// 周工时统计按 ISO 周（周一为一周起点）分段
func ISOWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
