// Package fatigue 提供护士疲劳评分
package fatigue

import (
	"math"

	"github.com/huban/huban/pkg/errors"
)

// StressLevel 自报压力等级
type StressLevel string

const (
	StressLow    StressLevel = "low"
	StressMedium StressLevel = "medium"
	StressHigh   StressLevel = "high"
)

// Factors 疲劳评估输入因子（由外部评估采集服务提供，已是校验后的数值）
type Factors struct {
	ShiftHoursLast7Days float64     `json:"shift_hours_last_7_days"`
	AvgSleepPerNight    float64     `json:"avg_sleep_per_night"`
	ConsecutiveShifts   int         `json:"consecutive_shifts"`
	SelfReportedStress  StressLevel `json:"self_reported_stress"`
}

// 评分常量
// 子分数公式和权重在产品中未完全指定，这里取定值并通过单调性测试验证
const (
	// WeeklyHoursCeiling 周工时压力饱和上限（小时）
	WeeklyHoursCeiling = 60.0
	// SleepBaseline 目标每晚睡眠基线（小时）
	SleepBaseline = 7.0
	// ConsecutiveThreshold 连续班次惩罚起算阈值
	ConsecutiveThreshold = 3
	// ConsecutivePenaltyStep 超出阈值后每个连续班次的惩罚分
	ConsecutivePenaltyStep = 8.0
	// ConsecutivePenaltyMax 连续班次惩罚上限
	ConsecutivePenaltyMax = 30.0

	// 工时压力与睡眠不足子分数的满分权重
	hoursWeight = 40.0
	sleepWeight = 30.0
)

// 压力等级乘数
var stressMultipliers = map[StressLevel]float64{
	StressLow:    0.85,
	StressMedium: 1.0,
	StressHigh:   1.2,
}

// Score 计算疲劳评分，返回 [0,100] 整数，分值越高越疲劳
// 纯函数：相同输入必然得到相同输出，无任何 I/O
func Score(f Factors) (int, error) {
	if err := validateFactors(f); err != nil {
		return 0, err
	}

	// 工时压力：随着周工时接近上限而饱和
	hoursRatio := f.ShiftHoursLast7Days / WeeklyHoursCeiling
	if hoursRatio > 1 {
		hoursRatio = 1
	}
	hoursScore := hoursRatio * hoursWeight

	// 睡眠不足：低于基线部分按比例惩罚
	sleepDeficit := (SleepBaseline - f.AvgSleepPerNight) / SleepBaseline
	if sleepDeficit < 0 {
		sleepDeficit = 0
	}
	sleepScore := sleepDeficit * sleepWeight

	// 连续班次：超出阈值后阶梯式递增
	var consecutiveScore float64
	if f.ConsecutiveShifts > ConsecutiveThreshold {
		consecutiveScore = float64(f.ConsecutiveShifts-ConsecutiveThreshold) * ConsecutivePenaltyStep
		if consecutiveScore > ConsecutivePenaltyMax {
			consecutiveScore = ConsecutivePenaltyMax
		}
	}

	raw := (hoursScore + sleepScore + consecutiveScore) * stressMultipliers[f.SelfReportedStress]

	score := int(math.Round(raw))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}

// validateFactors 校验评估输入
func validateFactors(f Factors) error {
	ve := &errors.ValidationErrors{}

	if f.ShiftHoursLast7Days < 0 {
		ve.Add("shift_hours_last_7_days", "不能为负数")
	}
	if f.AvgSleepPerNight < 0 {
		ve.Add("avg_sleep_per_night", "不能为负数")
	}
	if f.ConsecutiveShifts < 0 {
		ve.Add("consecutive_shifts", "不能为负数")
	}
	if _, ok := stressMultipliers[f.SelfReportedStress]; !ok {
		ve.Add("self_reported_stress", "未知的压力等级，应为 low/medium/high")
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// Headroom 返回疲劳余量 [0,1]，1 表示完全不疲劳
// 候选人排序使用该值作为疲劳维度子分数
func Headroom(score int) float64 {
	if score <= 0 {
		return 1
	}
	if score >= 100 {
		return 0
	}
	return 1 - float64(score)/100
}
