// Package model 定义护士排班引擎的核心数据模型
package model

import (
	"github.com/go-playground/validator/v10"

	"github.com/huban/huban/pkg/errors"
)

// validate 参数校验器（单例，线程安全）
var validate = validator.New(validator.WithRequiredStructEnabled())

// AssignmentPreferences 单次自动分配的偏好配置（不持久化）
type AssignmentPreferences struct {
	PreferSeniority        bool `json:"prefer_seniority"`
	MaxFatigueScore        int  `json:"max_fatigue_score" validate:"min=0,max=100"`
	AvoidOvertime          bool `json:"avoid_overtime"`
	PrioritizeAvailability bool `json:"prioritize_availability"`
}

// DefaultAssignmentPreferences 返回默认分配偏好
func DefaultAssignmentPreferences() AssignmentPreferences {
	return AssignmentPreferences{
		MaxFatigueScore:        100,
		AvoidOvertime:          true,
		PrioritizeAvailability: true,
	}
}

// Validate 校验分配偏好
func (p AssignmentPreferences) Validate() error {
	return checkStruct(p)
}

// SchedulingOptions 单次排班生成的行为配置
type SchedulingOptions struct {
	BalanceWorkload      bool `json:"balance_workload"`
	RespectPreferences   bool `json:"respect_preferences"`
	MinimizeOvertime     bool `json:"minimize_overtime"`
	FairRotation         bool `json:"fair_rotation"`
	MaxConsecutiveShifts int  `json:"max_consecutive_shifts" validate:"min=1,max=7"`
	MinDaysOff           int  `json:"min_days_off" validate:"min=0,max=7"`
}

// DefaultSchedulingOptions 返回默认排班选项
func DefaultSchedulingOptions() SchedulingOptions {
	return SchedulingOptions{
		BalanceWorkload:      true,
		RespectPreferences:   true,
		MinimizeOvertime:     true,
		MaxConsecutiveShifts: 5,
		MinDaysOff:           1,
	}
}

// Validate 校验排班选项
func (o SchedulingOptions) Validate() error {
	return checkStruct(o)
}

// OptimizationGoal 优化目标
type OptimizationGoal string

const (
	GoalMinimizeCost         OptimizationGoal = "minimize_cost"         // 最小化成本
	GoalBalanceWorkload      OptimizationGoal = "balance_workload"      // 平衡工作量
	GoalReduceFatigue        OptimizationGoal = "reduce_fatigue"        // 降低疲劳
	GoalMaximizeSatisfaction OptimizationGoal = "maximize_satisfaction" // 提升满意度
)

// IsValid 检查优化目标是否合法
func (g OptimizationGoal) IsValid() bool {
	switch g {
	case GoalMinimizeCost, GoalBalanceWorkload, GoalReduceFatigue, GoalMaximizeSatisfaction:
		return true
	}
	return false
}

// OptimizeConstraints 优化过程的约束配置
type OptimizeConstraints struct {
	PreserveConfirmed  bool `json:"preserve_confirmed"`
	MaxChangesPerNurse int  `json:"max_changes_per_nurse" validate:"min=1"`
}

// DefaultOptimizeConstraints 返回默认优化约束
func DefaultOptimizeConstraints() OptimizeConstraints {
	return OptimizeConstraints{
		PreserveConfirmed:  true,
		MaxChangesPerNurse: 2,
	}
}

// Validate 校验优化约束
func (c OptimizeConstraints) Validate() error {
	return checkStruct(c)
}

// checkStruct 用 validator 校验结构体并转换为统一的验证错误
func checkStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	ve := &errors.ValidationErrors{}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			ve.Add(fe.Field(), fe.Tag())
		}
		return ve.ToAppError()
	}
	return errors.Wrap(err, errors.CodeValidationFail, "参数校验失败")
}
