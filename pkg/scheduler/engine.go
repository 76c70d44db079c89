// Package scheduler 提供排班引擎对外门面
//
// 引擎是纯计算库：三个操作都在调用方提供的内存快照上运行，
// 不做任何网络或存储调用，结果由调用方负责事务性落库
package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/model"
	"github.com/huban/huban/pkg/scheduler/assigner"
	"github.com/huban/huban/pkg/scheduler/constraint"
	"github.com/huban/huban/pkg/scheduler/generator"
	"github.com/huban/huban/pkg/scheduler/optimizer"
)

// Snapshot 调用方提供的只读数据快照
// 每次调用独立加载，引擎内部不会跨调用持有或修改快照
type Snapshot struct {
	Nurses      []*model.Nurse           `json:"nurses"`
	Shifts      []*model.Shift           `json:"shifts"`
	Assignments []*model.ShiftAssignment `json:"assignments"`
}

// Engine 排班引擎
// 无共享可变状态，可以被多个并发调用安全复用；
// 运行内的负载累积完全是调用局部的
type Engine struct {
	defaultOptions model.SchedulingOptions
}

// New 创建排班引擎
func New() *Engine {
	return &Engine{defaultOptions: model.DefaultSchedulingOptions()}
}

// NewWithOptions 创建带默认排班选项的引擎
func NewWithOptions(options model.SchedulingOptions) *Engine {
	return &Engine{defaultOptions: options}
}

// buildContext 把快照装入运行局部的约束上下文
func buildContext(snapshot *Snapshot, startDate, endDate string) *constraint.Context {
	schedCtx := constraint.NewContext(startDate, endDate)
	schedCtx.SetNurses(snapshot.Nurses)
	schedCtx.SetShifts(snapshot.Shifts)
	schedCtx.SetAssignments(snapshot.Assignments)
	return schedCtx
}

// GenerateSchedule 生成日期范围内的完整排班
func (e *Engine) GenerateSchedule(
	ctx context.Context,
	snapshot *Snapshot,
	dateRange model.DateRange,
	departments []uuid.UUID,
	options model.SchedulingOptions,
) (*generator.Result, error) {
	schedCtx := buildContext(snapshot, dateRange.StartDate, dateRange.EndDate)
	evaluator := constraint.NewEvaluator(options)
	gen := generator.New(assigner.New(evaluator))

	return gen.Generate(ctx, schedCtx, &generator.Request{
		Range:       dateRange,
		Departments: departments,
		Options:     options,
		Pool:        snapshot.Nurses,
	})
}

// AutoAssignShift 为单个班次自动分配护士
func (e *Engine) AutoAssignShift(
	snapshot *Snapshot,
	shiftID uuid.UUID,
	prefs model.AssignmentPreferences,
) (*assigner.Result, error) {
	schedCtx := buildContext(snapshot, "", "")
	evaluator := constraint.NewEvaluator(e.defaultOptions)

	return assigner.New(evaluator).Assign(schedCtx, &assigner.Request{
		ShiftID:     shiftID,
		Preferences: prefs,
		Pool:        snapshot.Nurses,
	})
}

// AutoAssignShiftWithOverride 带管理员兜底的单班次分配
// 兜底必须显式开启并附审计备注，被绕过的约束记录在分配备注里
func (e *Engine) AutoAssignShiftWithOverride(
	snapshot *Snapshot,
	shiftID uuid.UUID,
	prefs model.AssignmentPreferences,
	overrideNote string,
) (*assigner.Result, error) {
	schedCtx := buildContext(snapshot, "", "")
	evaluator := constraint.NewEvaluator(e.defaultOptions)

	return assigner.New(evaluator).Assign(schedCtx, &assigner.Request{
		ShiftID:      shiftID,
		Preferences:  prefs,
		Pool:         snapshot.Nurses,
		Override:     true,
		OverrideNote: overrideNote,
	})
}

// OptimizeSchedule 在现有排班上搜索改进交换
func (e *Engine) OptimizeSchedule(
	ctx context.Context,
	snapshot *Snapshot,
	goals []model.OptimizationGoal,
	constraints model.OptimizeConstraints,
) (*optimizer.Result, error) {
	schedCtx := buildContext(snapshot, "", "")
	evaluator := constraint.NewEvaluator(e.defaultOptions)

	return optimizer.New(evaluator).Optimize(ctx, schedCtx, &optimizer.Request{
		Goals:       goals,
		Constraints: constraints,
		Pool:        snapshot.Nurses,
	})
}
