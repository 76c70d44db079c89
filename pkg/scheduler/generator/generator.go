// Package generator 提供整段排班生成
package generator

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/errors"
	"github.com/huban/huban/pkg/logger"
	"github.com/huban/huban/pkg/model"
	"github.com/huban/huban/pkg/scheduler/assigner"
	"github.com/huban/huban/pkg/scheduler/constraint"
	"github.com/huban/huban/pkg/scheduler/ranker"
)

// Request 排班生成请求
type Request struct {
	Range       model.DateRange         `json:"range"`
	Departments []uuid.UUID             `json:"departments"`
	Options     model.SchedulingOptions `json:"options"`
	Pool        []*model.Nurse          `json:"pool"`

	// PrevAssigned 上一轮生成中被分配过的护士（公平轮换用，由调用方提供）
	PrevAssigned map[uuid.UUID]bool `json:"prev_assigned,omitempty"`
}

// Warning 单班次告警
type Warning struct {
	ShiftID  uuid.UUID `json:"shift_id"`
	Date     string    `json:"date"`
	Assigned int       `json:"assigned"`
	Required int       `json:"required"`
	Message  string    `json:"message"`
}

// Result 排班生成结果
// 不变式：AssignedShifts + UnassignedShifts == TotalShifts
type Result struct {
	TotalShifts      int                      `json:"total_shifts"`
	AssignedShifts   int                      `json:"assigned_shifts"`
	UnassignedShifts int                      `json:"unassigned_shifts"`
	Warnings         []Warning                `json:"warnings"`
	Assignments      []*model.ShiftAssignment `json:"assignments"`
	Exclusions       []assigner.Exclusion     `json:"exclusions,omitempty"`
	Duration         time.Duration            `json:"duration"`
}

// Generator 排班生成器
// 按班次优先级顺序驱动单班次分配器，运行内严格串行：
// 每个班次的决策依赖此前决策累积的运行负载，并行处理会破坏公平轮换保证
type Generator struct {
	assigner *assigner.Assigner
	logger   *logger.EngineLogger
}

// New 创建排班生成器
func New(a *assigner.Assigner) *Generator {
	return &Generator{
		assigner: a,
		logger:   logger.NewEngineLogger(),
	}
}

// Generate 生成日期范围内全部未满员班次的排班
// 范围级校验失败立即返回错误；单个班次无可用护士只记告警，运行总是完成
func (g *Generator) Generate(ctx context.Context, schedCtx *constraint.Context, req *Request) (*Result, error) {
	start := time.Now()

	if len(req.Departments) == 0 {
		return nil, errors.InvalidInput("departments", "科室列表不能为空")
	}
	if !req.Range.IsValid() {
		return nil, errors.InvalidTimeRange(req.Range.StartDate, req.Range.EndDate)
	}
	if err := req.Options.Validate(); err != nil {
		return nil, err
	}

	openShifts := g.collectOpenShifts(schedCtx, req)
	g.logger.StartGeneration(req.Range.StartDate, req.Range.EndDate,
		len(req.Departments), len(openShifts), len(req.Pool))

	result := &Result{
		TotalShifts: len(openShifts),
		Warnings:    make([]Warning, 0),
		Assignments: make([]*model.ShiftAssignment, 0),
	}

	prefs := preferencesFromOptions(req.Options)
	load := ranker.NewRunLoad(len(req.Pool), req.PrevAssigned)

	for _, shift := range openShifts {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, errors.CodeTimeout, "排班生成被取消")
		}

		assignReq := &assigner.Request{
			ShiftID:         shift.ID,
			Preferences:     prefs,
			Pool:            req.Pool,
			Load:            load,
			BalanceWorkload: req.Options.BalanceWorkload,
			FairRotation:    req.Options.FairRotation,
		}

		assignResult, err := g.assigner.Assign(schedCtx, assignReq)
		if err != nil {
			// 单班次失败降级为告警，不中断整个运行
			result.UnassignedShifts++
			result.Warnings = append(result.Warnings, Warning{
				ShiftID:  shift.ID,
				Date:     shift.Date(),
				Required: shift.RequiredNurses,
				Message:  err.Error(),
			})
			continue
		}

		result.Assignments = append(result.Assignments, assignResult.Assignments...)
		result.Exclusions = append(result.Exclusions, assignResult.Exclusions...)

		if assignResult.Understaffed || assignResult.NoEligibleCandidate() {
			result.UnassignedShifts++
			assigned := schedCtx.ShiftAssignedCount(shift.ID)
			result.Warnings = append(result.Warnings, Warning{
				ShiftID:  shift.ID,
				Date:     shift.Date(),
				Assigned: assigned,
				Required: shift.RequiredNurses,
				Message:  understaffedMessage(shift, assigned),
			})
		} else {
			result.AssignedShifts++
		}
	}

	result.Duration = time.Since(start)
	g.logger.GenerationComplete(result.AssignedShifts, result.UnassignedShifts, result.Duration)
	return result, nil
}

// collectOpenShifts 收集范围内未满员的班次
// 排序是刻意的决策而非偶然：优先级降序、开始时间升序、班次 ID 升序，
// 让更早、更高优先级的班次先挑选最优候选人，并保证运行可复现
func (g *Generator) collectOpenShifts(schedCtx *constraint.Context, req *Request) []*model.Shift {
	deptSet := make(map[uuid.UUID]bool, len(req.Departments))
	for _, id := range req.Departments {
		deptSet[id] = true
	}

	var open []*model.Shift
	for _, s := range schedCtx.Shifts {
		if !deptSet[s.DepartmentID] {
			continue
		}
		if s.Status == model.ShiftCancelled || s.Status == model.ShiftCompleted {
			continue
		}
		date := s.Date()
		if date < req.Range.StartDate || date > req.Range.EndDate {
			continue
		}
		if schedCtx.ShiftAssignedCount(s.ID) >= s.RequiredNurses {
			continue
		}
		open = append(open, s)
	}

	sort.Slice(open, func(i, j int) bool {
		if open[i].PriorityScore != open[j].PriorityScore {
			return open[i].PriorityScore > open[j].PriorityScore
		}
		if !open[i].StartTime.Equal(open[j].StartTime) {
			return open[i].StartTime.Before(open[j].StartTime)
		}
		return open[i].ID.String() < open[j].ID.String()
	})

	return open
}

// preferencesFromOptions 从排班选项推导单班次分配偏好
func preferencesFromOptions(opts model.SchedulingOptions) model.AssignmentPreferences {
	return model.AssignmentPreferences{
		MaxFatigueScore:        100,
		AvoidOvertime:          opts.MinimizeOvertime,
		PrioritizeAvailability: opts.RespectPreferences,
	}
}

// understaffedMessage 生成人员不足告警消息
func understaffedMessage(shift *model.Shift, assigned int) string {
	if assigned == 0 {
		return "班次 " + shift.Date() + " 无可用护士"
	}
	return "班次 " + shift.Date() + " 人员不足"
}
