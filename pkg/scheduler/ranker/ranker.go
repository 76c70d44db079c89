// Package ranker 提供候选护士加权排序
package ranker

import (
	"sort"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/fatigue"
	"github.com/huban/huban/pkg/model"
	"github.com/huban/huban/pkg/scheduler/constraint"
)

// 基础权重与加成系数
// 偏好开关打开时对应权重乘以 BoostFactor，随后所有权重归一化，
// 因此测试可以据此断言确定的排序
const (
	// WeightSeniority 资历基础权重（未开启 prefer_seniority 时接近于零）
	WeightSeniority = 0.05
	// WeightFatigue 疲劳余量权重（固定，不受偏好开关影响）
	WeightFatigue = 0.30
	// WeightOvertime 加班规避基础权重
	WeightOvertime = 0.25
	// WeightAvailability 可用性匹配基础权重
	WeightAvailability = 0.30
	// BoostFactor 偏好开关打开时的权重加成系数
	BoostFactor = 3.0

	// LoadPenaltyStep 工作量平衡：每超出运行均值一个班次的扣分
	LoadPenaltyStep = 0.10
	// RotationPenalty 公平轮换：上一轮已被分配的护士扣分
	RotationPenalty = 0.05

	// AvailabilityPreferred 班次落在护士偏好窗口内
	AvailabilityPreferred = 1.0
	// AvailabilityNeutral 护士仅是可用而非偏好
	AvailabilityNeutral = 0.5
)

// Candidate 候选护士评分
type Candidate struct {
	Nurse     *model.Nurse   `json:"nurse"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// ScoreBreakdown 子分数明细（均为 [0,1] 归一化值）
type ScoreBreakdown struct {
	SeniorityFit      float64 `json:"seniority_fit"`
	FatigueHeadroom   float64 `json:"fatigue_headroom"`
	OvertimeAvoidance float64 `json:"overtime_avoidance"`
	AvailabilityMatch float64 `json:"availability_match"`
	LoadPenalty       float64 `json:"load_penalty,omitempty"`
}

// RunLoad 运行局部的护士负载累积器
// 仅在单次生成运行内存在，并发运行各自持有独立实例
type RunLoad struct {
	counts       map[uuid.UUID]int
	total        int
	poolSize     int
	prevAssigned map[uuid.UUID]bool
}

// NewRunLoad 创建负载累积器
// prevAssigned 为上一轮生成中被分配过的护士（由调用方提供，用于公平轮换）
func NewRunLoad(poolSize int, prevAssigned map[uuid.UUID]bool) *RunLoad {
	if prevAssigned == nil {
		prevAssigned = make(map[uuid.UUID]bool)
	}
	return &RunLoad{
		counts:       make(map[uuid.UUID]int),
		poolSize:     poolSize,
		prevAssigned: prevAssigned,
	}
}

// Record 记录一次分配
func (r *RunLoad) Record(nurseID uuid.UUID) {
	r.counts[nurseID]++
	r.total++
}

// Count 返回护士在本次运行中的分配数
func (r *RunLoad) Count(nurseID uuid.UUID) int {
	return r.counts[nurseID]
}

// Mean 返回运行内人均分配数
func (r *RunLoad) Mean() float64 {
	if r.poolSize == 0 {
		return 0
	}
	return float64(r.total) / float64(r.poolSize)
}

// WasPreviouslyAssigned 检查护士是否在上一轮生成中被分配
func (r *RunLoad) WasPreviouslyAssigned(nurseID uuid.UUID) bool {
	return r.prevAssigned[nurseID]
}

// Ranker 候选护士排序器
type Ranker struct {
	prefs model.AssignmentPreferences
}

// New 创建排序器
func New(prefs model.AssignmentPreferences) *Ranker {
	return &Ranker{prefs: prefs}
}

// Rank 对可行候选护士按综合得分降序排序
// 同分时按护士 ID 升序，保证确定性
func (r *Ranker) Rank(ctx *constraint.Context, shift *model.Shift, nurses []*model.Nurse) []Candidate {
	return r.RankWithLoad(ctx, shift, nurses, nil, false, false)
}

// RankWithLoad 排序并应用运行负载惩罚
// balanceWorkload 打开时，分配数高于运行均值的护士按超出量扣分；
// fairRotation 打开时，上一轮被分配的护士额外扣分
func (r *Ranker) RankWithLoad(
	ctx *constraint.Context,
	shift *model.Shift,
	nurses []*model.Nurse,
	load *RunLoad,
	balanceWorkload bool,
	fairRotation bool,
) []Candidate {
	weights := r.normalizedWeights()

	maxSeniority := 0
	for _, n := range nurses {
		if n.SeniorityPoints > maxSeniority {
			maxSeniority = n.SeniorityPoints
		}
	}

	candidates := make([]Candidate, 0, len(nurses))
	for _, n := range nurses {
		breakdown := ScoreBreakdown{
			SeniorityFit:      seniorityFit(n, maxSeniority),
			FatigueHeadroom:   fatigue.Headroom(n.FatigueScore),
			OvertimeAvoidance: overtimeAvoidance(ctx, n, shift),
			AvailabilityMatch: availabilityMatch(n, shift),
		}

		score := breakdown.SeniorityFit*weights.seniority +
			breakdown.FatigueHeadroom*weights.fatigue +
			breakdown.OvertimeAvoidance*weights.overtime +
			breakdown.AvailabilityMatch*weights.availability

		if load != nil {
			var penalty float64
			if balanceWorkload {
				if over := float64(load.Count(n.ID)) - load.Mean(); over > 0 {
					penalty += over * LoadPenaltyStep
				}
			}
			if fairRotation && load.WasPreviouslyAssigned(n.ID) {
				penalty += RotationPenalty
			}
			breakdown.LoadPenalty = penalty
			score -= penalty
		}

		candidates = append(candidates, Candidate{
			Nurse:     n,
			Score:     score,
			Breakdown: breakdown,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Nurse.ID.String() < candidates[j].Nurse.ID.String()
	})

	return candidates
}

// weightSet 归一化后的权重
type weightSet struct {
	seniority    float64
	fatigue      float64
	overtime     float64
	availability float64
}

// normalizedWeights 应用偏好加成后归一化权重（总和为 1）
func (r *Ranker) normalizedWeights() weightSet {
	w := weightSet{
		seniority:    WeightSeniority,
		fatigue:      WeightFatigue,
		overtime:     WeightOvertime,
		availability: WeightAvailability,
	}

	if r.prefs.PreferSeniority {
		w.seniority *= BoostFactor
	}
	if r.prefs.AvoidOvertime {
		w.overtime *= BoostFactor
	}
	if r.prefs.PrioritizeAvailability {
		w.availability *= BoostFactor
	}

	total := w.seniority + w.fatigue + w.overtime + w.availability
	w.seniority /= total
	w.fatigue /= total
	w.overtime /= total
	w.availability /= total
	return w
}

// seniorityFit 资历子分数：按候选池最大资历归一化
func seniorityFit(n *model.Nurse, maxSeniority int) float64 {
	if maxSeniority <= 0 {
		return 1
	}
	return float64(n.SeniorityPoints) / float64(maxSeniority)
}

// overtimeAvoidance 加班规避子分数
// 分配后周工时距离上限的余量比例，达到或超过上限时为 0
func overtimeAvoidance(ctx *constraint.Context, n *model.Nurse, shift *model.Shift) float64 {
	if n.MaxHoursPerWeek <= 0 {
		return 1
	}
	week := model.ISOWeekKey(shift.StartTime)
	projected := ctx.NurseHoursInISOWeek(n.ID, week) + shift.DurationHours()
	if projected >= n.MaxHoursPerWeek {
		return 0
	}
	return (n.MaxHoursPerWeek - projected) / n.MaxHoursPerWeek
}

// availabilityMatch 可用性匹配子分数
// 落在偏好窗口内为 1.0，仅可用为 0.5，明确避免或周末不可用为 0
func availabilityMatch(n *model.Nurse, shift *model.Shift) float64 {
	if shift.IsWeekend() && !n.WeekendAvailable {
		return 0
	}
	if n.AvoidsShiftType(shift.ShiftType) {
		return 0
	}
	if n.PrefersShiftType(shift.ShiftType) || n.PrefersWeekday(shift.StartTime.Weekday()) {
		return AvailabilityPreferred
	}
	return AvailabilityNeutral
}
