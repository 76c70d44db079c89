// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/huban/huban/pkg/model"
)

// FairnessMetrics 工作量公平性指标
type FairnessMetrics struct {
	WorkloadGini     float64 `json:"workload_gini"`     // 工时基尼系数 (0=完全公平)
	WorkloadVariance float64 `json:"workload_variance"` // 工时方差
	WorkloadStdDev   float64 `json:"workload_std_dev"`  // 工时标准差
	AvgHoursPerNurse float64 `json:"avg_hours_per_nurse"`
	MaxHours         float64 `json:"max_hours"`
	MinHours         float64 `json:"min_hours"`

	NightShiftGini   float64 `json:"night_shift_gini"`   // 夜班分配基尼系数
	WeekendShiftGini float64 `json:"weekend_shift_gini"` // 周末班分配基尼系数

	NurseStats []NurseStat `json:"nurse_stats"`

	OverallFairnessScore float64 `json:"overall_fairness_score"` // 0-100
}

// NurseStat 护士级别统计
type NurseStat struct {
	NurseID       uuid.UUID `json:"nurse_id"`
	NurseName     string    `json:"nurse_name"`
	TotalHours    float64   `json:"total_hours"`
	ShiftCount    int       `json:"shift_count"`
	NightShifts   int       `json:"night_shifts"`
	WeekendShifts int       `json:"weekend_shifts"`
	OvertimeHours float64   `json:"overtime_hours"`
	Deviation     float64   `json:"deviation"` // 与平均工时的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析排班方案的工作量公平性
// shifts 用于识别夜班/周末班，assignments 是待分析的分配集合
func (f *FairnessAnalyzer) Analyze(
	assignments []*model.ShiftAssignment,
	nurses []*model.Nurse,
	shifts []*model.Shift,
) *FairnessMetrics {
	if len(assignments) == 0 || len(nurses) == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	shiftMap := make(map[uuid.UUID]*model.Shift, len(shifts))
	for _, s := range shifts {
		shiftMap[s.ID] = s
	}

	statByNurse := make(map[uuid.UUID]*NurseStat, len(nurses))
	for _, n := range nurses {
		statByNurse[n.ID] = &NurseStat{NurseID: n.ID, NurseName: n.Name}
	}

	for _, a := range assignments {
		if a.IsCancelled() {
			continue
		}
		stat := statByNurse[a.NurseID]
		if stat == nil {
			continue
		}
		stat.TotalHours += a.WorkingHours()
		stat.ShiftCount++

		if s := shiftMap[a.ShiftID]; s != nil {
			if s.IsNightShift() {
				stat.NightShifts++
			}
			if s.IsWeekend() {
				stat.WeekendShifts++
			}
		}
	}

	// 计算加班工时（按护士周上限折算）
	for _, n := range nurses {
		stat := statByNurse[n.ID]
		if n.MaxHoursPerWeek > 0 && stat.TotalHours > n.MaxHoursPerWeek {
			stat.OvertimeHours = stat.TotalHours - n.MaxHoursPerWeek
		}
	}

	// 固定顺序输出，保证结果可复现
	nurseStats := make([]NurseStat, 0, len(statByNurse))
	ids := make([]uuid.UUID, 0, len(statByNurse))
	for id := range statByNurse {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	hours := make([]float64, 0, len(ids))
	nightShifts := make([]float64, 0, len(ids))
	weekendShifts := make([]float64, 0, len(ids))
	for _, id := range ids {
		stat := statByNurse[id]
		nurseStats = append(nurseStats, *stat)
		hours = append(hours, stat.TotalHours)
		nightShifts = append(nightShifts, float64(stat.NightShifts))
		weekendShifts = append(weekendShifts, float64(stat.WeekendShifts))
	}

	avg := mean(hours)
	v := variance(hours, avg)
	stdDev := math.Sqrt(v)
	maxH, minH := bounds(hours)

	for i := range nurseStats {
		if avg > 0 {
			nurseStats[i].Deviation = (nurseStats[i].TotalHours - avg) / avg * 100
		}
	}

	workloadGini := gini(hours)
	nightGini := gini(nightShifts)
	weekendGini := gini(weekendShifts)

	return &FairnessMetrics{
		WorkloadGini:         workloadGini,
		WorkloadVariance:     v,
		WorkloadStdDev:       stdDev,
		AvgHoursPerNurse:     avg,
		MaxHours:             maxH,
		MinHours:             minH,
		NightShiftGini:       nightGini,
		WeekendShiftGini:     weekendGini,
		NurseStats:           nurseStats,
		OverallFairnessScore: overallScore(workloadGini, nightGini, weekendGini),
	}
}

// mean 计算均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance 计算方差
func variance(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return sum / float64(len(values))
}

// bounds 计算最大值和最小值
func bounds(values []float64) (maxV, minV float64) {
	if len(values) == 0 {
		return 0, 0
	}
	maxV, minV = values[0], values[0]
	for _, v := range values[1:] {
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
	}
	return maxV, minV
}

// gini 计算基尼系数 (0=完全公平, 1=完全不公平)
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum, weightedSum float64
	for i, v := range sorted {
		sum += v
		weightedSum += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}

	return (2*weightedSum)/(float64(n)*sum) - float64(n+1)/float64(n)
}

// overallScore 综合公平性评分
// 工时公平占 50%，夜班和周末班公平各占 25%
func overallScore(workloadGini, nightGini, weekendGini float64) float64 {
	score := 100 * (1 - 0.5*workloadGini - 0.25*nightGini - 0.25*weekendGini)
	if score < 0 {
		return 0
	}
	return score
}
