// 排班引擎命令行入口
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/huban/huban/internal/config"
	"github.com/huban/huban/internal/database"
	"github.com/huban/huban/internal/repository"
	"github.com/huban/huban/pkg/logger"
	"github.com/huban/huban/pkg/model"
	"github.com/huban/huban/pkg/scheduler"
	"github.com/huban/huban/pkg/scheduler/assigner"
	"github.com/huban/huban/pkg/stats"
	"github.com/huban/huban/pkg/validator"
)

// App 命令行应用依赖
type App struct {
	cfg      *config.Config
	db       *database.DB
	snapshot *repository.SnapshotService
	engine   *scheduler.Engine
}

var (
	cfgPath string
	app     *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scheduler",
		Short: "护士排班引擎",
		Long:  "护士排班引擎：生成排班、单班次补位、排班优化与公平性分析",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.db != nil {
				app.db.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML 配置文件路径")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(assignCmd())
	rootCmd.AddCommand(optimizeCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(fairnessCmd())
	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(shiftsCmd())
	rootCmd.AddCommand(departmentsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp 初始化配置、日志和数据库连接
func initApp() error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.App.LogLevel
	if cfg.IsProduction() {
		logCfg.Format = "json"
	}
	logger.Init(logCfg)

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}

	app = &App{
		cfg:      cfg,
		db:       db,
		snapshot: repository.NewSnapshotService(db, cfg.Fatigue.HistoryDays),
		engine:   scheduler.New(),
	}
	return nil
}

// parseDepartments 解析逗号分隔的科室ID列表
func parseDepartments(raw string) ([]uuid.UUID, error) {
	if raw == "" {
		return nil, fmt.Errorf("必须指定至少一个科室ID")
	}
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("科室ID %q 无效: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseDateRange 解析起止日期并返回对应的时间边界
func parseDateRange(start, end string) (model.DateRange, time.Time, time.Time, error) {
	dr := model.DateRange{StartDate: start, EndDate: end}
	startT, err := time.Parse("2006-01-02", start)
	if err != nil {
		return dr, time.Time{}, time.Time{}, fmt.Errorf("开始日期无效: %w", err)
	}
	endT, err := time.Parse("2006-01-02", end)
	if err != nil {
		return dr, time.Time{}, time.Time{}, fmt.Errorf("结束日期无效: %w", err)
	}
	return dr, startT, endT.AddDate(0, 0, 1), nil
}

// printJSON 以缩进JSON输出结果
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "为日期范围生成排班",
		RunE: func(cmd *cobra.Command, args []string) error {
			deptRaw, _ := cmd.Flags().GetString("departments")
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			departments, err := parseDepartments(deptRaw)
			if err != nil {
				return err
			}
			dateRange, startT, endT, err := parseDateRange(start, end)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Scheduler.DefaultTimeout)
			defer cancel()

			snapshot, err := app.snapshot.Load(ctx, departments, startT, endT)
			if err != nil {
				return err
			}

			result, err := app.engine.GenerateSchedule(
				ctx, snapshot, dateRange, departments, model.DefaultSchedulingOptions(),
			)
			if err != nil {
				return err
			}

			if !dryRun {
				schedule := &model.Schedule{
					BaseModel:   model.NewBaseModel(),
					Name:        fmt.Sprintf("%s 至 %s 排班", start, end),
					StartDate:   start,
					EndDate:     end,
					Status:      "draft",
					Version:     1,
					Assignments: result.Assignments,
				}
				if err := app.snapshot.SaveSchedule(ctx, schedule); err != nil {
					return err
				}
			}

			return printJSON(result)
		},
	}

	cmd.Flags().String("departments", "", "科室ID列表，逗号分隔")
	cmd.Flags().String("start", "", "开始日期 (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "结束日期 (YYYY-MM-DD)")
	cmd.Flags().Bool("dry-run", false, "只计算不落库")
	cmd.MarkFlagRequired("departments")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

func assignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <shift_id>",
		Short: "为单个班次自动分配护士",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shiftID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("班次ID无效: %w", err)
			}
			deptRaw, _ := cmd.Flags().GetString("departments")
			overrideNote, _ := cmd.Flags().GetString("override-note")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			departments, err := parseDepartments(deptRaw)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Scheduler.DefaultTimeout)
			defer cancel()

			now := time.Now()
			snapshot, err := app.snapshot.Load(ctx, departments, now, now.AddDate(0, 0, 14))
			if err != nil {
				return err
			}

			prefs := model.DefaultAssignmentPreferences()
			prefs.MaxFatigueScore = app.cfg.Scheduler.MaxFatigueScore

			var result *assigner.Result
			if overrideNote != "" {
				result, err = app.engine.AutoAssignShiftWithOverride(snapshot, shiftID, prefs, overrideNote)
			} else {
				result, err = app.engine.AutoAssignShift(snapshot, shiftID, prefs)
			}
			if err != nil {
				return err
			}

			if !dryRun && result.Assigned() > 0 {
				if err := app.snapshot.SaveAssignments(ctx, result.Assignments); err != nil {
					return err
				}
			}

			return printJSON(result)
		},
	}

	cmd.Flags().String("departments", "", "科室ID列表，逗号分隔")
	cmd.Flags().String("override-note", "", "管理员兜底备注，非空时允许绕过软约束")
	cmd.Flags().Bool("dry-run", false, "只计算不落库")
	cmd.MarkFlagRequired("departments")

	return cmd
}

func optimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "在现有排班上搜索改进交换",
		RunE: func(cmd *cobra.Command, args []string) error {
			deptRaw, _ := cmd.Flags().GetString("departments")
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			goalsRaw, _ := cmd.Flags().GetString("goals")
			apply, _ := cmd.Flags().GetBool("apply")

			departments, err := parseDepartments(deptRaw)
			if err != nil {
				return err
			}
			_, startT, endT, err := parseDateRange(start, end)
			if err != nil {
				return err
			}

			var goals []model.OptimizationGoal
			for _, g := range strings.Split(goalsRaw, ",") {
				goals = append(goals, model.OptimizationGoal(strings.TrimSpace(g)))
			}

			ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Scheduler.DefaultTimeout)
			defer cancel()

			snapshot, err := app.snapshot.Load(ctx, departments, startT, endT)
			if err != nil {
				return err
			}

			result, err := app.engine.OptimizeSchedule(
				ctx, snapshot, goals, model.DefaultOptimizeConstraints(),
			)
			if err != nil {
				return err
			}

			if apply {
				if err := app.snapshot.ApplySwaps(ctx, result.Proposals); err != nil {
					return err
				}
			}

			return printJSON(result)
		},
	}

	cmd.Flags().String("departments", "", "科室ID列表，逗号分隔")
	cmd.Flags().String("start", "", "开始日期 (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "结束日期 (YYYY-MM-DD)")
	cmd.Flags().String("goals", "balance_workload", "优化目标列表，逗号分隔")
	cmd.Flags().Bool("apply", false, "将换班方案写入数据库")
	cmd.MarkFlagRequired("departments")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "校验日期范围内排班的全局一致性",
		RunE: func(cmd *cobra.Command, args []string) error {
			deptRaw, _ := cmd.Flags().GetString("departments")
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")

			departments, err := parseDepartments(deptRaw)
			if err != nil {
				return err
			}
			_, startT, endT, err := parseDateRange(start, end)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Scheduler.DefaultTimeout)
			defer cancel()

			snapshot, err := app.snapshot.Load(ctx, departments, startT, endT)
			if err != nil {
				return err
			}

			report := validator.NewConflictValidator().Validate(
				snapshot.Assignments, snapshot.Nurses, snapshot.Shifts,
			)
			return printJSON(report)
		},
	}

	cmd.Flags().String("departments", "", "科室ID列表，逗号分隔")
	cmd.Flags().String("start", "", "开始日期 (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "结束日期 (YYYY-MM-DD)")
	cmd.MarkFlagRequired("departments")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <schedule_id>",
		Short: "发布草稿状态的排班计划",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduleID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("排班计划ID无效: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Scheduler.DefaultTimeout)
			defer cancel()

			repo := repository.NewScheduleRepository(app.db)
			if err := repo.Publish(ctx, scheduleID); err != nil {
				return err
			}

			schedule, err := repo.GetByID(ctx, scheduleID)
			if err != nil {
				return err
			}
			return printJSON(schedule)
		},
	}
}

func shiftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shifts",
		Short: "按条件分页列出班次",
		RunE: func(cmd *cobra.Command, args []string) error {
			deptRaw, _ := cmd.Flags().GetString("department")
			status, _ := cmd.Flags().GetString("status")
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			filter := repository.DefaultListFilter()
			if deptRaw != "" {
				id, err := uuid.Parse(deptRaw)
				if err != nil {
					return fmt.Errorf("科室ID %q 无效: %w", deptRaw, err)
				}
				filter = filter.WithDepartment(id)
			}
			if status != "" {
				filter = filter.WithStatus(status)
			}
			if start != "" || end != "" {
				filter = filter.WithDateRange(start, end)
			}
			if limit > 0 {
				filter.Limit = limit
			}
			if offset > 0 {
				filter.Offset = offset
			}

			ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Scheduler.DefaultTimeout)
			defer cancel()

			shifts, err := repository.NewShiftRepository(app.db).List(ctx, filter)
			if err != nil {
				return err
			}
			return printJSON(shifts)
		},
	}

	cmd.Flags().String("department", "", "科室ID")
	cmd.Flags().String("status", "", "班次状态过滤")
	cmd.Flags().String("start", "", "开始日期 (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "结束日期 (YYYY-MM-DD)")
	cmd.Flags().Int("limit", 0, "每页数量")
	cmd.Flags().Int("offset", 0, "偏移量")

	return cmd
}

func departmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "departments",
		Short: "列出所有启用的科室",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Scheduler.DefaultTimeout)
			defer cancel()

			departments, err := repository.NewDepartmentRepository(app.db).ListActive(ctx)
			if err != nil {
				return err
			}
			return printJSON(departments)
		},
	}
}

func fairnessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fairness",
		Short: "分析日期范围内排班的工作量公平性",
		RunE: func(cmd *cobra.Command, args []string) error {
			deptRaw, _ := cmd.Flags().GetString("departments")
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")

			departments, err := parseDepartments(deptRaw)
			if err != nil {
				return err
			}
			_, startT, endT, err := parseDateRange(start, end)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Scheduler.DefaultTimeout)
			defer cancel()

			snapshot, err := app.snapshot.Load(ctx, departments, startT, endT)
			if err != nil {
				return err
			}

			metrics := stats.NewFairnessAnalyzer().Analyze(
				snapshot.Assignments, snapshot.Nurses, snapshot.Shifts,
			)
			return printJSON(metrics)
		},
	}

	cmd.Flags().String("departments", "", "科室ID列表，逗号分隔")
	cmd.Flags().String("start", "", "开始日期 (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "结束日期 (YYYY-MM-DD)")
	cmd.MarkFlagRequired("departments")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}
