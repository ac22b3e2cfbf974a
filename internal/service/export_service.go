package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"levelhub/internal/model"
	"levelhub/internal/policy"
	"levelhub/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// usedLogEventDuration 日历中每次上课事件的默认时长
const usedLogEventDuration = time.Hour

// ExportService 导出业务接口
//
// 导出内容以内存缓冲返回，由 Handler 设置下载响应头后写出。
type ExportService interface {
	// ExportAttendance 课程出勤表 (.xlsx)：每个注册一行，含总课时、未使用与已使用
	ExportAttendance(ctx context.Context, ident Identity, lessonID int64) (*bytes.Buffer, string, error)
	// ExportLogCalendar 注册的上课日历 (.ics)：每条已使用课时一个事件
	ExportLogCalendar(ctx context.Context, ident Identity, regID int64) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportAttendance 导出出勤表
// ═══════════════════════════════════════════════════════════
//
// 表头：| 学生 | 状态 | 时间安排 | 总课时 | 未使用 | 已使用 |
// 行按学生展示名（忽略大小写）排序，与注册列表一致

func (s *exportService) ExportAttendance(ctx context.Context, ident Identity, lessonID int64) (*bytes.Buffer, string, error) {
	// 1. 校验课程与权限
	lesson, err := loadLesson(ctx, s.repo, lessonID)
	if err != nil {
		return nil, "", err
	}
	role, err := RoleOfLesson(ctx, s.repo, ident, lesson)
	if err != nil {
		return nil, "", err
	}
	if !policy.Allow(policy.ActionAttendanceExport, policy.Subject{Role: role}) {
		return nil, "", ErrNotLessonManager
	}

	// 2. 注册与课时统计
	regs, err := s.repo.LessonReg.ListByLesson(ctx, lesson.ID)
	if err != nil {
		s.logger.Error("查询课程注册失败", zap.Int64("lesson_id", lesson.ID), zap.Error(err))
		return nil, "", err
	}
	ids := make([]int64, len(regs))
	for i := range regs {
		ids[i] = regs[i].ID
	}
	stats, err := s.repo.LessonRegLog.StatsByRegs(ctx, ids)
	if err != nil {
		s.logger.Error("统计课时失败", zap.Int64("lesson_id", lesson.ID), zap.Error(err))
		return nil, "", err
	}
	sort.SliceStable(regs, func(i, j int) bool {
		return strings.ToLower(regs[i].DisplayName()) < strings.ToLower(regs[j].DisplayName())
	})

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "出勤"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "B", 10)
	f.SetColWidth(sheetName, "C", "C", 30)
	f.SetColWidth(sheetName, "D", "F", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", lesson.Name)
	f.MergeCell(sheetName, "A1", "F1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"学生", "状态", "时间安排", "总课时", "未使用", "已使用"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "F2", headerStyle)

	// 数据行
	row := 3
	for i := range regs {
		reg := &regs[i]
		st := stats[reg.ID]
		f.SetCellValue(sheetName, cell("A", row), reg.DisplayName())
		f.SetCellValue(sheetName, cell("B", row), string(reg.Status))
		f.SetCellValue(sheetName, cell("C", row), reg.Daytimes)
		f.SetCellValue(sheetName, cell("D", row), st.Total)
		f.SetCellValue(sheetName, cell("E", row), st.Unused)
		f.SetCellValue(sheetName, cell("F", row), st.Total-st.Unused)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("attendance_%d.xlsx", lesson.ID)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportLogCalendar 导出上课日历
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportLogCalendar(ctx context.Context, ident Identity, regID int64) (*bytes.Buffer, string, error) {
	reg, lesson, err := loadReg(ctx, s.repo, regID)
	if err != nil {
		return nil, "", err
	}
	role, err := RoleOfLesson(ctx, s.repo, ident, lesson)
	if err != nil {
		return nil, "", err
	}
	subject := policy.Subject{Role: role}
	if reg.IsStudent(ident.UserID) {
		subject.Relations |= policy.RelRegStudent
	}
	if !policy.Allow(policy.ActionRegLogRead, subject) {
		return nil, "", ErrRegLogDenied
	}

	logs, err := s.repo.LessonRegLog.ListByReg(ctx, reg.ID)
	if err != nil {
		s.logger.Error("查询课时失败", zap.Int64("reg_id", reg.ID), zap.Error(err))
		return nil, "", err
	}

	cal := buildLogCalendar(lesson, reg, logs)
	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("lesson_%d_reg_%d.ics", lesson.ID, reg.ID)
	return buf, filename, nil
}

// buildLogCalendar 每条已使用的课时生成一个事件，UID 由课时 id 派生保证重复导入幂等
func buildLogCalendar(lesson *model.Lesson, reg *model.LessonReg, logs []model.LessonRegLog) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//levelhub//lesson log//EN")
	cal.SetXWRCalName(fmt.Sprintf("%s - %s", lesson.Name, reg.DisplayName()))

	for i := range logs {
		log := &logs[i]
		if log.UseTime == nil {
			continue
		}
		start := log.UseTime.UTC()
		event := cal.AddEvent(fmt.Sprintf("reglog-%d@levelhub", log.ID))
		event.SetDtStampTime(log.CreatedAt.UTC())
		event.SetStartAt(start)
		event.SetEndAt(start.Add(usedLogEventDuration))
		event.SetSummary(lesson.Name)
		if reg.Daytimes != "" {
			event.SetDescription(reg.Daytimes)
		}
	}
	return cal
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
