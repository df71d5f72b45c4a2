package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"sga-horarios/backend/internal/model"
	"sga-horarios/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEntries    = errors.New("课表中没有可导出的条目")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response
//   - XML：与静态文档同构，可重新导入
//   - Excel：Sheet "Horario" 为星期 × 时间段网格，Sheet "Cursos" 为条目明细
//   - ICS：指定教师的每个时段生成一个按周重复的 VEVENT
type ExportService interface {
	ExportXML(ctx context.Context) (*bytes.Buffer, string, error)
	ExportExcel(ctx context.Context) (*bytes.Buffer, string, error)
	ExportICS(ctx context.Context, instructorID int) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
// timezone 无法识别时退回 UTC
func NewExportService(repo *repository.Repository, timezone string, logger *zap.Logger) ExportService {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("无法加载时区，使用 UTC", zap.String("timezone", timezone), zap.Error(err))
		loc = time.UTC
	}
	return &exportService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// ────────────────────── ExportXML ──────────────────────

func (s *exportService) ExportXML(ctx context.Context) (*bytes.Buffer, string, error) {
	sys, err := loadSystem(ctx, s.repo, s.logger)
	if err != nil {
		return nil, "", err
	}

	data, err := SerializeScheduleXML(sys)
	if err != nil {
		s.logger.Error("序列化课表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return bytes.NewBuffer(data), ExportFilename(sys.Metadata.Period), nil
}

// ────────────────────── ExportExcel ──────────────────────

func (s *exportService) ExportExcel(ctx context.Context) (*bytes.Buffer, string, error) {
	sys, err := loadSystem(ctx, s.repo, s.logger)
	if err != nil {
		return nil, "", err
	}
	if len(sys.Entries) == 0 {
		return nil, "", ErrExportNoEntries
	}

	buf, err := renderWorkbook(sys)
	if err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, exportBaseName(sys.Metadata.Period) + ".xlsx", nil
}

// renderWorkbook 生成两张工作表：周网格与条目明细
func renderWorkbook(sys *model.ScheduleSystem) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	gridSheet := "Horario"
	idx, err := f.NewSheet(gridSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	// ── 周网格 ──
	matrix := buildMatrix(sys.Entries)
	lastCol := colName(len(matrix.Days))

	f.SetColWidth(gridSheet, "A", "A", 14)
	f.SetColWidth(gridSheet, "B", lastCol, 28)

	title := strings.TrimSpace(strings.Join(nonEmpty(sys.Metadata.Institution, sys.Metadata.Program, sys.Metadata.Period), " · "))
	if title == "" {
		title = "Horarios"
	}
	f.SetCellValue(gridSheet, "A1", title)
	f.MergeCell(gridSheet, "A1", cell(lastCol, 1))
	f.SetCellStyle(gridSheet, "A1", cell(lastCol, 1), headerStyle)

	row := 2
	f.SetCellValue(gridSheet, cell("A", row), "Hora")
	for i, day := range matrix.Days {
		f.SetCellValue(gridSheet, cell(colName(i+1), row), day)
	}
	f.SetCellStyle(gridSheet, cell("A", row), cell(lastCol, row), headerStyle)

	row = 3
	for _, r := range matrix.Ranges {
		f.SetCellValue(gridSheet, cell("A", row), r)
		for i, day := range matrix.Days {
			cells := matrix.Matrix[day][r]
			if len(cells) == 0 {
				continue
			}
			lines := make([]string, 0, len(cells))
			for _, c := range cells {
				lines = append(lines, fmt.Sprintf("%s %s\n%s\n%s", c.SubjectCode, c.SubjectName, c.InstructorName, c.RoomCode))
			}
			f.SetCellValue(gridSheet, cell(colName(i+1), row), strings.Join(lines, "\n\n"))
		}
		f.SetCellStyle(gridSheet, cell("B", row), cell(lastCol, row), cellStyle)
		row++
	}

	// ── 条目明细 ──
	listSheet := "Cursos"
	if _, err := f.NewSheet(listSheet); err != nil {
		return nil, err
	}
	headers := []string{"ID", "Código", "Materia", "Créditos", "Nivel", "Profesor", "Email",
		"Aula", "Edificio", "Capacidad", "Inscritos", "Estado", "Sesiones"}
	widths := []float64{8, 12, 32, 10, 12, 26, 28, 10, 20, 10, 10, 10, 40}
	for i, h := range headers {
		col := colName(i)
		f.SetColWidth(listSheet, col, col, widths[i])
		f.SetCellValue(listSheet, cell(col, 1), h)
	}
	f.SetCellStyle(listSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	for i, e := range sys.Entries {
		r := i + 2
		sessions := make([]string, 0, len(e.Slots))
		for _, sl := range e.Slots {
			sessions = append(sessions, fmt.Sprintf("%s %s", sl.Day, sl.Range()))
		}
		values := []interface{}{
			e.ID, e.Subject.Code, e.Subject.Name, e.Subject.Credits, e.Subject.Level,
			e.Instructor.Name, e.Instructor.Email, e.Room.Code, e.Room.Building, e.Room.Capacity,
			e.EnrolledCount, e.Status, strings.Join(sessions, "; "),
		}
		for j, v := range values {
			f.SetCellValue(listSheet, cell(colName(j), r), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ────────────────────── ExportICS ──────────────────────

func (s *exportService) ExportICS(ctx context.Context, instructorID int) (*bytes.Buffer, string, error) {
	records, err := s.repo.Schedule.ListByInstructor(ctx, instructorID)
	if err != nil {
		s.logger.Error("查询教师课表失败", zap.Int("instructor_id", instructorID), zap.Error(err))
		return nil, "", err
	}
	entries := toEntries(records)
	if len(entries) == 0 {
		return nil, "", ErrExportNoEntries
	}

	cal, err := BuildCalendar(entries, s.loc, s.now())
	if err != nil {
		s.logger.Error("生成日历失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return bytes.NewBufferString(cal.Serialize()), fmt.Sprintf("horario_docente_%d.ics", instructorID), nil
}

// BuildCalendar 每个时段生成一个按周重复的事件
// 首次发生日期取 ref 所在周（周一起算）中对应的星期
func BuildCalendar(entries []model.ScheduleEntry, loc *time.Location, ref time.Time) (*ics.Calendar, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//SGA//Horarios//ES")
	cal.SetXWRTimezone(loc.String())

	ref = ref.In(loc)
	// time.Weekday 周日为 0，换算为周一为 0
	offset := (int(ref.Weekday()) + 6) % 7
	monday := time.Date(ref.Year(), ref.Month(), ref.Day()-offset, 0, 0, 0, 0, loc)
	stamp := ref.UTC()

	for _, e := range entries {
		for i, slot := range e.Slots {
			start, end, err := slot.Bounds()
			if err != nil {
				return nil, fmt.Errorf("条目 %s 第 %d 个时段: %w", e.ID, i+1, err)
			}
			dayIdx := slot.Day.Index()
			if dayIdx < 0 {
				return nil, fmt.Errorf("%w: 条目 %s 星期 %q", ErrInvalidTimeSlot, e.ID, slot.Day)
			}

			date := monday.AddDate(0, 0, dayIdx)
			evt := cal.AddEvent(fmt.Sprintf("%s-%d@sga-horarios", e.ID, i))
			evt.SetDtStampTime(stamp)
			evt.SetStartAt(date.Add(time.Duration(start) * time.Minute))
			evt.SetEndAt(date.Add(time.Duration(end) * time.Minute))
			evt.SetSummary(strings.TrimSpace(e.Subject.Code + " " + e.Subject.Name))
			evt.SetLocation(strings.TrimSpace(e.Room.Code + " " + e.Room.Building))
			evt.SetDescription(fmt.Sprintf("Profesor: %s", e.Instructor.Name))
			evt.AddRrule("FREQ=WEEKLY")
		}
	}
	return cal, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
