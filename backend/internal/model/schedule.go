package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ── 星期 ──

// Weekday 课表文档中的星期，取值为西班牙语星期名
type Weekday string

const (
	Lunes     Weekday = "Lunes"
	Martes    Weekday = "Martes"
	Miercoles Weekday = "Miércoles"
	Jueves    Weekday = "Jueves"
	Viernes   Weekday = "Viernes"
	Sabado    Weekday = "Sábado"
	Domingo   Weekday = "Domingo"
)

// AllWeekdays 一周七天，按周一到周日排序
var AllWeekdays = []Weekday{Lunes, Martes, Miercoles, Jueves, Viernes, Sabado, Domingo}

// TeachingDays 周视图矩阵展示的教学日（周一到周六）
var TeachingDays = []Weekday{Lunes, Martes, Miercoles, Jueves, Viernes, Sabado}

// Valid 是否为枚举内的星期
func (d Weekday) Valid() bool {
	return d.Index() >= 0
}

// Index 星期序号（周一为 0），非法值返回 -1
func (d Weekday) Index() int {
	for i, w := range AllWeekdays {
		if w == d {
			return i
		}
	}
	return -1
}

// ParseWeekday 宽松解析星期名：忽略大小写与首尾空白，接受不带重音的写法
func ParseWeekday(s string) (Weekday, bool) {
	s = strings.TrimSpace(s)
	for _, w := range AllWeekdays {
		if strings.EqualFold(string(w), s) || strings.EqualFold(stripAccents(string(w)), s) {
			return w, true
		}
	}
	return Weekday(s), false
}

func stripAccents(s string) string {
	return strings.NewReplacer("é", "e", "á", "a").Replace(s)
}

// ── 时间 ──

// ParseClock 将 "HH:MM" 解析为当天的分钟数
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return 0, fmt.Errorf("时间格式应为 HH:MM: %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("小时取值非法: %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("分钟取值非法: %q", s)
	}
	return hour*60 + minute, nil
}

// FormatClock 将分钟数格式化为 "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ── 课表文档模型 ──

// TimeSlot 一次每周上课时段（sesion）
type TimeSlot struct {
	Day             Weekday `json:"day"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationMinutes int     `json:"duration_minutes"`
}

// Bounds 返回起止分钟数
func (s TimeSlot) Bounds() (start, end int, err error) {
	if start, err = ParseClock(s.StartTime); err != nil {
		return 0, 0, err
	}
	if end, err = ParseClock(s.EndTime); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Normalize 由起止时间重新计算时长，起止时间无法解析时保留原值
func (s *TimeSlot) Normalize() {
	start, end, err := s.Bounds()
	if err != nil {
		return
	}
	s.DurationMinutes = end - start
}

// Range 返回 "HH:MM-HH:MM" 形式的时间范围
func (s TimeSlot) Range() string {
	return s.StartTime + "-" + s.EndTime
}

// Subject 课表中的科目（materia）
type Subject struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Level   string `json:"level"`
}

// Instructor 授课教师（profesor）
type Instructor struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Room 教室（aula）
type Room struct {
	Code     string `json:"code"`
	Building string `json:"building"`
	Capacity int    `json:"capacity"`
	Type     string `json:"type"`
}

// 课表条目状态
const (
	EntryActive   = "activo"
	EntryInactive = "inactivo"
)

// ScheduleEntry 一条课程安排（horario）
type ScheduleEntry struct {
	ID            string     `json:"id"`
	Subject       Subject    `json:"subject"`
	Instructor    Instructor `json:"instructor"`
	Room          Room       `json:"room"`
	Slots         []TimeSlot `json:"slots"`
	EnrolledCount int        `json:"enrolled_count"`
	Status        string     `json:"status"`
}

// NormalizeSlots 重新计算全部时段时长
func (e *ScheduleEntry) NormalizeSlots() {
	for i := range e.Slots {
		e.Slots[i].Normalize()
	}
}

// WeeklyMinutes 每周总课时（分钟）
func (e *ScheduleEntry) WeeklyMinutes() int {
	total := 0
	for _, s := range e.Slots {
		total += s.DurationMinutes
	}
	return total
}

// HasDay 是否有时段落在指定星期
func (e *ScheduleEntry) HasDay(day Weekday) bool {
	for _, s := range e.Slots {
		if s.Day == day {
			return true
		}
	}
	return false
}

// ScheduleMetadata 课表文档元数据，均为自由文本
type ScheduleMetadata struct {
	Institution string `json:"institution"`
	Faculty     string `json:"faculty"`
	Program     string `json:"program"`
	Period      string `json:"period"`
	UpdatedAt   string `json:"updated_at"`
}

// ScheduleSystem 课表文档根节点（sistema_horarios）
type ScheduleSystem struct {
	Metadata ScheduleMetadata `json:"metadata"`
	Entries  []ScheduleEntry  `json:"entries"`
}

// FindEntry 按 ID 查找条目
func (s *ScheduleSystem) FindEntry(id string) (*ScheduleEntry, bool) {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			return &s.Entries[i], true
		}
	}
	return nil, false
}

// Clone 深拷贝，调用方可自由修改返回值
func (s *ScheduleSystem) Clone() *ScheduleSystem {
	out := &ScheduleSystem{
		Metadata: s.Metadata,
		Entries:  make([]ScheduleEntry, len(s.Entries)),
	}
	for i, e := range s.Entries {
		e.Slots = append([]TimeSlot(nil), e.Slots...)
		if e.Slots == nil {
			e.Slots = []TimeSlot{}
		}
		out.Entries[i] = e
	}
	return out
}
