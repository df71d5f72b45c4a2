package service

import (
	"errors"
	"fmt"
	"strings"

	"sga-horarios/backend/internal/model"
)

// ── 课表冲突检测 ──────────────────────────────────────────────
//
// 输入须由调用方预先按同一资源（同一教师或同一教室）过滤，检测器本身不做过滤。
// 同一天的两个时段按半开区间判断重叠：a.start < b.end && b.start < a.end，
// 首尾相接（10:00 结束 / 10:00 开始）不算冲突。
// ─────────────────────────────────────────────────────────────

// ErrInvalidTimeSlot 时段非法：时间无法解析、星期不在枚举内或时长不为正
var ErrInvalidTimeSlot = errors.New("时段无效")

// ConflictReport 一对重叠时段
type ConflictReport struct {
	EntryA   string        `json:"entry_a"`
	EntryB   string        `json:"entry_b"`
	SubjectA string        `json:"subject_a"`
	SubjectB string        `json:"subject_b"`
	Day      model.Weekday `json:"day"`
	RangeA   string        `json:"range_a"`
	RangeB   string        `json:"range_b"`
	// Resource 冲突所在资源，FindConflicts 不填写，由按资源检测的入口标注
	Resource string        `json:"resource,omitempty"`
	// Room 教室冲突时的教室编码
	Room     string        `json:"room,omitempty"`
}

// String 面向界面的冲突描述，教室冲突带上教室编码
func (c ConflictReport) String() string {
	if c.Room != "" {
		return fmt.Sprintf("Conflicto el %s en %s: %s (%s) y %s (%s)",
			c.Day, c.Room, c.SubjectA, c.RangeA, c.SubjectB, c.RangeB)
	}
	return fmt.Sprintf("Conflicto el %s: %s (%s) y %s (%s)", c.Day, c.SubjectA, c.RangeA, c.SubjectB, c.RangeB)
}

// samePair 两份报告描述的是否为同一对时段
func (c ConflictReport) samePair(o ConflictReport) bool {
	return c.EntryA == o.EntryA && c.EntryB == o.EntryB &&
		c.Day == o.Day && c.RangeA == o.RangeA && c.RangeB == o.RangeB
}

// tagReports 为报告标注资源
func tagReports(reports []ConflictReport, resource, room string) []ConflictReport {
	for i := range reports {
		reports[i].Resource = resource
		reports[i].Room = room
	}
	return reports
}

// FindConflicts 检测条目两两之间的时段重叠
// 报告顺序：外层条目下标、内层条目下标、A 的时段下标、B 的时段下标
func FindConflicts(entries []model.ScheduleEntry) []ConflictReport {
	reports := []ConflictReport{}
	if len(entries) < 2 {
		return reports
	}

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := &entries[i], &entries[j]
			for _, s1 := range a.Slots {
				for _, s2 := range b.Slots {
					if s1.Day != s2.Day || !slotsOverlap(s1, s2) {
						continue
					}
					reports = append(reports, ConflictReport{
						EntryA:   a.ID,
						EntryB:   b.ID,
						SubjectA: a.Subject.Name,
						SubjectB: b.Subject.Name,
						Day:      s1.Day,
						RangeA:   s1.Range(),
						RangeB:   s2.Range(),
					})
				}
			}
		}
	}
	return reports
}

// slotsOverlap 半开区间重叠判断
// 时间无法解析时退化为 "HH:MM" 字典序比较
func slotsOverlap(s1, s2 model.TimeSlot) bool {
	a1, a2, errA := s1.Bounds()
	b1, b2, errB := s2.Bounds()
	if errA != nil || errB != nil {
		return s1.StartTime < s2.EndTime && s2.StartTime < s1.EndTime
	}
	return a1 < b2 && b1 < a2
}

// ValidateSlots 校验条目的全部时段
func ValidateSlots(entry *model.ScheduleEntry) error {
	for i, s := range entry.Slots {
		if !s.Day.Valid() {
			return fmt.Errorf("%w: 条目 %s 第 %d 个时段星期 %q 不合法", ErrInvalidTimeSlot, entry.ID, i+1, s.Day)
		}
		start, end, err := s.Bounds()
		if err != nil {
			return fmt.Errorf("%w: 条目 %s 第 %d 个时段: %v", ErrInvalidTimeSlot, entry.ID, i+1, err)
		}
		if end <= start {
			return fmt.Errorf("%w: 条目 %s 第 %d 个时段结束时间 %s 不晚于开始时间 %s",
				ErrInvalidTimeSlot, entry.ID, i+1, s.EndTime, s.StartTime)
		}
	}
	return nil
}

// FilterByInstructor 筛选指定教师的条目，保持原顺序
func FilterByInstructor(entries []model.ScheduleEntry, instructorID int) []model.ScheduleEntry {
	out := make([]model.ScheduleEntry, 0)
	for _, e := range entries {
		if e.Instructor.ID == instructorID {
			out = append(out, e)
		}
	}
	return out
}

// FilterByRoom 筛选指定教室的条目，保持原顺序；编码比较不区分大小写
func FilterByRoom(entries []model.ScheduleEntry, roomCode string) []model.ScheduleEntry {
	out := make([]model.ScheduleEntry, 0)
	roomCode = strings.TrimSpace(roomCode)
	if roomCode == "" {
		return out
	}
	for _, e := range entries {
		if strings.EqualFold(e.Room.Code, roomCode) {
			out = append(out, e)
		}
	}
	return out
}

// DetectInstructorConflicts 过滤 + 校验 + 检测
func DetectInstructorConflicts(entries []model.ScheduleEntry, instructorID int) ([]ConflictReport, error) {
	reports, err := detectValidated(FilterByInstructor(entries, instructorID))
	if err != nil {
		return nil, err
	}
	return tagReports(reports, ConflictResourceInstructor, ""), nil
}

// DetectRoomConflicts 过滤 + 校验 + 检测
func DetectRoomConflicts(entries []model.ScheduleEntry, roomCode string) ([]ConflictReport, error) {
	filtered := FilterByRoom(entries, roomCode)
	reports, err := detectValidated(filtered)
	if err != nil {
		return nil, err
	}
	return tagReports(reports, ConflictResourceRoom, roomLabel(filtered, roomCode)), nil
}

// roomLabel 报告中使用条目自身登记的教室编码
func roomLabel(entries []model.ScheduleEntry, fallback string) string {
	if len(entries) > 0 {
		return entries[0].Room.Code
	}
	return strings.TrimSpace(fallback)
}

func detectValidated(entries []model.ScheduleEntry) ([]ConflictReport, error) {
	for i := range entries {
		if err := ValidateSlots(&entries[i]); err != nil {
			return nil, err
		}
	}
	return FindConflicts(entries), nil
}
