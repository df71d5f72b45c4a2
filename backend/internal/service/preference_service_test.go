package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"sga-horarios/backend/internal/dto"
	"sga-horarios/backend/internal/model"
)

func setupTestPreferenceService() (PreferenceService, *mockRepos) {
	repo, mocks := newMockRepository()
	return NewPreferenceService(repo, zap.NewNop()), mocks
}

// seedTeacher 创建关联到 instructorID 的教师账号
func seedTeacher(mocks *mockRepos, username string, instructorID int) string {
	u := &model.User{Username: username, FullName: username, Role: model.RoleTeacher, InstructorID: intPtr(instructorID), Active: true}
	_ = mocks.user.Create(context.Background(), u)
	return u.UserID
}

func TestPreferenceService_GetMine_Defaults(t *testing.T) {
	svc, mocks := setupTestPreferenceService()
	uid := seedTeacher(mocks, "ana", 7)

	resp, err := svc.GetMine(context.Background(), uid)
	if err != nil {
		t.Fatalf("GetMine 应成功: %v", err)
	}
	if resp.Shift != model.ShiftMixed || len(resp.PreferredDays) != 0 || len(resp.Unavailable) != 0 {
		t.Errorf("未填写时应返回默认偏好: %+v", resp)
	}
	if resp.InstructorID == nil || *resp.InstructorID != 7 || resp.UserID != uid {
		t.Errorf("应带出账号与教师编号: %+v", resp)
	}

	if _, err := svc.GetMine(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestPreferenceService_UpdateMine(t *testing.T) {
	svc, mocks := setupTestPreferenceService()
	ctx := context.Background()
	uid := seedTeacher(mocks, "ana", 7)
	_ = mocks.subject.Create(ctx, &model.CatalogSubject{Code: "MAT101", Name: "Cálculo I"})
	_ = mocks.subject.Create(ctx, &model.CatalogSubject{Code: "FIS101", Name: "Física"})

	resp, err := svc.UpdateMine(ctx, uid, &dto.UpdatePreferenceRequest{
		PreferredSubjects: []string{"FIS101", " MAT101 ", "FIS101"},
		Shift:             model.ShiftMorning,
		PreferredDays:     []string{"viernes", "miercoles", "Lunes", "lunes"},
	})
	if err != nil {
		t.Fatalf("UpdateMine 应成功: %v", err)
	}
	wantDays := []string{"Lunes", "Miércoles", "Viernes"}
	if len(resp.PreferredDays) != 3 {
		t.Fatalf("星期应去重，实际 %v", resp.PreferredDays)
	}
	for i, d := range wantDays {
		if resp.PreferredDays[i] != d {
			t.Errorf("PreferredDays[%d] = %q, want %q", i, resp.PreferredDays[i], d)
		}
	}
	if len(resp.PreferredSubjects) != 2 || resp.PreferredSubjects[0] != "FIS101" {
		t.Errorf("科目应去重并保持顺序: %v", resp.PreferredSubjects)
	}
	if resp.Summary.SubjectCount != 2 || resp.Summary.DayCount != 3 || resp.Summary.Shift != model.ShiftMorning {
		t.Errorf("摘要不正确: %+v", resp.Summary)
	}

	// 未指定时段时回到 mixto
	resp, err = svc.UpdateMine(ctx, uid, &dto.UpdatePreferenceRequest{})
	if err != nil {
		t.Fatalf("UpdateMine 应成功: %v", err)
	}
	if resp.Shift != model.ShiftMixed || len(resp.PreferredSubjects) != 0 {
		t.Errorf("整体覆盖后应为默认值: %+v", resp)
	}
}

func TestPreferenceService_UpdateMine_Errors(t *testing.T) {
	svc, mocks := setupTestPreferenceService()
	ctx := context.Background()
	uid := seedTeacher(mocks, "ana", 7)

	if _, err := svc.UpdateMine(ctx, uid, &dto.UpdatePreferenceRequest{PreferredDays: []string{"Funday"}}); !errors.Is(err, ErrInvalidDay) {
		t.Errorf("期望 ErrInvalidDay，实际: %v", err)
	}
	if _, err := svc.UpdateMine(ctx, uid, &dto.UpdatePreferenceRequest{PreferredSubjects: []string{"NOPE"}}); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("期望 ErrSubjectNotFound，实际: %v", err)
	}
	if len(mocks.preference.prefs) != 0 {
		t.Error("校验失败时不应保存")
	}
}

func TestPreferenceService_UnavailableLifecycle(t *testing.T) {
	svc, mocks := setupTestPreferenceService()
	ctx := context.Background()
	ana := seedTeacher(mocks, "ana", 7)
	luis := seedTeacher(mocks, "luis", 8)

	ut, err := svc.CreateUnavailable(ctx, ana, &dto.UnavailableTimeRequest{Day: "martes", StartTime: "14:00", EndTime: "16:00", Reason: " Consejo "})
	if err != nil {
		t.Fatalf("CreateUnavailable 应成功: %v", err)
	}
	if ut.Day != "Martes" || ut.Reason != "Consejo" || ut.ID == "" {
		t.Errorf("记录内容不正确: %+v", ut)
	}

	bad := []dto.UnavailableTimeRequest{
		{Day: "Funday", StartTime: "08:00", EndTime: "09:00"},
		{Day: "Lunes", StartTime: "10:00", EndTime: "09:00"},
		{Day: "Lunes", StartTime: "25:00", EndTime: "26:00"},
	}
	for _, req := range bad {
		if _, err := svc.CreateUnavailable(ctx, ana, &req); !errors.Is(err, ErrInvalidTimeSlot) {
			t.Errorf("%+v 期望 ErrInvalidTimeSlot，实际 %v", req, err)
		}
	}

	// 只能修改本人的记录
	req := &dto.UnavailableTimeRequest{Day: "Martes", StartTime: "14:00", EndTime: "17:00"}
	if _, err := svc.UpdateUnavailable(ctx, ut.ID, req, luis); !errors.Is(err, ErrUnavailableNotOwner) {
		t.Errorf("期望 ErrUnavailableNotOwner，实际: %v", err)
	}
	updated, err := svc.UpdateUnavailable(ctx, ut.ID, req, ana)
	if err != nil || updated.EndTime != "17:00" {
		t.Fatalf("UpdateUnavailable 应成功: %+v %v", updated, err)
	}

	mine, _ := svc.GetMine(ctx, ana)
	if len(mine.Unavailable) != 1 {
		t.Errorf("期望 1 条不可用时间，实际 %+v", mine.Unavailable)
	}
	byInstructor, err := svc.ForInstructor(ctx, 7)
	if err != nil || len(byInstructor.Unavailable) != 1 || *byInstructor.InstructorID != 7 {
		t.Errorf("ForInstructor 结果不正确: %+v %v", byInstructor, err)
	}

	if err := svc.DeleteUnavailable(ctx, ut.ID, luis); !errors.Is(err, ErrUnavailableNotOwner) {
		t.Errorf("期望 ErrUnavailableNotOwner，实际: %v", err)
	}
	if err := svc.DeleteUnavailable(ctx, ut.ID, ana); err != nil {
		t.Fatalf("DeleteUnavailable 应成功: %v", err)
	}
	if err := svc.DeleteUnavailable(ctx, ut.ID, ana); !errors.Is(err, ErrUnavailableNotFound) {
		t.Errorf("期望 ErrUnavailableNotFound，实际: %v", err)
	}
}

func TestPreferenceNotices(t *testing.T) {
	pref := &model.TeacherPreference{Shift: model.ShiftMorning, PreferredDays: []model.Weekday{model.Lunes}}
	entry := entryWith("H1", "Cálculo", 7, "A-1",
		ts(model.Lunes, "08:00", "10:00"),
		ts(model.Martes, "12:00", "14:00"),
		ts(model.Martes, "08:00", "09:00"),
	)

	got := preferenceNotices(pref, &entry)
	want := []string{
		"Martes no está entre los días preferidos del docente",
		"Martes 12:00-14:00 fuera del horario preferido del docente (manana)",
	}
	if len(got) != len(want) {
		t.Fatalf("期望 %d 条提示，实际 %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notice[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// mixto 且未设置星期时不提示
	if n := preferenceNotices(&model.TeacherPreference{Shift: model.ShiftMixed}, &entry); len(n) != 0 {
		t.Errorf("无偏好限制时不应提示: %v", n)
	}
}
