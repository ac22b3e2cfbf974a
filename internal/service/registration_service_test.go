package service

import (
	"context"
	"testing"
	"time"

	"levelhub/internal/dto"
	"levelhub/internal/model"
)

// addLogs 为注册添加 total 条课时，其中 used 条已使用
func (s *memStore) addLogs(regID int64, total, used int) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	for i := 0; i < total; i++ {
		log := &model.LessonRegLog{ID: s.id(), LessonRegID: regID}
		if i < used {
			t := base.AddDate(0, 0, 7*i)
			log.UseTime = &t
		}
		s.logs[log.ID] = log
	}
}

// ── List ──

func TestRegistrationService_List_AttendanceStats(t *testing.T) {
	svc, st := setupTestServices()
	teacher := st.addUser("tina", "", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	reg := st.addReg(lesson.ID, nil, "Hans", "Prince")
	empty := st.addReg(lesson.ID, nil, "Anna", "Arendelle")
	st.addLogs(reg.ID, 25, 14)

	list, err := svc.Registration.List(context.Background(), identOf(teacher), lesson.ID)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 条注册，实际 %d", len(list))
	}
	for _, r := range list {
		if r.Total == nil || r.Unused == nil {
			t.Fatalf("管理者应看到课时统计: %+v", r)
		}
		switch r.ID {
		case reg.ID:
			if *r.Total != 25 || *r.Unused != 11 {
				t.Errorf("期望 total=25 unused=11，实际 total=%d unused=%d", *r.Total, *r.Unused)
			}
		case empty.ID:
			if *r.Total != 0 || *r.Unused != 0 {
				t.Errorf("无课时的注册统计应为 0，实际 total=%d unused=%d", *r.Total, *r.Unused)
			}
		}
	}
}

func TestRegistrationService_List_SortedCaseInsensitive(t *testing.T) {
	svc, st := setupTestServices()
	teacher := st.addUser("tina", "", "", false)
	zed := st.addUser("zed", "zoe", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	st.addReg(lesson.ID, nil, "bob", "")
	st.addReg(lesson.ID, nil, "Charlie", "")
	// 关联账号的展示名优先于手填姓名
	st.addReg(lesson.ID, zed, "Aaron", "")
	st.addReg(lesson.ID, nil, "alice", "")

	list, err := svc.Registration.List(context.Background(), identOf(teacher), lesson.ID)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	want := []string{"alice", "bob", "Charlie", "zoe"}
	if len(list) != len(want) {
		t.Fatalf("期望 %d 条，实际 %d", len(want), len(list))
	}
	for i, name := range want {
		if list[i].DisplayName != name {
			t.Errorf("第 %d 位期望 %s，实际 %s", i, name, list[i].DisplayName)
		}
	}
}

func TestRegistrationService_List_StudentSeesOwnActive(t *testing.T) {
	svc, st := setupTestServices()
	teacher := st.addUser("tina", "", "", false)
	bob := st.addUser("bob", "Bob", "B", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	own := st.addReg(lesson.ID, bob, "Bob", "B")
	st.addReg(lesson.ID, nil, "Other", "Student")
	st.addLogs(own.ID, 3, 1)

	list, err := svc.Registration.List(context.Background(), identOf(bob), lesson.ID)
	if err != nil {
		t.Fatalf("学生 List 应成功: %v", err)
	}
	if len(list) != 1 || list[0].ID != own.ID {
		t.Fatalf("学生只应看到自己的注册，实际: %+v", list)
	}
	if list[0].Total != nil || list[0].Unused != nil {
		t.Error("学生不应看到课时统计")
	}
}

func TestRegistrationService_List_NoRole(t *testing.T) {
	svc, st := setupTestServices()
	teacher := st.addUser("tina", "", "", false)
	eve := st.addUser("eve", "", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")

	_, err := svc.Registration.List(context.Background(), identOf(eve), lesson.ID)
	assertErr(t, err, ErrNoLessonRole)

	_, err = svc.Registration.List(context.Background(), identOf(teacher), 9999)
	assertErr(t, err, ErrLessonNotFound)
}

func TestRegistrationService_List_ExcludesDeleted(t *testing.T) {
	svc, st := setupTestServices()
	ctx := context.Background()
	teacher := st.addUser("tina", "", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	reg := st.addReg(lesson.ID, nil, "Hans", "Prince")
	st.addReg(lesson.ID, nil, "Anna", "A")

	if err := svc.Registration.Delete(ctx, identOf(teacher), reg.ID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	list, _ := svc.Registration.List(ctx, identOf(teacher), lesson.ID)
	if len(list) != 1 {
		t.Errorf("已删除的注册不应出现在列表中，实际 %d 条", len(list))
	}
	assertErr(t, svc.Registration.Delete(ctx, identOf(teacher), reg.ID), ErrRegNotFound)
}

// ── Update ──

func TestRegistrationService_Update_WithLogs(t *testing.T) {
	svc, st := setupTestServices()
	teacher := st.addUser("tina", "", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	reg := st.addReg(lesson.ID, nil, "Hans", "Prince")
	st.addLogs(reg.ID, 3, 3)
	logs, _ := (&mockLessonRegLogRepo{st: st}).ListByReg(context.Background(), reg.ID)

	used := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	daytimes := "Wed 17:00"
	resp, err := svc.Registration.Update(context.Background(), identOf(teacher), reg.ID, &dto.UpdateRegistrationRequest{
		Daytimes: &daytimes,
		Data:     map[string]interface{}{"level": "B1"},
		Logs: &dto.RegLogChanges{
			Create: []dto.CreateRegLogItem{{UseTime: &used}, {}},
			Update: []dto.UpdateRegLogItem{{LogID: logs[0].ID, ClearUseTime: true}},
			Delete: []int64{logs[1].ID},
		},
	})
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.Registration.Daytimes != daytimes || resp.Registration.Data["level"] != "B1" {
		t.Errorf("注册字段未更新: %+v", resp.Registration)
	}
	if len(resp.Logs) != 4 {
		t.Fatalf("期望 4 条课时（3-1+2），实际 %d", len(resp.Logs))
	}
	if resp.Logs[0].ID != logs[0].ID || resp.Logs[0].UseTime != nil {
		t.Errorf("第一条课时应被清空使用时间: %+v", resp.Logs[0])
	}
	var found bool
	for _, l := range resp.Logs {
		if l.UseTime != nil && *l.UseTime == "2026-03-01T08:30:00Z" {
			found = true
		}
	}
	if !found {
		t.Error("新建课时的使用时间应以 UTC 保存")
	}
}

func TestRegistrationService_Update_ForeignLogRejected(t *testing.T) {
	svc, st := setupTestServices()
	teacher := st.addUser("tina", "", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	reg := st.addReg(lesson.ID, nil, "Hans", "Prince")
	other := st.addReg(lesson.ID, nil, "Anna", "A")
	st.addLogs(other.ID, 1, 0)
	var foreignID int64
	for id := range st.logs {
		foreignID = id
	}

	daytimes := "changed"
	_, err := svc.Registration.Update(context.Background(), identOf(teacher), reg.ID, &dto.UpdateRegistrationRequest{
		Daytimes: &daytimes,
		Logs: &dto.RegLogChanges{
			Create: []dto.CreateRegLogItem{{}},
			Delete: []int64{foreignID},
		},
	})
	assertErr(t, err, ErrRegLogNotFound)

	if st.regs[reg.ID].Daytimes == daytimes {
		t.Error("校验失败时不应修改注册")
	}
	if len(st.logs) != 1 {
		t.Errorf("校验失败时不应增删课时，实际 %d 条", len(st.logs))
	}
}

func TestRegistrationService_Update_StudentForbidden(t *testing.T) {
	svc, st := setupTestServices()
	teacher := st.addUser("tina", "", "", false)
	bob := st.addUser("bob", "", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	reg := st.addReg(lesson.ID, bob, "Bob", "B")

	daytimes := "any"
	_, err := svc.Registration.Update(context.Background(), identOf(bob), reg.ID, &dto.UpdateRegistrationRequest{Daytimes: &daytimes})
	assertErr(t, err, ErrNotLessonManager)
}

// ── Logs ──

func TestRegistrationService_Logs(t *testing.T) {
	svc, st := setupTestServices()
	ctx := context.Background()
	teacher := st.addUser("tina", "", "", false)
	bob := st.addUser("bob", "", "", false)
	eve := st.addUser("eve", "", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	reg := st.addReg(lesson.ID, bob, "Bob", "B")
	st.addReg(lesson.ID, eve, "Eve", "E")

	created, err := svc.Registration.CreateLogs(ctx, identOf(teacher), reg.ID, &dto.CreateRegLogsRequest{
		Logs: []dto.CreateRegLogItem{{}, {}, {}},
	})
	if err != nil {
		t.Fatalf("CreateLogs 应成功: %v", err)
	}
	if len(created) != 3 || created[0].ID == 0 || created[0].LessonRegID != reg.ID {
		t.Fatalf("应返回带主键的新课时，实际: %+v", created)
	}

	_, err = svc.Registration.CreateLogs(ctx, identOf(bob), reg.ID, &dto.CreateRegLogsRequest{Logs: []dto.CreateRegLogItem{{}}})
	assertErr(t, err, ErrNotLessonManager)

	logs, err := svc.Registration.ListLogs(ctx, identOf(bob), reg.ID)
	if err != nil {
		t.Fatalf("学生本人应可查看课时: %v", err)
	}
	if len(logs) != 3 || logs[0].ID > logs[1].ID {
		t.Errorf("课时应按 id 升序返回，实际: %+v", logs)
	}

	// 同课程的其他学生无权查看
	_, err = svc.Registration.ListLogs(ctx, identOf(eve), reg.ID)
	assertErr(t, err, ErrRegLogDenied)

	used := time.Date(2026, 2, 2, 15, 0, 0, 0, time.UTC)
	updated, err := svc.Registration.UpdateLog(ctx, identOf(teacher), created[0].ID, &dto.UpdateRegLogRequest{UseTime: &used})
	if err != nil {
		t.Fatalf("UpdateLog 应成功: %v", err)
	}
	if updated.UseTime == nil || *updated.UseTime != "2026-02-02T15:00:00Z" {
		t.Errorf("使用时间未更新: %+v", updated)
	}
	updated, _ = svc.Registration.UpdateLog(ctx, identOf(teacher), created[0].ID, &dto.UpdateRegLogRequest{ClearUseTime: true})
	if updated.UseTime != nil {
		t.Error("clear_use_time 应清空使用时间")
	}

	if err := svc.Registration.DeleteLog(ctx, identOf(teacher), created[1].ID); err != nil {
		t.Fatalf("DeleteLog 应成功: %v", err)
	}
	assertErr(t, svc.Registration.DeleteLog(ctx, identOf(teacher), created[1].ID), ErrRegLogNotFound)
	assertErr(t, svc.Registration.DeleteLog(ctx, identOf(bob), created[2].ID), ErrNotLessonManager)
}
