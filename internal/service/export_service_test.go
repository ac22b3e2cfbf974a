package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"

	"levelhub/internal/model"
)

func TestExportAttendance(t *testing.T) {
	svc, st := setupTestServices()
	teacher := st.addUser("tina", "", "", false)
	bob := st.addUser("bob", "", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	hans := st.addReg(lesson.ID, nil, "hans", "Prince")
	st.addReg(lesson.ID, nil, "Anna", "Arendelle")
	st.addReg(lesson.ID, bob, "Bob", "B")
	st.addLogs(hans.ID, 25, 14)

	buf, filename, err := svc.Export.ExportAttendance(context.Background(), identOf(teacher), lesson.ID)
	if err != nil {
		t.Fatalf("ExportAttendance 应成功: %v", err)
	}
	if filename != fmt.Sprintf("attendance_%d.xlsx", lesson.ID) {
		t.Errorf("文件名异常: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出内容应为合法 xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("出勤")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("期望标题+表头+3 行数据，实际 %d 行", len(rows))
	}
	if rows[0][0] != "Piano" || rows[1][0] != "学生" {
		t.Errorf("标题或表头异常: %v / %v", rows[0], rows[1])
	}
	if rows[2][0] != "Anna Arendelle" || rows[4][0] != "hans Prince" {
		t.Errorf("数据行应按展示名忽略大小写排序: %v", rows[2:])
	}
	if got := rows[4][3:6]; got[0] != "25" || got[1] != "11" || got[2] != "14" {
		t.Errorf("期望课时 25/11/14，实际 %v", got)
	}
}

func TestExportAttendance_Forbidden(t *testing.T) {
	svc, st := setupTestServices()
	teacher := st.addUser("tina", "", "", false)
	bob := st.addUser("bob", "", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	st.addReg(lesson.ID, bob, "Bob", "B")

	_, _, err := svc.Export.ExportAttendance(context.Background(), identOf(bob), lesson.ID)
	assertErr(t, err, ErrNotLessonManager)
}

func TestExportLogCalendar(t *testing.T) {
	svc, st := setupTestServices()
	teacher := st.addUser("tina", "", "", false)
	bob := st.addUser("bob", "Bob", "B", false)
	eve := st.addUser("eve", "", "", false)
	lesson := st.addLesson(teacher.ID, "Piano")
	reg := st.addReg(lesson.ID, bob, "Bob", "B")
	st.addLogs(reg.ID, 5, 3)

	buf, filename, err := svc.Export.ExportLogCalendar(context.Background(), identOf(bob), reg.ID)
	if err != nil {
		t.Fatalf("学生本人应可导出日历: %v", err)
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名异常: %s", filename)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("导出内容应为合法 iCalendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 3 {
		t.Fatalf("只有已使用的课时生成事件，期望 3，实际 %d", len(events))
	}
	start, err := events[0].GetStartAt()
	if err != nil || !start.Equal(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("事件开始时间异常: %v, %v", start, err)
	}

	_, _, err = svc.Export.ExportLogCalendar(context.Background(), identOf(eve), reg.ID)
	assertErr(t, err, ErrRegLogDenied)
}

func TestBuildLogCalendar_StableUID(t *testing.T) {
	used := time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)
	lesson := &model.Lesson{ID: 1, Name: "Piano"}
	reg := &model.LessonReg{ID: 2, StudentFirstName: "Hans", StudentLastName: "Prince"}
	logs := []model.LessonRegLog{{ID: 42, LessonRegID: 2, UseTime: &used}, {ID: 43, LessonRegID: 2}}

	out := buildLogCalendar(lesson, reg, logs).Serialize()
	if !strings.Contains(out, "UID:reglog-42@levelhub") {
		t.Errorf("事件 UID 应由课时 id 派生:\n%s", out)
	}
	if strings.Contains(out, "reglog-43") {
		t.Error("未使用的课时不应生成事件")
	}
}
