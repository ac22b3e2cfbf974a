package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"levelhub/config"
	"levelhub/internal/model"
	"levelhub/internal/repository"
	pkgerrors "levelhub/pkg/errors"
	"levelhub/pkg/jwt"
)

// ── 内存数据源 ──
// 所有 mock repo 共享同一个 memStore，以便模拟关联预加载与唯一索引

type memStore struct {
	nextID         int64
	users          map[int64]*model.User
	lessons        map[int64]*model.Lesson
	regs           map[int64]*model.LessonReg
	logs           map[int64]*model.LessonRegLog
	requests       map[int64]*model.LessonRequest
	messages       map[int64]*model.Message
	lessonMessages []model.LessonMessage
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*model.User),
		lessons:  make(map[int64]*model.Lesson),
		regs:     make(map[int64]*model.LessonReg),
		logs:     make(map[int64]*model.LessonRegLog),
		requests: make(map[int64]*model.LessonRequest),
		messages: make(map[int64]*model.Message),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) user(id int64) *model.User {
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (s *memStore) lesson(id int64) *model.Lesson {
	if l, ok := s.lessons[id]; ok {
		cp := *l
		cp.Teacher = s.user(l.TeacherID)
		return &cp
	}
	return nil
}

// newTestRepo 组装未绑定数据库的 Repository，BeginTx 返回 nil
func newTestRepo() (*repository.Repository, *memStore) {
	st := newMemStore()
	repo := &repository.Repository{
		User:          &mockUserRepo{st: st},
		Lesson:        &mockLessonRepo{st: st},
		LessonReg:     &mockLessonRegRepo{st: st},
		LessonRegLog:  &mockLessonRegLogRepo{st: st},
		LessonRequest: &mockLessonRequestRepo{st: st},
		Message:       &mockMessageRepo{st: st},
	}
	return repo, st
}

// setupTestServices 以内存仓储组装全部 Service
func setupTestServices() (*Service, *memStore) {
	repo, st := newTestRepo()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}
	svc := NewService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, zap.NewNop())
	return svc, st
}

func identOf(u *model.User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin}
}

// assertErr 断言 err 为期望的业务错误
func assertErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("期望错误 %v，实际: %v", want, err)
	}
}

// ── 测试数据构造 ──

func (s *memStore) addUser(username, first, last string, admin bool) *model.User {
	u := &model.User{ID: s.id(), Username: username, FirstName: first, LastName: last, IsAdmin: admin}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addLesson(teacherID int64, name string) *model.Lesson {
	l := &model.Lesson{ID: s.id(), TeacherID: teacherID, Name: name, Status: model.LessonActive}
	l.Version = 1
	s.lessons[l.ID] = l
	return l
}

func (s *memStore) addReg(lessonID int64, student *model.User, first, last string) *model.LessonReg {
	r := &model.LessonReg{ID: s.id(), LessonID: lessonID, StudentFirstName: first, StudentLastName: last, Status: model.RegActive}
	if student != nil {
		sid := student.ID
		r.StudentID = &sid
	}
	s.regs[r.ID] = r
	return r
}

func (s *memStore) countRequests(filter func(r *model.LessonRequest) bool) int {
	n := 0
	for _, r := range s.requests {
		if filter(r) {
			n++
		}
	}
	return n
}

// ── Mock UserRepository ──

type mockUserRepo struct{ st *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.st.users {
		if strings.EqualFold(u.Username, user.Username) {
			return repository.ErrDuplicateKey
		}
	}
	user.ID = m.st.id()
	user.CreatedAt = time.Now().UTC()
	cp := *user
	m.st.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if u := m.st.user(id); u != nil {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for id, u := range m.st.users {
		if strings.EqualFold(u.Username, username) {
			return m.st.user(id), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Search(_ context.Context, phrase string, excludeID int64, limit int) ([]model.User, error) {
	phrase = strings.ToLower(phrase)
	var result []model.User
	for _, u := range m.st.users {
		if u.IsAdmin || u.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), phrase) ||
			strings.Contains(strings.ToLower(u.FirstName), phrase) ||
			strings.Contains(strings.ToLower(u.LastName), phrase) {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ── Mock LessonRepository ──

type mockLessonRepo struct{ st *memStore }

func (m *mockLessonRepo) Create(_ context.Context, lesson *model.Lesson) error {
	lesson.ID = m.st.id()
	lesson.CreatedAt = time.Now().UTC()
	cp := *lesson
	cp.Teacher = nil
	m.st.lessons[lesson.ID] = &cp
	return nil
}

func (m *mockLessonRepo) GetByID(_ context.Context, id int64) (*model.Lesson, error) {
	if l := m.st.lesson(id); l != nil {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonRepo) GetByIDForUpdate(_ context.Context, id int64) (*model.Lesson, error) {
	if l, ok := m.st.lessons[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonRepo) ListByIDs(_ context.Context, ids []int64) ([]model.Lesson, error) {
	var result []model.Lesson
	for _, id := range ids {
		if l := m.st.lesson(id); l != nil && !l.IsDeleted() {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (m *mockLessonRepo) ListByTeacher(_ context.Context, teacherID int64) ([]model.Lesson, error) {
	var result []model.Lesson
	for id, l := range m.st.lessons {
		if l.TeacherID == teacherID && !l.IsDeleted() {
			result = append(result, *m.st.lesson(id))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockLessonRepo) Search(_ context.Context, phrase string, offset, limit int) ([]model.Lesson, int64, error) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	var all []model.Lesson
	for id, l := range m.st.lessons {
		if l.Status == model.LessonActive && strings.Contains(strings.ToLower(l.Name), phrase) {
			all = append(all, *m.st.lesson(id))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Lesson{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockLessonRepo) Update(_ context.Context, lesson *model.Lesson) error {
	stored, ok := m.st.lessons[lesson.ID]
	if !ok || stored.Version != lesson.Version {
		return pkgerrors.ErrOptimisticLock
	}
	lesson.Version++
	cp := *lesson
	cp.Teacher = nil
	m.st.lessons[lesson.ID] = &cp
	return nil
}

// ── Mock LessonRegRepository ──

type mockLessonRegRepo struct{ st *memStore }

func (m *mockLessonRegRepo) load(r *model.LessonReg) *model.LessonReg {
	cp := *r
	cp.Lesson = m.st.lesson(r.LessonID)
	if r.StudentID != nil {
		cp.Student = m.st.user(*r.StudentID)
	}
	return &cp
}

// Create 模拟 uq_lesson_regs_active 部分唯一索引
func (m *mockLessonRegRepo) Create(_ context.Context, reg *model.LessonReg) error {
	if reg.StudentID != nil && reg.Status == model.RegActive {
		for _, r := range m.st.regs {
			if r.LessonID == reg.LessonID && r.StudentID != nil && *r.StudentID == *reg.StudentID && r.Status == model.RegActive {
				return repository.ErrDuplicateKey
			}
		}
	}
	reg.ID = m.st.id()
	reg.CreatedAt = time.Now().UTC()
	cp := *reg
	cp.Lesson, cp.Student = nil, nil
	m.st.regs[reg.ID] = &cp
	return nil
}

func (m *mockLessonRegRepo) GetByID(_ context.Context, id int64) (*model.LessonReg, error) {
	if r, ok := m.st.regs[id]; ok {
		return m.load(r), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonRegRepo) GetActive(_ context.Context, lessonID, studentID int64) (*model.LessonReg, error) {
	for _, r := range m.st.regs {
		if r.LessonID == lessonID && r.IsStudent(studentID) && r.Status == model.RegActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonRegRepo) ListByLesson(_ context.Context, lessonID int64) ([]model.LessonReg, error) {
	var result []model.LessonReg
	for _, r := range m.st.regs {
		if r.LessonID == lessonID && r.Status != model.RegDeleted {
			reg := m.load(r)
			reg.Lesson = nil
			result = append(result, *reg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockLessonRegRepo) ListActiveByStudent(_ context.Context, studentID int64) ([]model.LessonReg, error) {
	var result []model.LessonReg
	for _, r := range m.st.regs {
		if r.IsStudent(studentID) && r.Status == model.RegActive {
			result = append(result, *m.load(r))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockLessonRegRepo) CountActiveByLessons(_ context.Context, lessonIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64)
	for _, id := range lessonIDs {
		for _, r := range m.st.regs {
			if r.LessonID == id && r.Status == model.RegActive {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (m *mockLessonRegRepo) UpdateStatus(_ context.Context, id int64, status model.RegStatus) error {
	if r, ok := m.st.regs[id]; ok {
		r.Status = status
	}
	return nil
}

func (m *mockLessonRegRepo) UpdateDetails(_ context.Context, reg *model.LessonReg) error {
	if r, ok := m.st.regs[reg.ID]; ok {
		r.Daytimes = reg.Daytimes
		r.Data = reg.Data
	}
	return nil
}

// ── Mock LessonRegLogRepository ──

type mockLessonRegLogRepo struct{ st *memStore }

func (m *mockLessonRegLogRepo) BatchCreate(_ context.Context, logs []model.LessonRegLog) error {
	for i := range logs {
		logs[i].ID = m.st.id()
		logs[i].CreatedAt = time.Now().UTC()
		cp := logs[i]
		m.st.logs[cp.ID] = &cp
	}
	return nil
}

func (m *mockLessonRegLogRepo) GetByID(_ context.Context, id int64) (*model.LessonRegLog, error) {
	if l, ok := m.st.logs[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonRegLogRepo) ListByReg(_ context.Context, regID int64) ([]model.LessonRegLog, error) {
	var result []model.LessonRegLog
	for _, l := range m.st.logs {
		if l.LessonRegID == regID {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockLessonRegLogRepo) StatsByRegs(_ context.Context, regIDs []int64) (map[int64]model.RegLogStats, error) {
	stats := make(map[int64]model.RegLogStats)
	for _, id := range regIDs {
		for _, l := range m.st.logs {
			if l.LessonRegID != id {
				continue
			}
			st := stats[id]
			st.LessonRegID = id
			st.Total++
			if l.UseTime == nil {
				st.Unused++
			}
			stats[id] = st
		}
	}
	return stats, nil
}

func (m *mockLessonRegLogRepo) Update(_ context.Context, log *model.LessonRegLog) error {
	if l, ok := m.st.logs[log.ID]; ok {
		l.UseTime = log.UseTime
		l.Data = log.Data
	}
	return nil
}

func (m *mockLessonRegLogRepo) Delete(_ context.Context, id int64) error {
	delete(m.st.logs, id)
	return nil
}

// ── Mock LessonRequestRepository ──

type mockLessonRequestRepo struct{ st *memStore }

func (m *mockLessonRequestRepo) load(r *model.LessonRequest) *model.LessonRequest {
	cp := *r
	cp.Sender = m.st.user(r.SenderID)
	cp.Receiver = m.st.user(r.ReceiverID)
	cp.Lesson = m.st.lesson(r.LessonID)
	return &cp
}

// Create 模拟 uq_lesson_requests_pending 部分唯一索引
func (m *mockLessonRequestRepo) Create(_ context.Context, req *model.LessonRequest) error {
	if req.IsPending() {
		for _, r := range m.st.requests {
			if r.IsPending() && r.SenderID == req.SenderID && r.ReceiverID == req.ReceiverID && r.LessonID == req.LessonID {
				return repository.ErrDuplicateKey
			}
		}
	}
	req.ID = m.st.id()
	req.CreatedAt = time.Now().UTC()
	cp := *req
	cp.Sender, cp.Receiver, cp.Lesson = nil, nil, nil
	m.st.requests[req.ID] = &cp
	return nil
}

func (m *mockLessonRequestRepo) GetByID(_ context.Context, id int64) (*model.LessonRequest, error) {
	if r, ok := m.st.requests[id]; ok {
		return m.load(r), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonRequestRepo) GetByIDForUpdate(_ context.Context, id int64) (*model.LessonRequest, error) {
	if r, ok := m.st.requests[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLessonRequestRepo) ExistsPending(_ context.Context, senderID, receiverID, lessonID int64) (bool, error) {
	for _, r := range m.st.requests {
		if r.IsPending() && r.SenderID == senderID && r.ReceiverID == receiverID && r.LessonID == lessonID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLessonRequestRepo) ListVisible(_ context.Context, userID int64) ([]model.LessonRequest, error) {
	var result []model.LessonRequest
	for _, r := range m.st.requests {
		if r.VisibleTo(userID) {
			result = append(result, *m.load(r))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockLessonRequestRepo) MarkRead(_ context.Context, ids []int64) error {
	for _, id := range ids {
		if r, ok := m.st.requests[id]; ok {
			r.IsNew = false
		}
	}
	return nil
}

func (m *mockLessonRequestRepo) CountNotices(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, r := range m.st.requests {
		if r.IsNoticeFor(userID) {
			n++
		}
	}
	return n, nil
}

func (m *mockLessonRequestRepo) Transition(_ context.Context, id int64, from, to model.RequestStatus) error {
	r, ok := m.st.requests[id]
	if !ok || r.Status != from {
		return repository.ErrNoRowsAffected
	}
	r.Status = to
	r.IsNew = true
	return nil
}

func (m *mockLessonRequestRepo) Delete(_ context.Context, id int64) error {
	delete(m.st.requests, id)
	return nil
}

// ── Mock MessageRepository ──

type mockMessageRepo struct{ st *memStore }

func (m *mockMessageRepo) Create(_ context.Context, msg *model.Message) error {
	msg.ID = m.st.id()
	msg.CreatedAt = time.Now().UTC()
	cp := *msg
	cp.Sender = nil
	m.st.messages[msg.ID] = &cp
	return nil
}

func (m *mockMessageRepo) BatchCreateLessonMessages(_ context.Context, lms []model.LessonMessage) error {
	for i := range lms {
		lms[i].ID = m.st.id()
		m.st.lessonMessages = append(m.st.lessonMessages, lms[i])
	}
	return nil
}

func (m *mockMessageRepo) GetByID(_ context.Context, id int64) (*model.Message, error) {
	if msg, ok := m.st.messages[id]; ok {
		cp := *msg
		cp.Sender = m.st.user(msg.SenderID)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMessageRepo) ListByLessons(_ context.Context, lessonIDs []int64) ([]model.LessonMessage, error) {
	wanted := make(map[int64]bool, len(lessonIDs))
	for _, id := range lessonIDs {
		wanted[id] = true
	}
	var result []model.LessonMessage
	for _, lm := range m.st.lessonMessages {
		if !wanted[lm.LessonID] {
			continue
		}
		msg, ok := m.st.messages[lm.MessageID]
		if !ok {
			continue
		}
		cp := lm
		mcp := *msg
		mcp.Sender = m.st.user(msg.SenderID)
		cp.Message = &mcp
		cp.Lesson = m.st.lesson(lm.LessonID)
		result = append(result, cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].MessageID != result[j].MessageID {
			return result[i].MessageID > result[j].MessageID
		}
		return result[i].LessonID < result[j].LessonID
	})
	return result, nil
}

func (m *mockMessageRepo) Delete(_ context.Context, id int64) error {
	delete(m.st.messages, id)
	kept := m.st.lessonMessages[:0]
	for _, lm := range m.st.lessonMessages {
		if lm.MessageID != id {
			kept = append(kept, lm)
		}
	}
	m.st.lessonMessages = kept
	return nil
}
