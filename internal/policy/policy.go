// Package policy 集中定义课程相关操作的授权规则。
//
// 授权只取决于两类事实：操作者在课程中的角色（Role），以及操作者与目标实体的关系（Relation），
// 例如是否为注册关联的学生、是否为请求的接收方。每个操作在 table 中声明允许的角色与关系，
// 请求生命周期与注册管理共用同一张表。
package policy

// Role 用户在某课程中的角色
type Role int

const (
	RoleNone Role = iota
	RoleManager
	RoleStudent
)

func (r Role) String() string {
	switch r {
	case RoleManager:
		return "manager"
	case RoleStudent:
		return "student"
	default:
		return "none"
	}
}

// Relation 操作者与目标实体的关系（位标记，可组合）
type Relation uint8

const (
	RelRegStudent Relation = 1 << iota // 目标注册关联的学生本人
	RelReceiver                        // 目标请求的接收方
	RelDismisser                       // 当前状态下有权忽略目标请求的一方
	RelSender                          // 目标消息/请求的发起方
	RelAdmin                           // 管理员身份
)

// Action 受控操作
type Action string

const (
	ActionEnroll  Action = "enroll"
	ActionJoin    Action = "join" // 不依赖角色，前置条件由生命周期检查
	ActionDeroll  Action = "deroll"
	ActionQuit    Action = "quit"
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionDismiss Action = "dismiss"

	ActionLessonUpdate     Action = "lesson.update"
	ActionLessonDelete     Action = "lesson.delete"
	ActionRegList          Action = "reg.list"
	ActionRegUpdate        Action = "reg.update"
	ActionRegDelete        Action = "reg.delete"
	ActionRegLogRead       Action = "reg_log.read"
	ActionRegLogWrite      Action = "reg_log.write"
	ActionAttendanceExport Action = "attendance.export"
	ActionMessagePost      Action = "message.post"
	ActionMessageDelete    Action = "message.delete"
)

// Subject 授权判定的输入
type Subject struct {
	Role      Role
	Relations Relation
}

// Has 是否具备指定关系
func (s Subject) Has(rel Relation) bool { return s.Relations&rel != 0 }

type grant struct {
	roles     []Role
	relations Relation
}

var table = map[Action]grant{
	ActionEnroll:  {roles: []Role{RoleManager}},
	ActionDeroll:  {roles: []Role{RoleManager}},
	ActionQuit:    {relations: RelRegStudent},
	ActionAccept:  {relations: RelReceiver},
	ActionReject:  {relations: RelReceiver},
	ActionDismiss: {relations: RelDismisser},

	ActionLessonUpdate:     {roles: []Role{RoleManager}},
	ActionLessonDelete:     {roles: []Role{RoleManager}},
	ActionRegList:          {roles: []Role{RoleManager, RoleStudent}},
	ActionRegUpdate:        {roles: []Role{RoleManager}},
	ActionRegDelete:        {roles: []Role{RoleManager}},
	ActionRegLogRead:       {roles: []Role{RoleManager}, relations: RelRegStudent},
	ActionRegLogWrite:      {roles: []Role{RoleManager}},
	ActionAttendanceExport: {roles: []Role{RoleManager}},
	ActionMessagePost:      {roles: []Role{RoleManager, RoleStudent}},
	ActionMessageDelete:    {relations: RelSender | RelAdmin},
}

// Allow 判断 subject 是否可以执行 action；未登记的操作一律拒绝
func Allow(action Action, subject Subject) bool {
	g, ok := table[action]
	if !ok {
		return false
	}
	for _, r := range g.roles {
		if subject.Role == r {
			return true
		}
	}
	return subject.Relations&g.relations != 0
}
