package handler

import (
	"github.com/gin-gonic/gin"

	"levelhub/internal/dto"
	"levelhub/internal/service"
	"levelhub/pkg/response"
)

// LessonHandler 课程模块 HTTP 处理器
type LessonHandler struct {
	lessonSvc service.LessonService
	pulser
}

// NewLessonHandler 创建 LessonHandler
func NewLessonHandler(lessonSvc service.LessonService, pulseSvc service.PulseService) *LessonHandler {
	return &LessonHandler{lessonSvc: lessonSvc, pulser: pulser{pulseSvc: pulseSvc}}
}

// CreateLesson 创建课程，创建者即教师
// POST /api/v1/lessons
func (h *LessonHandler) CreateLesson(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	lesson, err := h.lessonSvc.Create(c.Request.Context(), ident, &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.created(c, ident, lesson)
}

// GetLesson 获取课程详情
// GET /api/v1/lessons/:id
func (h *LessonHandler) GetLesson(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	lesson, err := h.lessonSvc.GetByID(c.Request.Context(), ident, id)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, lesson)
}

// UpdateLesson 更新课程（乐观锁）
// PUT /api/v1/lessons/:id
func (h *LessonHandler) UpdateLesson(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	lesson, err := h.lessonSvc.Update(c.Request.Context(), ident, id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, lesson)
}

// DeleteLesson 软删除课程
// DELETE /api/v1/lessons/:id
func (h *LessonHandler) DeleteLesson(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.lessonSvc.Delete(c.Request.Context(), ident, id); err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, nil)
}

// ListMyLessons 我教授与我学习的课程
// GET /api/v1/lessons/mine
func (h *LessonHandler) ListMyLessons(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	mine, err := h.lessonSvc.ListMine(c.Request.Context(), ident)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, mine)
}

// SearchLessons 按名称搜索开放中的课程（分页）
// GET /api/v1/lessons/search?q=xxx&page=1&page_size=20
func (h *LessonHandler) SearchLessons(c *gin.Context) {
	ident, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.LessonSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	list, total, err := h.lessonSvc.Search(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	h.ok(c, ident, response.NewPageData(list, total, req.GetPage(), req.GetPageSize()))
}
