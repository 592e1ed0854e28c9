package registry

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/teachers", h.ListTeachers)
	r.GET("/teachers/:code", h.GetTeacher)
	r.GET("/subjects", h.ListSubjects)
	r.GET("/students/:rut", h.GetStudent)
}

func (h *Handler) GetTeacher(c *gin.Context) {
	t, err := h.svc.GetTeacher(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get teacher failed"})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "teacher not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": t.Code, "name": t.Name})
}

func (h *Handler) ListTeachers(c *gin.Context) {
	items, err := h.svc.ListTeachers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list teachers failed"})
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, t := range items {
		out = append(out, gin.H{"code": t.Code, "name": t.Name})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *Handler) ListSubjects(c *gin.Context) {
	items, err := h.svc.ListSubjects(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list subjects failed"})
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, s := range items {
		code := ""
		if s.Code.Valid {
			code = s.Code.String
		}
		out = append(out, gin.H{"subject_id": s.ID, "code": code, "name": s.Name})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.svc.GetStudent(c.Request.Context(), c.Param("rut"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get student failed"})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	degree := ""
	if st.DegreeProgram.Valid {
		degree = st.DegreeProgram.String
	}
	c.JSON(http.StatusOK, gin.H{"rut": st.Rut, "name": st.Name, "degree_program": degree})
}
