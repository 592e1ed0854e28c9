package suggestions

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/suggestions", h.Suggest)
	r.POST("/suggestions/retrain", h.Retrain)
}

func (h *Handler) Suggest(c *gin.Context) {
	subjectID, err := strconv.ParseInt(c.Query("subject_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_ARGUMENT", "message": "subject_id is required"}})
		return
	}
	topN := 10
	if v := c.Query("top"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			topN = n
		}
	}
	items, version, err := h.svc.Suggest(c.Request.Context(), subjectID, topN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "version": version})
}

func (h *Handler) Retrain(c *gin.Context) {
	snap, err := h.svc.Retrain(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": err.Error()}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version":    snap.Version,
		"trained_at": snap.TrainedAt,
		"subjects":   len(snap.BySubject),
		"global":     len(snap.Global),
	})
}
