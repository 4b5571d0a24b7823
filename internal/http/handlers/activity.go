package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/http/response"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/services"
)

type ActivityHandler struct {
	activities services.ActivityService
	view       services.ViewService
}

func NewActivityHandler(activities services.ActivityService, view services.ViewService) *ActivityHandler {
	return &ActivityHandler{activities: activities, view: view}
}

// GET /api/view?id=<cmid>&user=<userid>
func (h *ActivityHandler) View(c *gin.Context) {
	cmid, err := int64Query(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	h.renderView(c, cmid)
}

// GET /api/activities/:id/view
func (h *ActivityHandler) ViewByPath(c *gin.Context) {
	cmid, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	h.renderView(c, cmid)
}

func (h *ActivityHandler) renderView(c *gin.Context, cmid int64) {
	userID, err := optionalInt64Query(c, "user")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	page, err := h.view.View(c.Request.Context(), cmid, userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"page": page})
}

// GET /api/index?id=<courseid>
func (h *ActivityHandler) Index(c *gin.Context) {
	courseID, err := int64Query(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	h.renderIndex(c, courseID)
}

// GET /api/courses/:id/activities
func (h *ActivityHandler) IndexByPath(c *gin.Context) {
	courseID, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	h.renderIndex(c, courseID)
}

func (h *ActivityHandler) renderIndex(c *gin.Context, courseID int64) {
	page, err := h.view.Index(c.Request.Context(), courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"index": page})
}

// POST /api/courses/:id/activities
func (h *ActivityHandler) Create(c *gin.Context) {
	courseID, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var in services.ActivityInput
	if err := bindJSON(c, &in); err != nil {
		response.RespondErr(c, err)
		return
	}
	a, err := h.activities.Create(c.Request.Context(), courseID, in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"activity": a})
}

// GET /api/activities/:id
func (h *ActivityHandler) Get(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	a, err := h.activities.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"activity": a})
}

// PATCH /api/activities/:id
func (h *ActivityHandler) Update(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var patch services.ActivityPatch
	if err := bindJSON(c, &patch); err != nil {
		response.RespondErr(c, err)
		return
	}
	a, err := h.activities.Update(c.Request.Context(), id, patch)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"activity": a})
}

// DELETE /api/activities/:id
func (h *ActivityHandler) Delete(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.activities.Delete(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
