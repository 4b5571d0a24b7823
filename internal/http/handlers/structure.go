package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/http/response"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/services"
)

// StructureHandler manages the section tree and the items in it.
type StructureHandler struct {
	sections services.SectionService
	items    services.ItemService
}

func NewStructureHandler(sections services.SectionService, items services.ItemService) *StructureHandler {
	return &StructureHandler{sections: sections, items: items}
}

// GET /api/activities/:id/sections
func (h *StructureHandler) Tree(c *gin.Context) {
	wtid, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	tree, err := h.sections.Tree(c.Request.Context(), wtid)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sections": tree})
}

// POST /api/activities/:id/sections
func (h *StructureHandler) CreateSection(c *gin.Context) {
	wtid, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var in services.SectionInput
	if err := bindJSON(c, &in); err != nil {
		response.RespondErr(c, err)
		return
	}
	sec, err := h.sections.Create(c.Request.Context(), wtid, in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"section": sec})
}

// PATCH /api/sections/:id
func (h *StructureHandler) UpdateSection(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var patch services.SectionPatch
	if err := bindJSON(c, &patch); err != nil {
		response.RespondErr(c, err)
		return
	}
	sec, err := h.sections.Update(c.Request.Context(), id, patch)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"section": sec})
}

// DELETE /api/sections/:id
func (h *StructureHandler) DeleteSection(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.sections.Delete(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/sections/:id/items
func (h *StructureHandler) CreateItem(c *gin.Context) {
	sectionID, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var in services.ItemInput
	if err := bindJSON(c, &in); err != nil {
		response.RespondErr(c, err)
		return
	}
	item, err := h.items.Create(c.Request.Context(), sectionID, in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"item": item})
}

// GET /api/items/:id
func (h *StructureHandler) GetItem(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	item, err := h.items.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}

// PATCH /api/items/:id
func (h *StructureHandler) UpdateItem(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var patch services.ItemPatch
	if err := bindJSON(c, &patch); err != nil {
		response.RespondErr(c, err)
		return
	}
	item, err := h.items.Update(c.Request.Context(), id, patch)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}

// PUT /api/items/:id/configs
func (h *StructureHandler) ReplaceConfigs(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var body struct {
		Configs map[string]string `json:"configs"`
	}
	if err := bindJSON(c, &body); err != nil {
		response.RespondErr(c, err)
		return
	}
	item, err := h.items.ReplaceConfigs(c.Request.Context(), id, body.Configs)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"item": item})
}

// DELETE /api/items/:id
func (h *StructureHandler) DeleteItem(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.items.Delete(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
