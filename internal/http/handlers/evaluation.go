package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/http/response"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/apierr"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/services"
)

type EvaluationHandler struct {
	evaluations services.EvaluationService
	completion  services.CompletionService
}

func NewEvaluationHandler(evaluations services.EvaluationService, completion services.CompletionService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations, completion: completion}
}

func activityAndUser(c *gin.Context) (int64, int64, error) {
	wtid, err := int64Param(c, "id")
	if err != nil {
		return 0, 0, err
	}
	userID, err := int64Param(c, "userid")
	if err != nil {
		return 0, 0, err
	}
	return wtid, userID, nil
}

// GET /api/activities/:id/completion/:userid
func (h *EvaluationHandler) Completion(c *gin.Context) {
	wtid, userID, err := activityAndUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	st, err := h.completion.Status(c.Request.Context(), wtid, userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"completion": st})
}

// GET /api/activities/:id/evaluations/:userid
func (h *EvaluationHandler) List(c *gin.Context) {
	wtid, userID, err := activityAndUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	evs, err := h.evaluations.ListVersions(c.Request.Context(), wtid, userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"evaluations": evs})
}

// GET /api/activities/:id/evaluations/:userid/:version
func (h *EvaluationHandler) Version(c *gin.Context) {
	wtid, userID, err := activityAndUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version <= 0 {
		response.RespondErr(c, apierr.New(http.StatusBadRequest, "invalid_version", errors.New("version must be a positive number")))
		return
	}
	out, err := h.evaluations.GetVersion(c.Request.Context(), wtid, userID, version)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/activities/:id/evaluations/:userid/finalise
func (h *EvaluationHandler) Finalise(c *gin.Context) {
	wtid, userID, err := activityAndUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	ev, err := h.evaluations.Finalise(c.Request.Context(), wtid, userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"evaluation": ev})
}

// POST /api/activities/:id/evaluations/:userid/new
func (h *EvaluationHandler) NewRound(c *gin.Context) {
	wtid, userID, err := activityAndUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	ev, err := h.evaluations.NewRound(c.Request.Context(), wtid, userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"evaluation": ev})
}
