package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/http/response"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/apierr"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/services"
)

type ResponseHandler struct {
	log       *logger.Logger
	responses services.ResponseService
	maxUpload int64
}

// NewResponseHandler caps each multipart upload request at maxUpload bytes.
func NewResponseHandler(log *logger.Logger, responses services.ResponseService, maxUpload int64) *ResponseHandler {
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &ResponseHandler{log: log.With("handler", "ResponseHandler"), responses: responses, maxUpload: maxUpload}
}

func itemAndUser(c *gin.Context) (int64, int64, error) {
	itemID, err := int64Param(c, "id")
	if err != nil {
		return 0, 0, err
	}
	userID, err := int64Param(c, "userid")
	if err != nil {
		return 0, 0, err
	}
	return itemID, userID, nil
}

// PUT /api/items/:id/responses/:userid
func (h *ResponseHandler) Save(c *gin.Context) {
	itemID, userID, err := itemAndUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var body struct {
		Value string `json:"value"`
	}
	if err := bindJSON(c, &body); err != nil {
		response.RespondErr(c, err)
		return
	}
	resp, err := h.responses.Save(c.Request.Context(), itemID, userID, body.Value)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"response": resp})
}

// POST /api/items/:id/responses/:userid/files (multipart, field "files")
func (h *ResponseHandler) Upload(c *gin.Context) {
	itemID, userID, err := itemAndUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		response.RespondErr(c, apierr.New(http.StatusBadRequest, "invalid_upload", errors.New("expected a multipart form")))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		response.RespondErr(c, apierr.New(http.StatusBadRequest, "invalid_upload", errors.New("no files in field \"files\"")))
		return
	}
	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.RespondErr(c, apierr.New(http.StatusBadRequest, "invalid_upload", err))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			response.RespondErr(c, apierr.New(http.StatusBadRequest, "invalid_upload", err))
			return
		}
		uploads = append(uploads, services.Upload{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	out, err := h.responses.UploadFiles(c.Request.Context(), itemID, userID, uploads)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/items/:id/responses/:userid/files
func (h *ResponseHandler) ListFiles(c *gin.Context) {
	itemID, userID, err := itemAndUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	files, err := h.responses.ListFiles(c.Request.Context(), itemID, userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"files": files})
}

// GET /api/items/:id/responses/:userid/files/:fileid
func (h *ResponseHandler) Download(c *gin.Context) {
	itemID, userID, err := itemAndUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	fileID, err := int64Param(c, "fileid")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	file, rc, err := h.responses.OpenFile(c.Request.Context(), itemID, userID, fileID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	defer rc.Close()

	ct := file.MimeType
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName}))
	c.Header("Content-Length", strconv.FormatInt(file.FileSize, 10))
	c.Header("Content-Type", ct)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Warn("file download interrupted", "file_id", fileID, "error", fmt.Sprint(err))
	}
}

// DELETE /api/items/:id/responses/:userid/files/:fileid
func (h *ResponseHandler) DeleteFile(c *gin.Context) {
	itemID, userID, err := itemAndUser(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	fileID, err := int64Param(c, "fileid")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	out, err := h.responses.DeleteFile(c.Request.Context(), itemID, userID, fileID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, out)
}
