package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lukyamuziB/lenken-backend/internal/logger"
	"github.com/lukyamuziB/lenken-backend/internal/requestdata"
	"github.com/lukyamuziB/lenken-backend/internal/services"
)

type FileHandler struct {
	log         *logger.Logger
	fileService services.FileService
}

func NewFileHandler(log *logger.Logger, fileService services.FileService) *FileHandler {
	return &FileHandler{
		log:         log.With("handler", "FileHandler"),
		fileService: fileService,
	}
}

// Upload accepts a multipart form with a single "file" part and attaches it
// to the session.
func (h *FileHandler) Upload(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer src.Close()

	file, err := h.fileService.Upload(c.Request.Context(), sessionID, rd.UserID, fileHeader.Filename, src)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondCreated(c, gin.H{"file": file})
}

func (h *FileHandler) List(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	files, err := h.fileService.List(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error("List session files failed", "error", err, "session_id", sessionID)
		RespondError(c, http.StatusInternalServerError, "load_files_failed", err)
		return
	}
	RespondOK(c, gin.H{"files": files})
}

func (h *FileHandler) URL(c *gin.Context) {
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}
	url, err := h.fileService.URL(c.Request.Context(), fileID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

func (h *FileHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}
	if err := h.fileService.Delete(c.Request.Context(), fileID, rd.UserID); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
