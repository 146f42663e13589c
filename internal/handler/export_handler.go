package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
	"github.com/noah-isme/festival-scheduler-api/internal/service"
	"github.com/noah-isme/festival-scheduler-api/pkg/response"
)

type exportDownloader interface {
	Download(token string) (*models.ExportDownload, error)
}

// ExportHandler serves generated schedule documents.
type ExportHandler struct {
	exports exportDownloader
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download an exported schedule
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.exports.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Type", file.ContentType)
	c.Header("Cache-Control", "no-store")
	c.FileAttachment(file.Path, file.Filename)
}
