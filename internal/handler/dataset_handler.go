package handler

import (
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sello-bot/luna-data-science-chatbot/internal/service"
)

// DatasetHandler 数据集处理器
type DatasetHandler struct {
	svc *service.Services
}

// NewDatasetHandler 创建数据集处理器
func NewDatasetHandler(svc *service.Services) *DatasetHandler {
	return &DatasetHandler{svc: svc}
}

// Upload 上传数据文件
// 表单字段: file 数据文件, session_id 可选会话 ID。
func (h *DatasetHandler) Upload(c *gin.Context) {
	sessionID := c.PostForm("session_id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required: "+err.Error())
		return
	}

	uploadDir := h.svc.Config.Storage.UploadDir
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		Error(c, err)
		return
	}

	// 保留原始扩展名，文件名加 UUID 前缀避免冲突
	fileName := filepath.Base(fileHeader.Filename)
	savedPath := filepath.Join(uploadDir, uuid.New().String()+"_"+fileName)
	if err := c.SaveUploadedFile(fileHeader, savedPath); err != nil {
		Error(c, err)
		return
	}

	result, err := h.svc.Orchestrator.HandleUpload(c.Request.Context(), sessionID, savedPath, fileName)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, result)
}

// ListArtifacts 列出会话副产物
func (h *DatasetHandler) ListArtifacts(c *gin.Context) {
	id := c.Param("id")
	kind := c.Query("kind")

	artifacts, err := h.svc.Orchestrator.SessionArtifacts(id, kind)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, artifacts)
}

// GetArtifact 下载副产物文件
func (h *DatasetHandler) GetArtifact(c *gin.Context) {
	id := c.Param("id")

	artifact, err := h.svc.Orchestrator.Artifact(id)
	if err != nil {
		NotFound(c, "artifact not found: "+id)
		return
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		NotFound(c, "artifact file is missing: "+id)
		return
	}

	c.File(artifact.Path)
}
