package models

type SetPreviewRequest struct {
	MediaID string `json:"mediaId" binding:"required"`
}
