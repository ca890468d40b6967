package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collab-engine/internal/docstore"
	"collab-engine/internal/service"
)

// HandleServiceError maps service-layer errors onto HTTP responses. A
// *docstore.ResyncError is not a failure: the client gets 409 with the full
// current state so it can rebase and retry.
func HandleServiceError(c *gin.Context, err error) {
	var resync *docstore.ResyncError
	switch {
	case errors.As(err, &resync):
		c.JSON(http.StatusConflict, gin.H{
			"error":           "base version outside replay window",
			"resync":          true,
			"current_version": resync.Version,
			"content":         resync.Content,
		})
	case errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrFileNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrSnapshotNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRoomFull):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidOperation):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
