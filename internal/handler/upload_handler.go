package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"storefront-support/internal/services"
	"storefront-support/internal/transport/httpdto"
	support_errors "storefront-support/pkg/errors"

	"github.com/gin-gonic/gin"
)

type Uploader interface {
	Upload(ctx context.Context, in services.UploadInput) (services.UploadResult, error)
}

type UploadHandler struct {
	uploader Uploader
	maxBytes int64
}

func NewUploadHandler(uploader Uploader, maxBytes int64) *UploadHandler {
	return &UploadHandler{uploader: uploader, maxBytes: maxBytes}
}

// Upload accepts a multipart form with a file and the conversation_id it belongs to.
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		// room for the multipart envelope around the file
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, support_errors.ErrTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("file is required", "VALIDATION_ERROR"))
		return
	}
	conversationID, err := parseUUID(c.PostForm("conversation_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if h.maxBytes > 0 && fileHeader.Size > h.maxBytes {
		respondError(c, support_errors.ErrTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.uploader.Upload(c.Request.Context(), services.UploadInput{
		CustomerID:     callerID(c),
		ConversationID: conversationID,
		FileName:       fileHeader.Filename,
		Caption:        c.PostForm("caption"),
		Data:           data,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.UploadResponse{
		URL:     result.URL,
		Type:    result.Type,
		Replies: result.Replies,
	}))
}
