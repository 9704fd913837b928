package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"hivley/internal/domain/message"
	"hivley/internal/services"
	"hivley/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxAttachmentsPerMessage = 10

type MessageHandler struct {
	service        *services.MessageService
	maxUploadBytes int64
}

// NewMessageHandler creates a message handler. maxUploadBytes caps each
// attached file.
func NewMessageHandler(service *services.MessageService, maxUploadBytes int64) *MessageHandler {
	return &MessageHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Send accepts either a JSON body or a multipart form whose files field
// carries the attachments.
func (h *MessageHandler) Send(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var (
		req     httpdto.SendMessageRequest
		uploads []services.AttachmentUpload
	)
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		if h.maxUploadBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes*maxAttachmentsPerMessage+1<<20)
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
			return
		}
		if raw := c.PostForm("metadata"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Metadata); err != nil {
				c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid metadata", "INVALID_REQUEST"))
				return
			}
		}
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid multipart form", "INVALID_REQUEST"))
			return
		}
		files := form.File["files"]
		if len(files) > maxAttachmentsPerMessage {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("too many files", "INVALID_REQUEST"))
			return
		}
		var closers []io.Closer
		defer func() {
			for _, cl := range closers {
				_ = cl.Close()
			}
		}()
		for _, fh := range files {
			upload, f, err := openUpload(fh)
			if err != nil {
				c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("unreadable file "+fh.Filename, "INVALID_REQUEST"))
				return
			}
			closers = append(closers, f)
			uploads = append(uploads, upload)
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	var replyTo *uuid.UUID
	if req.ReplyToID != "" {
		id, err := parseUUID(req.ReplyToID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid reply_to_id", "INVALID_REQUEST"))
			return
		}
		replyTo = &id
	}

	res, err := h.service.Send(c.Request.Context(), services.SendInput{
		ConversationID:    conversationID,
		SenderID:          userID,
		Content:           req.Content,
		ReplyToID:         replyTo,
		ClientGeneratedID: req.ClientGeneratedID,
		Metadata:          req.Metadata,
		Attachments:       uploads,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, httpdto.NewSuccessResponse(httpdto.FromSendResult(res)))
}

func (h *MessageHandler) List(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	limit, err := parseInt(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", "INVALID_REQUEST"))
		return
	}

	beforeAt, err := parseTime(c.Query("before"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid before", "INVALID_REQUEST"))
		return
	}
	beforeSeq, err := parseInt(c.Query("before_seq"))
	if err != nil || beforeSeq < 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid before_seq", "INVALID_REQUEST"))
		return
	}
	var before *message.Cursor
	if beforeAt != nil {
		before = &message.Cursor{CreatedAt: *beforeAt, Seq: int64(beforeSeq)}
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, err := h.service.FetchPage(c.Request.Context(), userID, conversationID, limit, before)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromPage(page)))
}

func (h *MessageHandler) Edit(c *gin.Context) {
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	msg, err := h.service.Edit(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	msg, err := h.service.SoftDelete(c.Request.Context(), messageID, userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}

func openUpload(fh *multipart.FileHeader) (services.AttachmentUpload, io.Closer, error) {
	f, err := fh.Open()
	if err != nil {
		return services.AttachmentUpload{}, nil, err
	}
	return services.AttachmentUpload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(value)
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, err
	}
	parsed = parsed.UTC()
	return &parsed, nil
}
