package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/auth"
	"github.com/pot-code/lessonrelay/internal/infrastructure/validate"
)

// ActionProcessor runs inbound actions through the conversation
type ActionProcessor interface {
	Handle(ctx context.Context, action *domain.Action) ([]*domain.OutboundMessage, error)
}

// ActionRequest inbound action body, media is base64 in JSON or the "media" file of a multipart form
type ActionRequest struct {
	Kind  string `json:"kind" form:"kind" validate:"required,oneof=text photo video control"`
	Text  string `json:"text" form:"text" validate:"max=4096"`
	Data  string `json:"data" form:"data" validate:"max=512"`
	Media []byte `json:"media" form:"-"`
}

// ActionResponse replies for the acting user
type ActionResponse struct {
	Replies []*domain.OutboundMessage `json:"replies"`
}

type ActionHandler struct {
	processor ActionProcessor
	jwtUtil   *auth.JWTUtil
	validator validate.Validator
	maxBytes  int64
}

func NewActionHandler(
	Processor ActionProcessor,
	JWTUtil *auth.JWTUtil,
	Validator validate.Validator,
	MaxBytes int64,
) *ActionHandler {
	return &ActionHandler{Processor, JWTUtil, Validator, MaxBytes}
}

// HandlePostAction POST /action
func (ah *ActionHandler) HandlePostAction(c echo.Context) error {
	claims := ah.jwtUtil.GetContextToken(c)
	if claims == nil {
		return c.NoContent(http.StatusUnauthorized)
	}

	req := new(ActionRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, NewRESTStandardError(http.StatusBadRequest, "Failed to bind action"))
	}
	if errs := ah.validator.Struct(req); len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, NewRESTValidationError(http.StatusBadRequest, "Failed to validate action", errs))
	}

	media, status, err := ah.readMedia(c, req)
	if err != nil {
		return c.JSON(status, NewRESTStandardError(status, err.Error()))
	}
	kind := domain.ActionKind(req.Kind)
	if (kind == domain.ActionPhoto || kind == domain.ActionVideo) && len(media) == 0 {
		return c.JSON(http.StatusBadRequest, NewRESTValidationError(http.StatusBadRequest, "Failed to validate action",
			[]*validate.FieldError{validate.NewFieldError("media", fmt.Sprintf("media is required for %s actions", kind))}))
	}

	replies, err := ah.processor.Handle(c.Request().Context(), &domain.Action{
		UserID:      claims.UID,
		DisplayName: claims.Name,
		Kind:        kind,
		Text:        req.Text,
		Data:        req.Data,
		Media:       media,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ActionResponse{Replies: replies})
}

// readMedia payload from the multipart file if present, the JSON field otherwise
func (ah *ActionHandler) readMedia(c echo.Context, req *ActionRequest) ([]byte, int, error) {
	if int64(len(req.Media)) > ah.maxBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("media exceeds %d bytes", ah.maxBytes)
	}
	fh, err := c.FormFile("media")
	if err != nil {
		return req.Media, 0, nil
	}
	if fh.Size > ah.maxBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("media exceeds %d bytes", ah.maxBytes)
	}
	file, err := fh.Open()
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("failed to open media: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, ah.maxBytes+1))
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read media: %w", err)
	}
	if int64(len(data)) > ah.maxBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("media exceeds %d bytes", ah.maxBytes)
	}
	return data, 0, nil
}
