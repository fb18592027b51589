package handler

import (
	"context"
	"errors"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/lessonrelay/internal/domain"
	"github.com/pot-code/lessonrelay/internal/infrastructure/auth"
	"github.com/pot-code/lessonrelay/internal/infrastructure/media"
)

type MediaHandler struct {
	storage domain.MediaStorage
	store   domain.Store
	jwtUtil *auth.JWTUtil
}

func NewMediaHandler(Storage domain.MediaStorage, Store domain.Store, JWTUtil *auth.JWTUtil) *MediaHandler {
	return &MediaHandler{Storage, Store, JWTUtil}
}

// HandleGetMedia stream the object stored under the wildcard path. Supervisors read everything,
// learners only lessons they retrieved and their own report photos.
func (mh *MediaHandler) HandleGetMedia(c echo.Context) error {
	claims := mh.jwtUtil.GetContextToken(c)
	if claims == nil {
		return c.NoContent(http.StatusUnauthorized)
	}
	ctx := c.Request().Context()
	key := c.Param("*")

	allowed, err := mh.readable(ctx, claims.UID, key)
	if err != nil {
		return err
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, NewRESTStandardError(http.StatusForbidden, "media is not available to this user"))
	}

	data, err := mh.storage.Read(ctx, key)
	switch {
	case errors.Is(err, domain.ErrInvalidMediaKey):
		return c.JSON(http.StatusBadRequest, NewRESTStandardError(http.StatusBadRequest, err.Error()))
	case errors.Is(err, domain.ErrMediaNotFound):
		return c.JSON(http.StatusNotFound, NewRESTStandardError(http.StatusNotFound, err.Error()))
	case err != nil:
		return err
	}
	return c.Blob(http.StatusOK, media.ContentType(key), data)
}

func (mh *MediaHandler) readable(ctx context.Context, userID, key string) (allowed bool, err error) {
	key = path.Clean(key)
	err = mh.store.View(ctx, func(snap *domain.Snapshot) error {
		user, ok := snap.Users[userID]
		if !ok {
			return nil
		}
		switch user.Role {
		case domain.RoleSupervisor:
			allowed = true
		case domain.RoleLearner:
			for n := 1; n < user.Cursor(); n++ {
				if lesson, ok := snap.Lessons[n]; ok && lesson.MediaPath == key {
					allowed = true
					return nil
				}
			}
			for _, reports := range snap.Reports {
				for _, report := range reports {
					if report.LearnerID == userID && report.PhotoPath == key {
						allowed = true
						return nil
					}
				}
			}
		}
		return nil
	})
	return
}
