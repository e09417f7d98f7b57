package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/shopwise/shopwise-api/apperrors"
	"github.com/shopwise/shopwise-api/middleware"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/utils"
)

// respondError writes the error envelope for err. Domain errors map to their
// kind's status; anything else is logged and reported as an internal error.
func respondError(c *gin.Context, err error) {
	var mediaErr *utils.MediaError
	if errors.As(err, &mediaErr) {
		respondWithError(c, http.StatusBadRequest, mediaErr.Code, mediaErr.Message)
		return
	}

	appErr, ok := apperrors.As(err)
	if !ok || appErr.Kind == apperrors.KindUnexpected {
		log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", middleware.GetRequestID(c)).
			Msg("Request failed")

		message := "An unexpected error occurred"
		if ok {
			message = appErr.Message
		}
		respondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
		return
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(apperrors.HTTPStatus(appErr.Kind), gin.H{
		"success": false,
		"error":   body,
	})
}

func respondWithError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondBindError reports a request body that failed binding
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondPage(c *gin.Context, data interface{}, page, limit int, total int64) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": utils.TotalPages(total, limit),
		},
	})
}

// requireCurrentUser returns the user loaded by middleware.LoadCurrentUser,
// writing a 401 when it is missing
func requireCurrentUser(c *gin.Context) (*models.User, bool) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		respondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return nil, false
	}
	return user, true
}

// idParam parses the named path parameter, writing a 400 when it is invalid
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	return id, true
}
