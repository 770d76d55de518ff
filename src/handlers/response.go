package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clinic-ops/src/apperror"
	"clinic-ops/src/middleware"
)

// respondError writes {"error": message} with the status of the error kind.
// Internal errors are logged and their cause is not exposed.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := apperror.StatusOf(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": apperror.MessageOf(err)})
}

func respondList(c *gin.Context, data interface{}, page, limit int, total int64) {
	totalPages := 0
	if limit > 0 {
		totalPages = (int(total) + limit - 1) / limit
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// pagination reads page and limit with the given default limit.
func pagination(c *gin.Context, defaultLimit int) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	return page, limit
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) string {
	return c.GetString(middleware.ActorKey)
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
