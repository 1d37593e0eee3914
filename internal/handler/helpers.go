package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skul-exams-api/internal/middleware"
	"github.com/noah-isme/skul-exams-api/internal/models"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	return page, pageSize
}

func parseBoolPtr(c *gin.Context, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

// schoolScope resolves the caller's school from the JWT claims.
func schoolScope(c *gin.Context) (string, error) {
	claims, ok := middleware.CurrentUser(c)
	if !ok || claims.SchoolID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "caller has no school scope")
	}
	return claims.SchoolID, nil
}

func paginationMeta(page, pageSize, total int) *models.Pagination {
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
