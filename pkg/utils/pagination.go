package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const maxPageSize = 100

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// GetPaginationParams reads limit with either offset or page from the query.
// offset wins when both are given.
func GetPaginationParams(c echo.Context, defaultLimit int) PaginationParams {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	} else if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 1 {
		offset = (page - 1) * limit
	}

	return PaginationParams{
		Limit:  limit,
		Offset: offset,
	}
}
