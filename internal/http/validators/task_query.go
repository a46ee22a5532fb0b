package validators

import (
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "todo-service.com/todo-service/internal/errors"
	"todo-service.com/todo-service/internal/services"
	core "todo-service.com/todo-service/internal/validators"
)

// BindTaskQuery reads the list criteria from the query string.
func BindTaskQuery(c echo.Context, v core.Validator) (services.TaskQuery, error) {
	var q services.TaskQuery
	var err error

	if q.Status, err = v.Status(c.QueryParam("status")); err != nil {
		return q, err
	}
	if raw := c.QueryParam("completed"); raw != "" {
		completed, perr := strconv.ParseBool(raw)
		if perr != nil {
			return q, apperrors.Invalid("completed", raw)
		}
		q.Completed = &completed
	}
	if q.Priority, err = v.PriorityFilter(c.QueryParam("priority")); err != nil {
		return q, err
	}
	q.Tags = core.SplitTags(c.QueryParam("tags"))
	q.Search = c.QueryParam("search")
	if q.Sort, err = v.SortKey(c.QueryParam("sort")); err != nil {
		return q, err
	}
	if q.Order, err = v.SortOrder(c.QueryParam("order")); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(c, "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = intParam(c, "offset"); err != nil {
		return q, err
	}
	return q, nil
}

// BindLimit reads the optional limit query parameter.
func BindLimit(c echo.Context) (int, error) {
	return intParam(c, "limit")
}

func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Invalid(name, raw)
	}
	return n, nil
}
