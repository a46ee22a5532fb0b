package validators

import (
	"strings"

	"todo-service.com/todo-service/internal/constants"
	apperrors "todo-service.com/todo-service/internal/errors"
)

func (v Validator) Status(raw string) (constants.StatusFilter, error) {
	if raw == "" {
		return "", nil
	}
	s := constants.StatusFilter(strings.ToLower(raw))
	if s.Valid() {
		return s, nil
	}
	if v.mode == ModeLenient {
		return constants.StatusAll, nil
	}
	return "", apperrors.Invalid("status", raw)
}

// PriorityFilter differs from Priority: an empty or, in lenient mode, unknown value
// means "no priority filter" rather than the default priority.
func (v Validator) PriorityFilter(raw string) (constants.Priority, error) {
	if raw == "" {
		return "", nil
	}
	p := constants.Priority(raw)
	if p.Valid() {
		return p, nil
	}
	if v.mode == ModeLenient {
		return "", nil
	}
	return "", apperrors.Invalid("priority", raw)
}

func (v Validator) SortKey(raw string) (constants.SortKey, error) {
	if raw == "" {
		return constants.SortCreatedAt, nil
	}
	k := constants.SortKey(raw)
	if k.Valid() {
		return k, nil
	}
	if v.mode == ModeLenient {
		return constants.SortCreatedAt, nil
	}
	return "", apperrors.Invalid("sort", raw)
}

func (v Validator) SortOrder(raw string) (constants.SortOrder, error) {
	if raw == "" {
		return constants.OrderDesc, nil
	}
	o := constants.SortOrder(strings.ToLower(raw))
	if o.Valid() {
		return o, nil
	}
	if v.mode == ModeLenient {
		return constants.OrderDesc, nil
	}
	return "", apperrors.Invalid("order", raw)
}
