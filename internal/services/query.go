package services

import (
	"cmp"
	"slices"
	"strings"

	"todo-service.com/todo-service/internal/constants"
	model "todo-service.com/todo-service/pkg/models"
)

// TaskQuery holds the independent list criteria. Zero values mean "not given".
type TaskQuery struct {
	Status    constants.StatusFilter
	Completed *bool
	Priority  constants.Priority
	Tags      []string
	Search    string
	Sort      constants.SortKey
	Order     constants.SortOrder
	Limit     int
	Offset    int
}

// TaskPage is one page of tasks plus counts over the owner's whole task set.
// The counts ignore every filter on purpose: clients render them as global totals.
type TaskPage struct {
	Tasks          []model.Task
	Total          int
	PendingCount   int
	CompletedCount int
}

func NormalizeLimit(limit int) int {
	switch {
	case limit == 0:
		return constants.DefaultLimit
	case limit < 1:
		return 1
	case limit > constants.MaxLimit:
		return constants.MaxLimit
	}
	return limit
}

// Query filters, sorts and paginates an owner's tasks. tasks must already be
// owner-scoped; it is not modified.
func Query(tasks []model.Task, q TaskQuery) TaskPage {
	page := TaskPage{Total: len(tasks)}
	for i := range tasks {
		if tasks[i].Completed {
			page.CompletedCount++
		} else {
			page.PendingCount++
		}
	}

	matched := make([]model.Task, 0, len(tasks))
	for i := range tasks {
		if q.matches(&tasks[i]) {
			matched = append(matched, tasks[i])
		}
	}

	key := q.Sort
	if key == "" {
		key = constants.SortCreatedAt
	}
	order := q.Order
	if order == "" {
		order = constants.OrderDesc
	}
	slices.SortStableFunc(matched, func(a, b model.Task) int {
		if c := compareBy(key, order, &a, &b); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	offset := max(q.Offset, 0)
	if offset >= len(matched) {
		page.Tasks = []model.Task{}
		return page
	}
	end := min(offset+NormalizeLimit(q.Limit), len(matched))
	page.Tasks = matched[offset:end]
	return page
}

func (q TaskQuery) matches(t *model.Task) bool {
	switch q.Status {
	case constants.StatusPending:
		if t.Completed {
			return false
		}
	case constants.StatusCompleted:
		if !t.Completed {
			return false
		}
	case constants.StatusAll:
	default:
		if q.Completed != nil && t.Completed != *q.Completed {
			return false
		}
	}

	if q.Priority != "" && t.Priority != q.Priority {
		return false
	}

	if len(q.Tags) > 0 && !slices.ContainsFunc(q.Tags, t.HasTag) {
		return false
	}

	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		if !strings.Contains(strings.ToLower(t.Title), search) {
			return false
		}
	}

	return true
}

func compareBy(key constants.SortKey, order constants.SortOrder, a, b *model.Task) int {
	var c int
	switch key {
	case constants.SortDueDate:
		// Tasks without a due date go last whatever the direction.
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		c = a.DueDate.Compare(*b.DueDate)
	case constants.SortPriority:
		// desc means most urgent first, which is the lowest rank number.
		c = cmp.Compare(b.Priority.Rank(), a.Priority.Rank())
	case constants.SortTitle:
		c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if order == constants.OrderDesc {
		return -c
	}
	return c
}
