package constants

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

func (s StatusFilter) Valid() bool {
	switch s {
	case StatusAll, StatusPending, StatusCompleted:
		return true
	}
	return false
}

type SortKey string

const (
	SortDueDate   SortKey = "due_date"
	SortPriority  SortKey = "priority"
	SortTitle     SortKey = "title"
	SortCreatedAt SortKey = "created_at"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortDueDate, SortPriority, SortTitle, SortCreatedAt:
		return true
	}
	return false
}

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

func (o SortOrder) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

const (
	DefaultLimit = 50
	MaxLimit     = 100
)
