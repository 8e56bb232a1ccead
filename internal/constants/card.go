package constants

type CardStatus string

type Priority string

const (
	StatusBacklog          CardStatus = "Backlog"
	StatusToDo             CardStatus = "To do"
	StatusDoing            CardStatus = "Doing"
	StatusAwaitingResponse CardStatus = "Awaiting Response"
	StatusAwaitingReview   CardStatus = "Awaiting Review"
	StatusHMLTesting       CardStatus = "HML Testing"
	StatusBlocked          CardStatus = "Blocked"
	StatusBugs             CardStatus = "Bugs"
	StatusComplete         CardStatus = "Complete"
	StatusClosed           CardStatus = "Closed"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityUrgent Priority = "urgent"
)

// DefaultStatuses is the column order used when no board schema file is configured.
var DefaultStatuses = []CardStatus{
	StatusBacklog,
	StatusToDo,
	StatusDoing,
	StatusAwaitingResponse,
	StatusAwaitingReview,
	StatusHMLTesting,
	StatusBlocked,
	StatusBugs,
	StatusComplete,
	StatusClosed,
}

var DefaultPriorities = []Priority{PriorityLow, PriorityMedium, PriorityUrgent}

// DateLayout is the calendar date format of card deadlines.
const DateLayout = "2006-01-02"
