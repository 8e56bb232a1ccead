package constants

type NotificationType string

const (
	NotificationTaskAssigned      NotificationType = "TASK_ASSIGNED"
	NotificationTaskUnassigned    NotificationType = "TASK_UNASSIGNED"
	NotificationTaskStatusChanged NotificationType = "TASK_STATUS_CHANGED"
)

// Push channel event names.
const (
	EventAuthenticate  = "authenticate"
	EventAuthenticated = "authenticated"
	EventNotification  = "notification"
	EventError         = "error"
)

// UnknownIdentity is sent when a user has neither an id nor an email.
const UnknownIdentity = "unknown"

// UserHeader carries the caller identity on REST requests to the board backend.
const UserHeader = "X-User-Id"
