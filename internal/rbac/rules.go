package rbac

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

const (
	PermQuizCreate          = "quiz:create"
	PermQuizUpdate          = "quiz:update"
	PermQuizDelete          = "quiz:delete"
	PermQuizView            = "quiz:view"
	PermQuizViewKey         = "quiz:view-key"
	PermAttemptStart        = "attempt:start"
	PermAttemptSubmit       = "attempt:submit"
	PermAttemptViewOwn      = "attempt:view-own"
	PermAttemptViewAll      = "attempt:view-all"
	PermCourseCreate        = "course:create"
	PermCourseEnroll        = "course:enroll"
	PermNotificationViewOwn = "notification:view-own"
	PermEventsView          = "events:view"
	PermUserCreate          = "user:create"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleStudent: {
		PermQuizView,
		PermAttemptStart,
		PermAttemptSubmit,
		PermAttemptViewOwn,
		PermNotificationViewOwn,
	},
	RoleInstructor: {
		"quiz:*",
		PermAttemptViewAll,
		PermCourseCreate,
		PermCourseEnroll,
		PermNotificationViewOwn,
	},
	RoleAdmin: {
		"*",
	},
}

// Known reports whether role has a policy entry.
func Known(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
