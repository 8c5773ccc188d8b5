package domain

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleGuest   Role = "guest"
	RoleSystem  Role = "system"
)

// Actor is whoever asks for an operation: a guest, a resource manager, an
// administrator or an internal job.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

var SystemActor = Actor{ID: "system", Role: RoleSystem}

type Action string

const (
	ActionView       Action = "view"
	ActionBook       Action = "book"
	ActionManageUnit Action = "manage_unit"
	ActionConfirm    Action = "confirm"
	ActionCheckIn    Action = "check_in"
	ActionCheckOut   Action = "check_out"
	ActionCancel     Action = "cancel"
	ActionNoShow     Action = "no_show"
)

// ActionFor names the permission needed to move a reservation into target.
func ActionFor(target Status) Action {
	switch target {
	case StatusConfirmed:
		return ActionConfirm
	case StatusCheckedIn:
		return ActionCheckIn
	case StatusCheckedOut:
		return ActionCheckOut
	case StatusCancelled:
		return ActionCancel
	case StatusNoShow:
		return ActionNoShow
	default:
		return ActionView
	}
}
