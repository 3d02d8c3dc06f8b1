package attendance

import (
	"fmt"

	"unismart/internal/identity"
	"unismart/internal/schedule"
)

// Decision is the outcome of the display gate.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	Supervisor bool   `json:"supervisor"`
	Message    string `json:"message"`
}

// Gate decides whether u may display the code of item. Administrators
// supervise every session; otherwise only the assigned instructor may.
func Gate(u identity.User, item schedule.Item, instructorName string) Decision {
	switch {
	case u.Role == identity.RoleAdmin:
		return Decision{Allowed: true, Supervisor: true, Message: "أنت تراقب هذا السكشن بصلاحيات المدير."}
	case item.InstructorID == u.ID:
		return Decision{Allowed: true, Message: "أنت المحاضر المسؤول عن هذا السكشن."}
	}
	return Decision{Message: fmt.Sprintf("عذراً %s، هذا السكشن من مسؤولية %s", u.Name, instructorName)}
}
