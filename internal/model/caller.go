package model

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSupplier Role = "supplier"
	RoleUser     Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupplier, RoleUser:
		return true
	}
	return false
}

// Caller is the authenticated platform user behind a request.
type Caller struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
