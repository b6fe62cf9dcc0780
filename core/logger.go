package core

// Logger is any leveled logger.
// expected args: error, map[string]interface{}, Operator
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Operator identifies who runs an administrative action (stored as criado_por).
type Operator struct {
	Name string
	Role string // admin_master | admin | usuario
}

const (
	RoleAdminMaster = "admin_master"
	RoleAdmin       = "admin"
	RoleUser        = "usuario"
)

func (op Operator) ValidRole() bool {
	switch op.Role {
	case RoleAdminMaster, RoleAdmin, RoleUser:
		return true
	}
	return false
}

func (op Operator) IsAdmin() bool {
	return op.Role == RoleAdmin || op.Role == RoleAdminMaster
}
