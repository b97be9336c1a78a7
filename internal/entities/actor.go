package entities

import "field-service/pkg/constants"

// Actor - кто выполняет операцию. Передаётся явно в каждый вызов сервиса.
type Actor struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
}

// SystemActor используется фоновыми задачами.
var SystemActor = Actor{UserID: 0, Role: constants.RoleSystem}

// CanDispatch - может ли действовать за любого техника.
func (a Actor) CanDispatch() bool {
	switch a.Role {
	case constants.RoleAdmin, constants.RoleDispatcher, constants.RoleSystem:
		return true
	}
	return false
}
