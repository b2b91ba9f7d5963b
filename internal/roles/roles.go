// Package roles хранит единственную таблицу переходов ролей пользователя.
// Любой код, который меняет роль, вызывает Apply, а не присваивает значение напрямую.
package roles

import (
	"fmt"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

// Event событие, способное изменить роль.
type Event string

const (
	// Registered самостоятельная регистрация.
	Registered Event = "registered"
	// InstructorCreated администратор заводит инструктора.
	InstructorCreated Event = "instructor_created"
	// MembershipActivated активирован абонемент.
	MembershipActivated Event = "membership_activated"
	// AdminAssigned администратор явно назначает роль.
	AdminAssigned Event = "admin_assigned"
)

type transition struct {
	from  models.Role
	event Event
}

// anyRole обозначает любую исходную роль, включая пустую.
const anyRole models.Role = "*"

var table = map[transition]models.Role{
	{anyRole, Registered}:                    models.RoleUser,
	{anyRole, InstructorCreated}:             models.RoleStaff,
	{models.RoleUser, MembershipActivated}:   models.RoleMember,
	{models.RoleMember, MembershipActivated}: models.RoleMember,
	{models.RoleStaff, MembershipActivated}:  models.RoleStaff,
	{models.RoleAdmin, MembershipActivated}:  models.RoleAdmin,
}

// Apply возвращает роль после события. Для AdminAssigned target задаёт
// новую роль, для остальных событий он игнорируется.
func Apply(current models.Role, event Event, target ...models.Role) (models.Role, error) {
	const op = "roles.Apply"

	if event == AdminAssigned {
		if len(target) != 1 || !target[0].Valid() {
			return current, fmt.Errorf("%s: %w", op, models.ErrInvalidRole)
		}
		return target[0], nil
	}

	if next, ok := table[transition{current, event}]; ok {
		return next, nil
	}
	if next, ok := table[transition{anyRole, event}]; ok {
		return next, nil
	}
	return current, fmt.Errorf("%s: no transition from %q on %q: %w", op, current, event, models.ErrInvalidRole)
}
