package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		current models.Role
		event   Event
		target  []models.Role
		want    models.Role
		wantErr bool
	}{
		{name: "registration", current: "", event: Registered, want: models.RoleUser},
		{name: "instructor from user", current: models.RoleUser, event: InstructorCreated, want: models.RoleStaff},
		{name: "instructor new account", current: "", event: InstructorCreated, want: models.RoleStaff},
		{name: "user buys membership", current: models.RoleUser, event: MembershipActivated, want: models.RoleMember},
		{name: "member renews", current: models.RoleMember, event: MembershipActivated, want: models.RoleMember},
		{name: "staff keeps role", current: models.RoleStaff, event: MembershipActivated, want: models.RoleStaff},
		{name: "admin keeps role", current: models.RoleAdmin, event: MembershipActivated, want: models.RoleAdmin},
		{name: "admin assigns staff", current: models.RoleMember, event: AdminAssigned, target: []models.Role{models.RoleStaff}, want: models.RoleStaff},
		{name: "admin assigns unknown", current: models.RoleMember, event: AdminAssigned, target: []models.Role{"coach"}, want: models.RoleMember, wantErr: true},
		{name: "admin assigns nothing", current: models.RoleUser, event: AdminAssigned, want: models.RoleUser, wantErr: true},
		{name: "unknown current role on activation", current: "", event: MembershipActivated, want: "", wantErr: true},
		{name: "unknown event", current: models.RoleUser, event: "promoted", want: models.RoleUser, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.current, tt.event, tt.target...)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrInvalidRole)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
