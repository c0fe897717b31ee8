package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dumptrack-api/internal/model"
)

func TestIsAdministrator(t *testing.T) {
	cases := []struct {
		email   string
		trigger string
		want    bool
	}{
		{"admin@example.com", "admin", true},
		{"site.ADMIN@example.com", "admin", true},
		{"jane@example.com", "admin", false},
		{"jane@example.com", "", false},
		{"boss@example.com", "boss", true},
	}
	for _, tc := range cases {
		got := IsAdministrator(&model.Profile{Email: tc.email, Role: model.RoleUser}, tc.trigger)
		assert.Equal(t, tc.want, got, tc.email)
	}
	assert.False(t, IsAdministrator(nil, "admin"))
}

func TestIsAdministrator_IgnoresRole(t *testing.T) {
	assert.False(t, IsAdministrator(&model.Profile{Email: "jane@example.com", Role: model.RoleAdmin}, "admin"))
}

func TestElevatedRole(t *testing.T) {
	for _, requested := range []string{"", model.RoleUser, "manager", model.RoleAdmin} {
		assert.Equal(t, model.RoleAdmin, ElevatedRole("admin@example.com", requested, "admin"), requested)
	}
	assert.Equal(t, model.RoleUser, ElevatedRole("jane@example.com", "", "admin"))
	assert.Equal(t, "manager", ElevatedRole("jane@example.com", "manager", "admin"))
}
