package store

import (
	"strings"

	"dumptrack-api/internal/model"
)

// DefaultAdminTrigger is the email substring that marks administrators.
const DefaultAdminTrigger = "admin"

// IsAdministrator is the single elevation policy: a profile is elevated
// when its email contains trigger, ignoring case. The stored role is not
// consulted.
func IsAdministrator(profile *model.Profile, trigger string) bool {
	if profile == nil || trigger == "" {
		return false
	}
	return strings.Contains(strings.ToLower(profile.Email), strings.ToLower(trigger))
}

// ElevatedRole returns the role to store for a new profile. Emails that
// match the policy always get the admin role; others keep the requested
// role, defaulting to user.
func ElevatedRole(email, requested, trigger string) string {
	if IsAdministrator(&model.Profile{Email: email}, trigger) {
		return model.RoleAdmin
	}
	if requested == "" {
		return model.RoleUser
	}
	return requested
}
