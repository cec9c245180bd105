package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	profile "lostfound/internal/profile/models"
)

func TestTransientPagesAreNeverPersisted(t *testing.T) {
	for _, r := range []Route{RouteNone, RouteLanding, RouteSignIn, RouteResetPassword, RouteVerifyEmail, Route("unknown")} {
		assert.False(t, r.Persistable(), r)
	}
	for _, r := range []Route{RouteItems, RouteReportItem, RouteMyClaims, RouteNotifications, RouteAdminQueue, RouteAdminAudit} {
		assert.True(t, r.Persistable(), r)
	}
}

func TestRouteRoles(t *testing.T) {
	assert.True(t, RouteAdminClaims.AllowedFor(profile.RoleAdmin))
	assert.False(t, RouteAdminClaims.AllowedFor(profile.RoleFinder))
	assert.False(t, RouteMyClaims.AllowedFor(profile.RoleAdmin))
	assert.True(t, RouteItems.AllowedFor(profile.RoleFinder))
	assert.True(t, RouteSignIn.AllowedFor(""))
	assert.False(t, RouteResetPassword.AllowedFor(profile.RoleAdmin), "flow pages are entered by link only")

	assert.Equal(t, RouteAdminQueue, Home(profile.RoleAdmin))
	assert.Equal(t, RouteItems, Home(profile.RoleFinder))
}
