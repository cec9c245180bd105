package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	crosstab "lostfound/internal/crosstab/models"
	dErrors "lostfound/pkg/domain-errors"
)

func TestParseLink(t *testing.T) {
	tests := []struct {
		name string
		url  string
		flow crosstab.Flow
	}{
		{"plain page", "https://lostfound.campus.edu/items", crosstab.FlowNone},
		{"recovery in query", "https://lostfound.campus.edu/reset?type=recovery&token=abc", crosstab.FlowRecovery},
		{"recovery in fragment", "https://lostfound.campus.edu/#access_token=x&refresh_token=y&type=recovery", crosstab.FlowRecovery},
		{"router style fragment", "https://lostfound.campus.edu/#/verify?type=signup", crosstab.FlowEmailVerify},
		{"email change", "https://lostfound.campus.edu/?type=email_change", crosstab.FlowEmailVerify},
		{"explicit email-verify", "https://lostfound.campus.edu/?type=email-verify", crosstab.FlowEmailVerify},
		{"case and spaces", "https://lostfound.campus.edu/?type=%20Recovery%20", crosstab.FlowRecovery},
		{"unknown type", "https://lostfound.campus.edu/?type=magiclink", crosstab.FlowNone},
		{"garbage", "://not a url", crosstab.FlowNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := ParseLink(tt.url)
			assert.Equal(t, tt.flow, link.Flow)
			assert.NoError(t, link.Err)
		})
	}
}

func TestParseLinkReportsProviderErrors(t *testing.T) {
	link := ParseLink("https://lostfound.campus.edu/#error=access_denied&error_code=otp_expired&error_description=Email+link+is+invalid+or+has+expired&type=recovery")
	assert.Equal(t, crosstab.FlowRecovery, link.Flow)
	assert.True(t, dErrors.HasCode(link.Err, dErrors.CodeUnauthorized))
	assert.EqualError(t, link.Err, "Email link is invalid or has expired")

	link = ParseLink("https://lostfound.campus.edu/?error=server_error")
	assert.Equal(t, crosstab.FlowNone, link.Flow)
	assert.EqualError(t, link.Err, "server_error")
}
