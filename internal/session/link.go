package session

import (
	"net/url"
	"strings"

	crosstab "lostfound/internal/crosstab/models"
	dErrors "lostfound/pkg/domain-errors"
)

// Link is what a boot URL says about auth flows.
type Link struct {
	Flow crosstab.Flow
	// Err is set when the provider redirected with an error, typically an expired link.
	Err error
}

// ParseLink reads the flow marker from a boot URL. The provider may put its
// parameters in the query string or in the fragment, so both are checked,
// query first.
func ParseLink(raw string) Link {
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}
	}
	for _, params := range []url.Values{u.Query(), fragmentParams(u.Fragment)} {
		flow := flowFromType(params.Get("type"))
		desc := params.Get("error_description")
		if desc == "" && params.Get("error") == "" {
			if flow != crosstab.FlowNone {
				return Link{Flow: flow}
			}
			continue
		}
		if desc == "" {
			desc = params.Get("error")
		}
		linkErr := dErrors.WithRemedy(dErrors.CodeUnauthorized, desc, "request a new link and open it from the latest email")
		return Link{Flow: flow, Err: linkErr}
	}
	return Link{}
}

// fragmentParams accepts "#a=b&c=d" as well as router-style "#/path?a=b".
func fragmentParams(fragment string) url.Values {
	if fragment == "" {
		return url.Values{}
	}
	if _, after, ok := strings.Cut(fragment, "?"); ok {
		fragment = after
	}
	values, err := url.ParseQuery(fragment)
	if err != nil {
		return url.Values{}
	}
	return values
}

func flowFromType(t string) crosstab.Flow {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "recovery":
		return crosstab.FlowRecovery
	case "signup", "email-verify", "email_verify", "email_change", "invite":
		return crosstab.FlowEmailVerify
	}
	return crosstab.FlowNone
}
