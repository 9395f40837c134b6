package models

import "net/url"

const (
	DefaultUser   = "Guest"
	DefaultFamily = "public"
)

// Identity is the acting display name and the family namespace it acts in.
// It is self-declared and carries no authentication.
type Identity struct {
	User   string `json:"user"`
	Family string `json:"family"`
}

// Query encodes the identity as a shareable reference.
func (i Identity) Query() string {
	v := url.Values{}
	v.Set("user", i.User)
	v.Set("family", i.Family)
	return v.Encode()
}

// AppSetting is a generic per-family key/value pair.
type AppSetting struct {
	Family string `json:"family" db:"family"`
	Key    string `json:"key" db:"key"`
	Value  string `json:"value" db:"value"`
}

// SettingLastActiveUser names the setting that makes identity sticky.
const SettingLastActiveUser = "last_active_user"
