package domain

// Session is the credential tuple held by the gateway on behalf of one
// logical user: short-lived access token, longer-lived refresh token, and the
// user record the backend issued alongside them.
//
// A session exists if and only if all three parts are present and well formed.
// Partial state is treated as "no session" and triggers cleanup at the store.
type Session struct {
	AccessToken  string `json:"access_token" bson:"access_token"`
	RefreshToken string `json:"refresh_token" bson:"refresh_token"`
	User         User   `json:"user" bson:"user"`
}

// Complete reports whether the session satisfies the existence invariant.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.RefreshToken != "" && s.User.Valid()
}

// WithAccessToken returns a copy of the session with the access token
// replaced in place. Used by the refresh exchange: user and refresh token
// stay untouched.
func (s Session) WithAccessToken(token string) Session {
	s.AccessToken = token
	return s
}
