package core

// Snapshot is the serializable subset of session state sufficient to
// restore a session. An unauthenticated session dumps the zero Snapshot.
type Snapshot struct {
	UID          string   `json:"UID,omitempty" yaml:"uid,omitempty"`
	AccessToken  string   `json:"AccessToken,omitempty" yaml:"access_token,omitempty"`
	RefreshToken string   `json:"RefreshToken,omitempty" yaml:"refresh_token,omitempty"`
	Scopes       []string `json:"Scopes,omitempty" yaml:"scopes,omitempty"`
	Environment  string   `json:"Environment,omitempty" yaml:"environment,omitempty"`
	AccountName  string   `json:"AccountName,omitempty" yaml:"account_name,omitempty"`
}

// Empty reports whether the snapshot carries no credentials. UID is the
// marker: it is absent exactly when the token fields and scopes are absent.
func (s Snapshot) Empty() bool {
	return s.UID == ""
}
