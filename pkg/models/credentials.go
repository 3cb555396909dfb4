package models

// Credentials are the platform session cookies consumed by the download engine
type Credentials struct {
	AuthToken    string `json:"nid_aut"`
	SessionToken string `json:"nid_ses"`
}

// IsEmpty reports whether neither token is set
func (c Credentials) IsEmpty() bool {
	return c.AuthToken == "" && c.SessionToken == ""
}

// Complete reports whether both tokens are set
func (c Credentials) Complete() bool {
	return c.AuthToken != "" && c.SessionToken != ""
}
