package models

import "time"

// SessionState describes what the controller is currently doing
type SessionState string

const (
	SessionIdle                 SessionState = "idle"
	SessionFetchingInfo         SessionState = "fetchingInfo"
	SessionPreparing            SessionState = "preparing"
	SessionDownloading          SessionState = "downloading"
	SessionInstallingDependency SessionState = "installingDependency"
)

// String returns the string representation of SessionState
func (s SessionState) String() string {
	return string(s)
}

// IsBusy returns true while a download or dependency install is active
func (s SessionState) IsBusy() bool {
	return s == SessionPreparing || s == SessionDownloading || s == SessionInstallingDependency
}

// NotificationKind is the severity of a transient notification
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a transient message shown after a backend call completes
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	Detail    string           `json:"detail,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
