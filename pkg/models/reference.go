package models

import "fmt"

// ReferenceKind distinguishes full-length recordings from short clips
type ReferenceKind string

const (
	ReferenceVideo ReferenceKind = "video"
	ReferenceClip  ReferenceKind = "clip"
)

// MediaReference is a classified identifier extracted from user input.
// The zero value means "no reference".
type MediaReference struct {
	Kind ReferenceKind `json:"kind"`
	ID   string        `json:"id"`
}

// IsZero reports whether the reference is empty
func (r MediaReference) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// IsVideo reports whether the reference points to a full-length recording
func (r MediaReference) IsVideo() bool {
	return r.Kind == ReferenceVideo
}

// IsClip reports whether the reference points to a clip
func (r MediaReference) IsClip() bool {
	return r.Kind == ReferenceClip
}

// String returns "kind:id" or "none"
func (r MediaReference) String() string {
	if r.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
