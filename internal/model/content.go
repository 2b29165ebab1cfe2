package model

import (
	"time"

	"github.com/google/uuid"
)

type ContentKind string

const (
	ContentLabel        ContentKind = "label"
	ContentPressRelease ContentKind = "press_release"
	ContentEducation    ContentKind = "education"
	ContentSocial       ContentKind = "social"
	ContentImage        ContentKind = "image"
)

func (k ContentKind) Valid() bool {
	switch k {
	case ContentLabel, ContentPressRelease, ContentEducation, ContentSocial, ContentImage:
		return true
	}
	return false
}

// ContentDraft is one generated piece of text or one generated image.
type ContentDraft struct {
	ID        uuid.UUID   `json:"id"`
	UserID    int         `json:"user_id"`
	TaskID    *int        `json:"task_id,omitempty"`
	Kind      ContentKind `json:"kind"`
	Prompt    string      `json:"prompt"`
	Body      string      `json:"body,omitempty"`
	ImageURL  string      `json:"image_url,omitempty"`
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	Fallback  bool        `json:"fallback"`
	CreatedAt time.Time   `json:"created_at"`
}
