package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
)

const (
	maxContentBytes = 100000
	maxTitleLength  = 256
	maxNameLength   = 128
	maxTags         = 20
	maxTagLength    = 48
	maxAttachments  = 10
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("content cannot be empty")
	}
	if len(content) > maxContentBytes {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateID validates a workspace or message id.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid ID format")
	}
	return nil
}

// ValidateBranchID validates a branch id: the root id or a UUID.
func ValidateBranchID(id string) error {
	if id == model.MainBranchID {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid branch ID format")
	}
	return nil
}

// ValidateTitle validates a workspace title.
func ValidateTitle(title string) error {
	if len(title) > maxTitleLength {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}

// ValidateBranchName validates a branch name. Empty names are allowed on fork.
func ValidateBranchName(name string) error {
	if utf8.RuneCountInString(name) > maxNameLength {
		return errors.New("branch name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("branch name must be valid UTF-8")
	}
	return nil
}

// ValidateTags validates workspace tags.
func ValidateTags(tags []string) error {
	if len(tags) > maxTags {
		return errors.New("too many tags")
	}
	for _, t := range tags {
		if len(t) > maxTagLength {
			return errors.New("tag exceeds maximum length")
		}
	}
	return nil
}

// ValidateAttachments validates attachment references.
func ValidateAttachments(attachments []model.Attachment) error {
	if len(attachments) > maxAttachments {
		return errors.New("too many attachments")
	}
	for _, a := range attachments {
		if a.ID == "" || a.Name == "" {
			return errors.New("attachment requires id and name")
		}
	}
	return nil
}
