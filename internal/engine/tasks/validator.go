package tasks

import (
	"errors"
	"strings"
)

const maxTitleLength = 200

func ValidateTask(t *Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return errors.New("title is required")
	}
	if len(t.Title) > maxTitleLength {
		return errors.New("title must be at most 200 characters")
	}

	if t.Status != "" && !ValidStatus(t.Status) {
		return errors.New("status must be one of todo, in_progress, review, done")
	}

	if t.Priority != "" && !ValidPriority(t.Priority) {
		return errors.New("priority must be one of low, medium, high, urgent")
	}

	return nil
}
