package registry

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var (
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrUnknownStatus     = errors.New("unknown appointment status")
)

var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reaches reports whether next can be reached from s through one or more transitions.
func (s Status) Reaches(next Status) bool {
	seen := map[Status]bool{s: true}
	queue := []Status{s}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, allowed := range transitions[current] {
			if allowed == next {
				return true
			}
			if !seen[allowed] {
				seen[allowed] = true
				queue = append(queue, allowed)
			}
		}
	}
	return false
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	status := Status(raw)
	if !status.Valid() {
		return errors.Wrapf(ErrUnknownStatus, "%q", raw)
	}
	*s = status
	return nil
}
