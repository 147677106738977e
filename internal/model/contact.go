package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidCadence = errors.New("model: invalid cadence days")

type Contact struct {
	SystemID           string
	FullName           string
	NickName           string
	ImageURI           string
	Description        string
	Circle             Circle
	CustomReminderDays *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DisplayName prefers the nickname when one is set.
func (c Contact) DisplayName() string {
	if nick := strings.TrimSpace(c.NickName); nick != "" {
		return nick
	}
	return c.FullName
}

func (c Contact) Validate() error {
	if strings.TrimSpace(c.SystemID) == "" {
		return errors.New("model: contact system_id is required")
	}
	if strings.TrimSpace(c.FullName) == "" {
		return errors.New("model: contact full_name is required")
	}
	if !c.Circle.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCircle, c.Circle)
	}
	if c.CustomReminderDays != nil && *c.CustomReminderDays < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidCadence, *c.CustomReminderDays)
	}
	return nil
}

// ContactPatch carries optional field updates. ClearCustomReminderDays resets
// the override so the circle default applies again.
type ContactPatch struct {
	FullName                *string
	NickName                *string
	ImageURI                *string
	Description             *string
	Circle                  *Circle
	CustomReminderDays      *int
	ClearCustomReminderDays bool
}

func (p ContactPatch) IsEmpty() bool {
	return p.FullName == nil && p.NickName == nil && p.ImageURI == nil && p.Description == nil &&
		p.Circle == nil && p.CustomReminderDays == nil && !p.ClearCustomReminderDays
}

func (p ContactPatch) Apply(c Contact) Contact {
	out := c
	if p.FullName != nil {
		out.FullName = *p.FullName
	}
	if p.NickName != nil {
		out.NickName = *p.NickName
	}
	if p.ImageURI != nil {
		out.ImageURI = *p.ImageURI
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Circle != nil {
		out.Circle = *p.Circle
	}
	if p.ClearCustomReminderDays {
		out.CustomReminderDays = nil
	} else if p.CustomReminderDays != nil {
		v := *p.CustomReminderDays
		out.CustomReminderDays = &v
	}
	return out
}

type ContactLog struct {
	ID              int64
	ContactSystemID string
	CreatedAt       time.Time
	Summary         string
	WasOverdue      bool
}

// LogInput is a new interaction. A nil CreatedAt means "now".
type LogInput struct {
	ContactSystemID string
	Summary         string
	CreatedAt       *time.Time
}

func (in LogInput) Validate() error {
	if strings.TrimSpace(in.ContactSystemID) == "" {
		return errors.New("model: log contact_system_id is required")
	}
	return nil
}
