package notification

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Vinubaba/TOUCH-API/registry"

	"github.com/pkg/errors"
)

var ErrMissingParticipants = errors.New("missing participants")

const (
	NoticeAttachManually = "Documents cannot be attached to a mailto link. Please attach the insurance card and recipient certificate manually."
	NoticeNoDocuments    = "No insurance card or recipient certificate is registered for this child."
)

// Participants is everything needed to announce a consultation. Nil entities were not found.
type Participants struct {
	Appointment registry.Appointment `json:"appointment"`
	Child       *registry.Child      `json:"child"`
	Daycare     *registry.Daycare    `json:"daycare"`
	Clinic      *registry.Clinic     `json:"clinic"`
}

// Missing lists the participant kinds that could not be resolved.
func (p Participants) Missing() []string {
	missing := []string{}
	if p.Child == nil {
		missing = append(missing, "child")
	}
	if p.Daycare == nil {
		missing = append(missing, "daycare")
	}
	if p.Clinic == nil {
		missing = append(missing, "clinic")
	}
	return missing
}

func (p Participants) check() error {
	if missing := p.Missing(); len(missing) > 0 {
		return errors.Wrap(ErrMissingParticipants, strings.Join(missing, ", "))
	}
	return nil
}

type Message struct {
	To          []string
	Cc          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Attachment is a file on disk and the name it is sent under.
type Attachment struct {
	Path string
	Name string
}

func Subject(child registry.Child) string {
	return fmt.Sprintf("[TOUCH] Online consultation for %s", child.Name)
}

func Body(p Participants, meetingLink string) string {
	greeting := p.Daycare.ContactPerson
	if greeting == "" {
		greeting = p.Daycare.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s and %s,\n\n", greeting, p.Clinic.Name)
	fmt.Fprintf(&b, "An online consultation has been arranged for %s.\n\n", p.Child.Name)
	fmt.Fprintf(&b, "Date: %s %s\n", p.Appointment.Date, p.Appointment.Time)
	fmt.Fprintf(&b, "Daycare: %s\n", p.Daycare.Name)
	fmt.Fprintf(&b, "Clinic: %s\n\n", p.Clinic.Name)
	fmt.Fprintf(&b, "Please join the consultation with the following link:\n%s\n\n", meetingLink)
	if p.Child.HasDocuments() {
		b.WriteString("* The child's insurance card and recipient certificate are attached.\n")
	}
	b.WriteString("* The link opens the meeting room in your browser.\n")
	b.WriteString("* Please allow access to your camera and microphone.\n\n")
	b.WriteString("Best regards,\nTOUCH\n")
	return b.String()
}

// Mailto builds a mailto URL. Spaces are encoded as %20 since mail clients do not all decode '+'.
func Mailto(to, cc, subject, body string) string {
	u := "mailto:" + url.PathEscape(to) + "?cc=" + encode(cc)
	u += "&subject=" + encode(subject)
	u += "&body=" + encode(body)
	return u
}

func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
