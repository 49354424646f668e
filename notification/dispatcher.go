package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Vinubaba/TOUCH-API/metrics"
	"github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"
	"github.com/Vinubaba/TOUCH-API/storage"

	"github.com/pkg/errors"
)

var ErrForeignDocument = errors.New("document is not stored for this child's parent")

const (
	MethodComposer = "composer"
	MethodMailto   = "mailto"
)

// Result tells the caller how the notification went out.
type Result struct {
	Method      string   `json:"method"`
	MailtoUrl   string   `json:"mailtoUrl,omitempty"`
	Attachments []string `json:"attachments"`
	Notice      string   `json:"notice,omitempty"`
}

type Dispatcher struct {
	Composer   Composer          `inject:""`
	Storage    storage.Storage   `inject:""`
	Config     *shared.AppConfig `inject:""`
	Logger     *shared.Logger    `inject:""`
	HttpClient *http.Client
}

// Dispatch announces the consultation to the daycare, with the clinic in copy.
// The composer is used when available unless preferMailto is set; otherwise a mailto URL is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, p Participants, meetingLink string, preferMailto bool) (Result, error) {
	if err := p.check(); err != nil {
		return Result{}, err
	}

	subject := Subject(*p.Child)
	body := Body(p, meetingLink)
	result := Result{Attachments: []string{}}
	if !p.Child.HasDocuments() {
		result.Notice = NoticeNoDocuments
	}

	if preferMailto || d.Composer == nil || !d.Composer.Available() {
		result.Method = MethodMailto
		result.MailtoUrl = Mailto(p.Daycare.Email, p.Clinic.Email, subject, body)
		if p.Child.HasDocuments() {
			result.Notice = NoticeAttachManually
		}
		metrics.Notifications.WithLabelValues(MethodMailto).Inc()
		return result, nil
	}

	dir, err := d.cacheDir()
	if err != nil {
		return Result{}, err
	}
	defer os.RemoveAll(dir)

	message := Message{
		To:          []string{p.Daycare.Email},
		Cc:          []string{p.Clinic.Email},
		Subject:     subject,
		Body:        body,
		Attachments: d.attachments(ctx, dir, *p.Child),
	}
	if err := d.Composer.Send(ctx, message); err != nil {
		return Result{}, errors.Wrap(err, "failed to send consultation mail")
	}
	for _, attachment := range message.Attachments {
		result.Attachments = append(result.Attachments, attachment.Name)
	}
	result.Method = MethodComposer
	metrics.Notifications.WithLabelValues(MethodComposer).Inc()
	d.Logger.Info(ctx, "consultation mail sent", "appointmentId", p.Appointment.Id, "attachments", len(message.Attachments))
	return result, nil
}

// cacheDir creates a directory private to one dispatch, removed once the mail is sent.
func (d *Dispatcher) cacheDir() (string, error) {
	if err := os.MkdirAll(d.Config.MailCacheDir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create mail cache")
	}
	dir, err := os.MkdirTemp(d.Config.MailCacheDir, "dispatch-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create mail cache")
	}
	return dir, nil
}

// attachments prepares the child documents in dir. A document that cannot be fetched is skipped.
func (d *Dispatcher) attachments(ctx context.Context, dir string, child registry.Child) []Attachment {
	label := fileLabel(child)
	documents := []struct{ ref, file string }{
		{child.InsuranceCardImage, "insurance_card.jpg"},
		{child.RecipientCertImage, "recipient_certificate.jpg"},
	}

	var attachments []Attachment
	for _, document := range documents {
		if document.ref == "" {
			continue
		}
		path, err := d.prepareAttachment(ctx, child, document.ref, filepath.Join(dir, document.file))
		if err != nil {
			d.Logger.Warn(ctx, "failed to prepare attachment", "childId", child.Id, "file", document.file, "err", err)
			continue
		}
		attachments = append(attachments, Attachment{Path: path, Name: label + "_" + document.file})
	}
	return attachments
}

// fileLabel turns the child name into something safe to use in a file name.
func fileLabel(child registry.Child) string {
	label := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, child.Name)
	if strings.Trim(label, "_") == "" {
		return child.Id
	}
	return label
}

// prepareAttachment fetches an external document or one stored in the parent's folder.
func (d *Dispatcher) prepareAttachment(ctx context.Context, child registry.Child, ref, dest string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return d.download(ctx, ref, dest)
	case child.ParentId == "" || strings.Contains(ref, "..") || !strings.HasPrefix(ref, "parents/"+child.ParentId+"/children/"):
		return "", errors.Wrap(ErrForeignDocument, ref)
	}

	uri, err := d.Storage.Get(ctx, ref)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", ref)
	}
	if strings.HasPrefix(uri, "file://") {
		return localPath(uri)
	}
	return d.download(ctx, uri, dest)
}

func (d *Dispatcher) download(ctx context.Context, uri, dest string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		return "", err
	}
	client := d.HttpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return "", errors.Wrap(err, "failed to download attachment")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download attachment: status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", errors.Wrap(err, "failed to create attachment")
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", errors.Wrap(err, "failed to write attachment")
	}
	return dest, nil
}

func localPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	path := filepath.FromSlash(u.Path)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
