package consumers

import (
	"context"

	"github.com/Vinubaba/TOUCH-API/messaging"
	"github.com/Vinubaba/TOUCH-API/notification"
	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/pkg/errors"
)

// NotificationHandler sends the consultation mails queued by the api.
type NotificationHandler struct {
	Dispatcher interface {
		Dispatch(ctx context.Context, p notification.Participants, meetingLink string, preferMailto bool) (notification.Result, error)
	} `inject:""`
	Logger *shared.Logger `inject:""`
}

func (h *NotificationHandler) CanHandle(event messaging.Event) bool {
	return event.Type == messaging.EventNotificationRequested
}

func (h *NotificationHandler) Name() string {
	return messaging.EventNotificationRequested
}

func (h *NotificationHandler) Handle(ctx context.Context, event messaging.Event) error {
	if event.NotificationRequest == nil {
		return errors.New("notification request is empty")
	}
	if event.MeetingLink == "" {
		return errors.New("meetingLink is mandatory")
	}

	result, err := h.Dispatcher.Dispatch(ctx, event.Participants, event.MeetingLink, false)
	if err != nil {
		return errors.Wrap(err, "failed to dispatch notification")
	}
	if result.Method != notification.MethodComposer {
		return notification.ErrComposerUnavailable
	}
	h.Logger.Info(ctx, "notification sent", "appointmentId", event.Participants.Appointment.Id, "senderId", event.SenderId, "attachments", len(result.Attachments))
	return nil
}

// StatusChangeHandler records appointment lifecycle changes.
type StatusChangeHandler struct {
	Logger *shared.Logger `inject:""`
}

func (h *StatusChangeHandler) CanHandle(event messaging.Event) bool {
	return event.Type == messaging.EventAppointmentStatusChanged
}

func (h *StatusChangeHandler) Name() string {
	return messaging.EventAppointmentStatusChanged
}

func (h *StatusChangeHandler) Handle(ctx context.Context, event messaging.Event) error {
	if event.AppointmentStatus == nil {
		return errors.New("appointment status is empty")
	}
	h.Logger.Info(ctx, "appointment status changed", "appointmentId", event.AppointmentId, "status", event.Status, "senderId", event.SenderId)
	return nil
}
