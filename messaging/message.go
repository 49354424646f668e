package messaging

import (
	"encoding/json"
	"time"

	"github.com/Vinubaba/TOUCH-API/notification"

	"github.com/pkg/errors"
)

const (
	EventAppointmentStatusChanged = "appointmentStatusChanged"
	EventNotificationRequested    = "notificationRequested"

	typeAttribute = "type"
)

type Message struct {
	ID             string
	Data           []byte
	Attributes     map[string]string
	PublishTime    time.Time
	registeredAck  func() error
	registeredNack func() error
}

func (m Message) Ack() error {
	if m.registeredAck != nil {
		return m.registeredAck()
	}
	return nil
}

func (m Message) Nack() error {
	if m.registeredNack != nil {
		return m.registeredNack()
	}
	return nil
}

func (m *Message) RegisterAck(f func() error) {
	m.registeredAck = f
}

func (m *Message) RegisterNack(f func() error) {
	m.registeredNack = f
}

type Event struct {
	Type     string `json:"type"`
	SenderId string `json:"senderId"`
	*AppointmentStatus
	*NotificationRequest
}

type AppointmentStatus struct {
	AppointmentId string `json:"appointmentId"`
	Status        string `json:"status"`
}

// NotificationRequest carries a snapshot of the participants so the consumer does not need the parent's workspace.
type NotificationRequest struct {
	Participants notification.Participants `json:"participants"`
	MeetingLink  string                    `json:"meetingLink"`
}

func NewEventMessage(event Event) (Message, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return Message{}, errors.Wrap(err, "failed to marshal event")
	}
	return Message{
		Data:       b,
		Attributes: map[string]string{typeAttribute: event.Type},
	}, nil
}

func DecodeEvent(msg Message) (Event, error) {
	event := Event{}
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, errors.Wrap(err, "failed to unmarshal the message data")
	}
	return event, nil
}
