package messaging_test

import (
	. "github.com/Vinubaba/TOUCH-API/messaging"
	"github.com/Vinubaba/TOUCH-API/notification"
	"github.com/Vinubaba/TOUCH-API/registry"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Message", func() {

	Context("when encoding a notification request", func() {
		var (
			msg   Message
			event Event
		)

		BeforeEach(func() {
			var err error
			msg, err = NewEventMessage(Event{
				Type:     EventNotificationRequested,
				SenderId: "uid-1",
				NotificationRequest: &NotificationRequest{
					Participants: notification.Participants{
						Appointment: registry.Appointment{Id: "appointment-1", Status: registry.StatusScheduled},
						Child:       &registry.Child{Id: "child-1", Name: "Taro"},
					},
					MeetingLink: "https://meet.jit.si/TOUCH_appointment-1_1",
				},
			})
			Expect(err).To(BeNil())
			event, err = DecodeEvent(msg)
			Expect(err).To(BeNil())
		})

		It("should tag the message with the event type", func() {
			Expect(msg.Attributes).To(HaveKeyWithValue("type", EventNotificationRequested))
		})

		It("should keep the participants snapshot", func() {
			Expect(event.SenderId).To(Equal("uid-1"))
			Expect(event.AppointmentStatus).To(BeNil())
			Expect(event.NotificationRequest).NotTo(BeNil())
			Expect(event.Participants.Child.Name).To(Equal("Taro"))
			Expect(event.Participants.Daycare).To(BeNil())
			Expect(event.MeetingLink).To(Equal("https://meet.jit.si/TOUCH_appointment-1_1"))
		})
	})

	Context("when the payload is not json", func() {
		It("should return an error", func() {
			_, err := DecodeEvent(Message{Data: []byte("nope")})
			Expect(err).NotTo(BeNil())
		})
	})

	Context("when acknowledging", func() {
		It("should call the registered callbacks", func() {
			acked, nacked := false, false
			msg := Message{}
			msg.RegisterAck(func() error { acked = true; return nil })
			msg.RegisterNack(func() error { nacked = true; return nil })
			Expect(msg.Ack()).To(Succeed())
			Expect(msg.Nack()).To(Succeed())
			Expect(acked).To(BeTrue())
			Expect(nacked).To(BeTrue())
		})

		It("should not fail without callbacks", func() {
			Expect(Message{}.Nack()).To(Succeed())
		})
	})
})
