package registry_test

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	. "github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"
	"github.com/Vinubaba/TOUCH-API/store"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

var _ = Describe("AppointmentStore", func() {

	var (
		ctx          = context.Background()
		mirror       *store.MemoryMirror
		appointments *AppointmentStore
		appointment  Appointment
	)

	BeforeEach(func() {
		mirror = store.NewMemoryMirror()
		workspace, err := newManager(mirror, &shared.AppConfig{}).Open(ctx, "parent-1")
		Expect(err).To(BeNil())
		appointments = workspace.Appointments

		appointment, err = appointments.Add(ctx, Appointment{
			Id:          "forced",
			ChildId:     "child-1",
			DaycareId:   "dc1",
			ClinicId:    "c1",
			Date:        "2024-04-01",
			Time:        "09:30",
			Status:      StatusCompleted,
			MeetingLink: "https://example.org/forced",
		})
		Expect(err).To(BeNil())
	})

	Describe("Add", func() {
		It("should schedule the appointment without a meeting link", func() {
			Expect(appointment.Id).NotTo(Equal("forced"))
			Expect(appointment.Status).To(Equal(StatusScheduled))
			Expect(appointment.MeetingLink).To(BeEmpty())
		})
	})

	Describe("Lifecycle", func() {
		It("should go from scheduled to in-progress to completed", func() {
			started, err := appointments.Start(ctx, appointment.Id)
			Expect(err).To(BeNil())
			Expect(started.Status).To(Equal(StatusInProgress))

			completed, err := appointments.Complete(ctx, appointment.Id)
			Expect(err).To(BeNil())
			Expect(completed.Status).To(Equal(StatusCompleted))
		})

		It("should allow cancelling a scheduled appointment", func() {
			cancelled, err := appointments.Cancel(ctx, appointment.Id)
			Expect(err).To(BeNil())
			Expect(cancelled.Status).To(Equal(StatusCancelled))
		})

		It("should refuse to complete a scheduled appointment", func() {
			_, err := appointments.Complete(ctx, appointment.Id)
			Expect(errors.Cause(err)).To(Equal(ErrInvalidTransition))
			stored, _ := appointments.Get(appointment.Id)
			Expect(stored.Status).To(Equal(StatusScheduled))
		})

		It("should refuse to cancel an appointment in progress", func() {
			_, err := appointments.Start(ctx, appointment.Id)
			Expect(err).To(BeNil())
			_, err = appointments.Cancel(ctx, appointment.Id)
			Expect(errors.Cause(err)).To(Equal(ErrInvalidTransition))
		})

		It("should treat completed and cancelled as terminal", func() {
			_, err := appointments.Cancel(ctx, appointment.Id)
			Expect(err).To(BeNil())
			for _, next := range []Status{StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled} {
				_, err := appointments.Transition(ctx, appointment.Id, next)
				Expect(errors.Cause(err)).To(Equal(ErrInvalidTransition))
			}
		})

		It("should keep an abandoned consultation in progress", func() {
			_, err := appointments.Start(ctx, appointment.Id)
			Expect(err).To(BeNil())

			reopened, err := newManager(mirror, &shared.AppConfig{}).Open(ctx, "parent-1")
			Expect(err).To(BeNil())
			stored, err := reopened.Appointments.Get(appointment.Id)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(StatusInProgress))
		})
	})

	Describe("Meeting links", func() {
		It("should assign a link when the consultation starts", func() {
			started, err := appointments.Start(ctx, appointment.Id)
			Expect(err).To(BeNil())
			Expect(started.MeetingLink).To(HavePrefix("https://meet.jit.si/TOUCH_" + appointment.Id + "_"))
		})

		It("should generate lazily only once", func() {
			first, err := appointments.EnsureMeetingLink(ctx, appointment.Id)
			Expect(err).To(BeNil())
			second, err := appointments.EnsureMeetingLink(ctx, appointment.Id)
			Expect(err).To(BeNil())
			Expect(first.MeetingLink).NotTo(BeEmpty())
			Expect(second.MeetingLink).To(Equal(first.MeetingLink))
		})

		It("should keep the lazily generated link when the consultation starts", func() {
			ensured, err := appointments.EnsureMeetingLink(ctx, appointment.Id)
			Expect(err).To(BeNil())
			started, err := appointments.Start(ctx, appointment.Id)
			Expect(err).To(BeNil())
			Expect(started.MeetingLink).To(Equal(ensured.MeetingLink))
		})

		It("should overwrite the link on explicit generation", func() {
			first, err := appointments.GenerateMeetingLink(ctx, appointment.Id)
			Expect(err).To(BeNil())
			second, err := appointments.GenerateMeetingLink(ctx, appointment.Id)
			Expect(err).To(BeNil())
			Expect(second.MeetingLink).NotTo(Equal(first.MeetingLink))

			stored, _ := appointments.Get(appointment.Id)
			Expect(stored.MeetingLink).To(Equal(second.MeetingLink))
			Expect(strings.Count(stored.MeetingLink, "_")).To(Equal(2))
		})

		It("should report unknown appointments", func() {
			_, err := appointments.EnsureMeetingLink(ctx, "unknown")
			Expect(err).To(Equal(ErrAppointmentNotFound))
		})
	})

	Describe("Update", func() {
		It("should change the schedule without touching status or link", func() {
			started, err := appointments.Start(ctx, appointment.Id)
			Expect(err).To(BeNil())

			date, notes := "2024-04-02", "fever since last night"
			updated, err := appointments.Update(ctx, appointment.Id, AppointmentUpdate{Date: &date, Notes: &notes})
			Expect(err).To(BeNil())
			Expect(updated.Date).To(Equal(date))
			Expect(updated.Notes).To(Equal(notes))
			Expect(updated.Status).To(Equal(StatusInProgress))
			Expect(updated.MeetingLink).To(Equal(started.MeetingLink))
		})
	})
})

var _ = Describe("Remote appointment copies", func() {

	var (
		ctx         = context.Background()
		workspace   *Workspace
		appointment Appointment
		remote      Appointment
		applied     bool
		applyErr    error
	)

	BeforeEach(func() {
		var err error
		workspace, err = newManager(store.NewMemoryMirror(), &shared.AppConfig{SyncAllEntities: true}).Open(ctx, "parent-1")
		Expect(err).To(BeNil())
		appointment, err = workspace.Appointments.Add(ctx, Appointment{ChildId: "child-1", DaycareId: "dc1", ClinicId: "c1", Date: "2024-04-01", Time: "09:30"})
		Expect(err).To(BeNil())
	})

	JustBeforeEach(func() {
		current, err := workspace.Appointments.Get(appointment.Id)
		Expect(err).To(BeNil())
		remote.Id = appointment.Id
		remote.UpdatedAt = current.UpdatedAt.Add(time.Minute)
		payload, err := json.Marshal(remote)
		Expect(err).To(BeNil())
		applied, applyErr = workspace.ApplyRemote(ctx, KindAppointment, payload)
	})

	Context("when the local appointment is completed and the remote copy is still scheduled", func() {
		BeforeEach(func() {
			_, err := workspace.Appointments.Start(ctx, appointment.Id)
			Expect(err).To(BeNil())
			_, err = workspace.Appointments.Complete(ctx, appointment.Id)
			Expect(err).To(BeNil())
			remote = appointment
			remote.Status = StatusScheduled
			remote.Notes = "edited elsewhere"
		})

		It("should take the remote fields but keep the completed status", func() {
			Expect(applyErr).To(BeNil())
			Expect(applied).To(BeTrue())
			stored, err := workspace.Appointments.Get(appointment.Id)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(StatusCompleted))
			Expect(stored.Notes).To(Equal("edited elsewhere"))
		})

		It("should queue the merged copy so the remote store converges", func() {
			pending := workspace.Outbox.Pending()
			last := pending[len(pending)-1]
			Expect(last.EntityId).To(Equal(appointment.Id))
			Expect(last.Op).To(Equal(OpUpsert))
			Expect(last.ChangedAt.After(remote.UpdatedAt)).To(BeTrue())

			var queued Appointment
			Expect(json.Unmarshal(last.Payload, &queued)).To(Succeed())
			Expect(queued.Status).To(Equal(StatusCompleted))
		})
	})

	Context("when the local appointment is cancelled and the remote copy is in progress", func() {
		BeforeEach(func() {
			_, err := workspace.Appointments.Cancel(ctx, appointment.Id)
			Expect(err).To(BeNil())
			remote = appointment
			remote.Status = StatusInProgress
		})

		It("should stay cancelled", func() {
			stored, err := workspace.Appointments.Get(appointment.Id)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(StatusCancelled))
		})
	})

	Context("when the remote copy moved the lifecycle forward", func() {
		BeforeEach(func() {
			remote = appointment
			remote.Status = StatusCompleted
			remote.MeetingLink = "https://meet.jit.si/TOUCH_remote"
		})

		It("should accept the remote status", func() {
			stored, err := workspace.Appointments.Get(appointment.Id)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(StatusCompleted))
			Expect(stored.MeetingLink).To(Equal("https://meet.jit.si/TOUCH_remote"))
		})

		It("should not queue anything new", func() {
			for _, change := range workspace.Outbox.Pending() {
				Expect(change.ChangedAt.After(appointment.UpdatedAt)).To(BeFalse())
			}
		})
	})
})

var _ = Describe("Status", func() {
	It("should tell reachable statuses apart", func() {
		Expect(StatusScheduled.Reaches(StatusCompleted)).To(BeTrue())
		Expect(StatusInProgress.Reaches(StatusCompleted)).To(BeTrue())
		Expect(StatusInProgress.Reaches(StatusScheduled)).To(BeFalse())
		Expect(StatusCompleted.Reaches(StatusScheduled)).To(BeFalse())
		Expect(StatusCancelled.Reaches(StatusInProgress)).To(BeFalse())
	})

	It("should reject unknown values on decode", func() {
		var appointment Appointment
		err := jsonUnmarshal(`{"id":"a","status":"postponed"}`, &appointment)
		Expect(errors.Cause(err)).To(Equal(ErrUnknownStatus))
	})

	It("should decode known values", func() {
		var appointment Appointment
		Expect(jsonUnmarshal(`{"id":"a","status":"in-progress"}`, &appointment)).To(Succeed())
		Expect(appointment.Status).To(Equal(StatusInProgress))
	})
})
