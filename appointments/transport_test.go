package appointments_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/Vinubaba/TOUCH-API/appointments"
	"github.com/Vinubaba/TOUCH-API/claims"
	"github.com/Vinubaba/TOUCH-API/meeting"
	"github.com/Vinubaba/TOUCH-API/messaging"
	messagingmocks "github.com/Vinubaba/TOUCH-API/messaging/mocks"
	"github.com/Vinubaba/TOUCH-API/notification"
	notificationmocks "github.com/Vinubaba/TOUCH-API/notification/mocks"
	"github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"
	. "github.com/Vinubaba/TOUCH-API/shared/mocks"
	"github.com/Vinubaba/TOUCH-API/store"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

var _ = Describe("Transport", func() {

	var (
		ctx      = context.Background()
		router   *mux.Router
		recorder *httptest.ResponseRecorder

		workspace           *registry.Workspace
		appointmentService  *AppointmentService
		mockStringGenerator *MockStringGenerator
		mockClock           *MockClock
		mockComposer        *notificationmocks.MockComposer
		mockPublisher       *messagingmocks.MockPublisher

		now = time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)

		httpMethodToUse, httpEndpointToUse, httpBodyToUse string
	)

	const firstLink = "https://meet.jit.si/TOUCH_appointment-1_1711963800000"

	var (
		assertHttpCode = func(code int) {
			It(fmt.Sprintf("should respond with status code %d", code), func() {
				Expect(recorder.Code).To(Equal(code))
			})
		}

		assertJsonResponse = func(response string) {
			It("should respond with json response", func() {
				Expect(recorder.Header().Get("Content-Type")).To(ContainSubstring("application/json"))
				Expect(recorder.Body.String()).To(MatchJSON(response))
			})
		}

		assertStatus = func(status registry.Status) {
			It(fmt.Sprintf("should leave the appointment %s", status), func() {
				appointment, err := workspace.Appointments.Get("appointment-1")
				Expect(err).To(BeNil())
				Expect(appointment.Status).To(Equal(status))
			})
		}
	)

	BeforeEach(func() {
		mockClock = &MockClock{}
		mockClock.On("Now").Return(now)
		mockStringGenerator = &MockStringGenerator{}
		for _, id := range []string{"child-1", "daycare-1", "clinic-1", "appointment-1", "appointment-2"} {
			mockStringGenerator.On("GenerateUuid").Return(id).Once()
		}
		mockComposer = &notificationmocks.MockComposer{}
		mockComposer.On("Available").Return(false)
		mockPublisher = &messagingmocks.MockPublisher{}
		mockPublisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		manager := &registry.Manager{
			Mirror:          store.NewMemoryMirror(),
			StringGenerator: mockStringGenerator,
			Clock:           mockClock,
			Broadcaster:     registry.NewBroadcaster(),
			MeetingLinks:    &meeting.Generator{Clock: mockClock},
			Config:          &shared.AppConfig{},
			Logger:          shared.NewLogger("touch-test"),
		}
		var err error
		workspace, err = manager.Open(ctx, "uid-1")
		Expect(err).To(BeNil())

		_, err = workspace.Children.Add(ctx, registry.Child{ParentId: "uid-1", Name: "Taro", BirthDate: "2020-05-01", InsuranceCardImage: "parents/uid-1/children/card.jpg"})
		Expect(err).To(BeNil())
		_, err = workspace.Daycares.Add(ctx, registry.Daycare{Name: "Sample Daycare", Email: "d@example.com"})
		Expect(err).To(BeNil())
		_, err = workspace.Clinics.Add(ctx, registry.Clinic{Name: "Sample Clinic", Email: "c@example.com"})
		Expect(err).To(BeNil())

		appointmentService = &AppointmentService{
			Workspaces: manager,
			Dispatcher: &notification.Dispatcher{
				Composer: mockComposer,
				Config:   &shared.AppConfig{},
				Logger:   shared.NewLogger("touch-test"),
			},
			Publisher: mockPublisher,
			Clock:     mockClock,
			Logger:    shared.NewLogger("touch-test"),
		}
		handlerFactory := HandlerFactory{Service: appointmentService}
		opts := []kithttp.ServerOption{
			kithttp.ServerErrorEncoder(EncodeError),
		}

		router = mux.NewRouter()
		router.Handle("/appointments", handlerFactory.Add(opts)).Methods(http.MethodPost)
		router.Handle("/appointments", handlerFactory.List(opts)).Methods(http.MethodGet)
		router.Handle("/appointments/selected", handlerFactory.Selected(opts)).Methods(http.MethodGet)
		router.Handle("/appointments/{appointmentId}", handlerFactory.Get(opts)).Methods(http.MethodGet)
		router.Handle("/appointments/{appointmentId}", handlerFactory.Update(opts)).Methods(http.MethodPatch)
		router.Handle("/appointments/{appointmentId}", handlerFactory.Delete(opts)).Methods(http.MethodDelete)
		router.Handle("/appointments/{appointmentId}/select", handlerFactory.Select(opts)).Methods(http.MethodPost)
		router.Handle("/appointments/{appointmentId}/unselect", handlerFactory.Unselect(opts)).Methods(http.MethodPost)
		router.Handle("/appointments/{appointmentId}/start", handlerFactory.Start(opts)).Methods(http.MethodPost)
		router.Handle("/appointments/{appointmentId}/complete", handlerFactory.Complete(opts)).Methods(http.MethodPost)
		router.Handle("/appointments/{appointmentId}/cancel", handlerFactory.Cancel(opts)).Methods(http.MethodPost)
		router.Handle("/appointments/{appointmentId}/meeting-link", handlerFactory.MeetingLink(opts)).Methods(http.MethodGet)
		router.Handle("/appointments/{appointmentId}/meeting-link", handlerFactory.RegenerateMeetingLink(opts)).Methods(http.MethodPost)
		router.Handle("/appointments/{appointmentId}/details", handlerFactory.Details(opts)).Methods(http.MethodGet)
		router.Handle("/appointments/{appointmentId}/notify", handlerFactory.Notify(opts)).Methods(http.MethodPost)
		router.Handle("/consultations", handlerFactory.StartConsultation(opts)).Methods(http.MethodPost)

		recorder = httptest.NewRecorder()
		httpMethodToUse, httpEndpointToUse, httpBodyToUse = "", "", ""
	})

	JustBeforeEach(func() {
		req, _ := http.NewRequest(httpMethodToUse, httpEndpointToUse, strings.NewReader(httpBodyToUse))
		router.ServeHTTP(recorder, req.WithContext(claims.WithClaims(ctx, claims.Claims{UserId: "uid-1"})))
	})

	addAppointment := func() {
		_, err := workspace.Appointments.Add(ctx, registry.Appointment{ChildId: "child-1", DaycareId: "daycare-1", ClinicId: "clinic-1", Date: "2024-04-02", Time: "10:00"})
		Expect(err).To(BeNil())
	}

	Describe("ADD", func() {

		BeforeEach(func() {
			httpMethodToUse = http.MethodPost
			httpEndpointToUse = "/appointments"
			httpBodyToUse = `{"childId":"child-1","daycareId":"daycare-1","clinicId":"clinic-1","date":"2024/04/02","time":"10:00","notes":"fever","status":"completed","meetingLink":"https://evil.example"}`
		})

		Context("default", func() {
			assertHttpCode(http.StatusCreated)
			assertJsonResponse(`{
				"id":"appointment-1",
				"childId":"child-1",
				"daycareId":"daycare-1",
				"clinicId":"clinic-1",
				"doctorId":"",
				"date":"2024-04-02",
				"time":"10:00",
				"status":"scheduled",
				"notes":"fever",
				"meetingLink":"",
				"updatedAt":"2024-04-01T09:30:00Z"
			}`)
		})

		Context("when the clinic is missing", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"childId":"child-1","daycareId":"daycare-1","date":"2024-04-02","time":"10:00"}`
			})

			assertHttpCode(http.StatusBadRequest)
			assertJsonResponse(`{"error":"clinicId is mandatory"}`)
		})

		Context("when the time is malformed", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"childId":"child-1","daycareId":"daycare-1","clinicId":"clinic-1","date":"2024-04-02","time":"10h"}`
			})

			assertHttpCode(http.StatusBadRequest)
			assertJsonResponse(`{"error":"invalid time, expected HH:MM"}`)
		})

		Context("when the referenced child does not exist", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"childId":"child-9","daycareId":"daycare-1","clinicId":"clinic-1","date":"2024-04-02","time":"10:00"}`
			})

			assertHttpCode(http.StatusCreated)
		})
	})

	Describe("UPDATE", func() {

		BeforeEach(func() {
			addAppointment()
			httpMethodToUse = http.MethodPatch
			httpEndpointToUse = "/appointments/appointment-1"
			httpBodyToUse = `{"date":"20240405","notes":"cough"}`
		})

		Context("default", func() {
			assertHttpCode(http.StatusOK)

			It("should merge the given fields", func() {
				appointment, _ := workspace.Appointments.Get("appointment-1")
				Expect(appointment.Date).To(Equal("2024-04-05"))
				Expect(appointment.Notes).To(Equal("cough"))
				Expect(appointment.Time).To(Equal("10:00"))
				Expect(appointment.Status).To(Equal(registry.StatusScheduled))
			})
		})

		Context("when the child id is emptied", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"childId":""}`
			})

			assertHttpCode(http.StatusBadRequest)
		})

		Context("when the appointment does not exist", func() {
			BeforeEach(func() {
				httpEndpointToUse = "/appointments/appointment-9"
			})

			assertHttpCode(http.StatusNotFound)
		})
	})

	Describe("LIST, SELECTION and DELETE", func() {

		BeforeEach(func() {
			addAppointment()
			addAppointment()
		})

		Context("when listing", func() {
			BeforeEach(func() {
				httpMethodToUse = http.MethodGet
				httpEndpointToUse = "/appointments"
			})

			assertHttpCode(http.StatusOK)

			It("should return every appointment", func() {
				appointments := []AppointmentTransport{}
				Expect(json.Unmarshal(recorder.Body.Bytes(), &appointments)).To(Succeed())
				Expect(appointments).To(HaveLen(2))
			})
		})

		Context("when deleting the selected appointment", func() {
			BeforeEach(func() {
				Expect(workspace.Appointments.Select(ctx, "appointment-2")).To(Succeed())
				httpMethodToUse = http.MethodDelete
				httpEndpointToUse = "/appointments/appointment-2"
			})

			assertHttpCode(http.StatusNoContent)

			It("should clear the selection", func() {
				Expect(workspace.Appointments.List()).To(HaveLen(1))
				_, ok := workspace.Appointments.Selected()
				Expect(ok).To(BeFalse())
			})
		})

		Context("when selecting", func() {
			BeforeEach(func() {
				httpMethodToUse = http.MethodPost
				httpEndpointToUse = "/appointments/appointment-1/select"
			})

			assertHttpCode(http.StatusNoContent)

			It("should select it", func() {
				appointment, ok := workspace.Appointments.Selected()
				Expect(ok).To(BeTrue())
				Expect(appointment.Id).To(Equal("appointment-1"))
			})
		})
	})

	Describe("LIFECYCLE", func() {

		BeforeEach(func() {
			addAppointment()
			httpMethodToUse = http.MethodPost
			httpEndpointToUse = "/appointments/appointment-1/start"
		})

		Context("when starting a scheduled appointment", func() {
			assertHttpCode(http.StatusOK)
			assertStatus(registry.StatusInProgress)

			It("should assign a meeting link", func() {
				appointment, _ := workspace.Appointments.Get("appointment-1")
				Expect(appointment.MeetingLink).To(Equal(firstLink))
			})

			It("should publish the status change", func() {
				events := mockPublisher.PublishedEvents()
				Expect(events).To(HaveLen(1))
				Expect(events[0].Type).To(Equal(messaging.EventAppointmentStatusChanged))
				Expect(events[0].SenderId).To(Equal("uid-1"))
				Expect(events[0].AppointmentStatus).To(Equal(&messaging.AppointmentStatus{AppointmentId: "appointment-1", Status: "in-progress"}))
			})
		})

		Context("when completing an in-progress appointment", func() {
			BeforeEach(func() {
				_, err := workspace.Appointments.Start(ctx, "appointment-1")
				Expect(err).To(BeNil())
				httpEndpointToUse = "/appointments/appointment-1/complete"
			})

			assertHttpCode(http.StatusOK)
			assertStatus(registry.StatusCompleted)
		})

		Context("when completing a scheduled appointment", func() {
			BeforeEach(func() {
				httpEndpointToUse = "/appointments/appointment-1/complete"
			})

			assertHttpCode(http.StatusBadRequest)
			assertJsonResponse(`{"error":"failed to complete appointment: scheduled to completed: invalid appointment status transition"}`)
			assertStatus(registry.StatusScheduled)

			It("should not publish anything", func() {
				Expect(mockPublisher.PublishedEvents()).To(BeEmpty())
			})
		})

		Context("when cancelling a scheduled appointment", func() {
			BeforeEach(func() {
				httpEndpointToUse = "/appointments/appointment-1/cancel"
			})

			assertHttpCode(http.StatusOK)
			assertStatus(registry.StatusCancelled)
		})

		Context("when starting a cancelled appointment", func() {
			BeforeEach(func() {
				_, err := workspace.Appointments.Cancel(ctx, "appointment-1")
				Expect(err).To(BeNil())
			})

			assertHttpCode(http.StatusBadRequest)
			assertStatus(registry.StatusCancelled)
		})

		Context("when publishing fails", func() {
			BeforeEach(func() {
				mockPublisher.ExpectedCalls = nil
				mockPublisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("topic gone"))
			})

			assertHttpCode(http.StatusOK)
			assertStatus(registry.StatusInProgress)
		})

		Context("when no publisher is configured", func() {
			BeforeEach(func() {
				appointmentService.Publisher = nil
			})

			assertHttpCode(http.StatusOK)
		})
	})

	Describe("MEETING LINK", func() {

		BeforeEach(func() {
			addAppointment()
			httpEndpointToUse = "/appointments/appointment-1/meeting-link"
		})

		Context("when reading it for the first time", func() {
			BeforeEach(func() {
				httpMethodToUse = http.MethodGet
			})

			assertHttpCode(http.StatusOK)
			assertJsonResponse(fmt.Sprintf(`{"appointmentId":"appointment-1","meetingLink":%q}`, firstLink))
		})

		Context("when a link already exists", func() {
			BeforeEach(func() {
				_, err := workspace.Appointments.GenerateMeetingLink(ctx, "appointment-1")
				Expect(err).To(BeNil())
				mockClock.ExpectedCalls = nil
				mockClock.On("Now").Return(now.Add(time.Minute))
			})

			Context("when reading it", func() {
				BeforeEach(func() {
					httpMethodToUse = http.MethodGet
				})

				It("should return the stored link", func() {
					Expect(recorder.Body.String()).To(ContainSubstring(firstLink))
				})
			})

			Context("when regenerating it", func() {
				BeforeEach(func() {
					httpMethodToUse = http.MethodPost
				})

				assertHttpCode(http.StatusCreated)

				It("should overwrite the stored link", func() {
					appointment, _ := workspace.Appointments.Get("appointment-1")
					Expect(appointment.MeetingLink).To(Equal("https://meet.jit.si/TOUCH_appointment-1_1711963860000"))
					Expect(recorder.Body.String()).To(ContainSubstring(appointment.MeetingLink))
				})
			})
		})

		Context("when the appointment does not exist", func() {
			BeforeEach(func() {
				httpMethodToUse = http.MethodGet
				httpEndpointToUse = "/appointments/appointment-9/meeting-link"
			})

			assertHttpCode(http.StatusNotFound)
		})
	})

	Describe("DETAILS", func() {

		BeforeEach(func() {
			addAppointment()
			httpMethodToUse = http.MethodGet
			httpEndpointToUse = "/appointments/appointment-1/details"
		})

		Context("when every participant exists", func() {
			assertHttpCode(http.StatusOK)

			It("should resolve them", func() {
				details := DetailsTransport{}
				Expect(json.Unmarshal(recorder.Body.Bytes(), &details)).To(Succeed())
				Expect(details.Child.Name).To(Equal("Taro"))
				Expect(details.Daycare.Name).To(Equal("Sample Daycare"))
				Expect(details.Clinic.Name).To(Equal("Sample Clinic"))
				Expect(details.Missing).To(BeEmpty())
			})
		})

		Context("when the daycare was deleted", func() {
			BeforeEach(func() {
				Expect(workspace.Daycares.Delete(ctx, "daycare-1")).To(Succeed())
			})

			assertHttpCode(http.StatusOK)

			It("should report it missing", func() {
				details := DetailsTransport{}
				Expect(json.Unmarshal(recorder.Body.Bytes(), &details)).To(Succeed())
				Expect(details.Daycare).To(BeNil())
				Expect(details.Missing).To(Equal([]string{"daycare"}))
			})
		})
	})

	Describe("NOTIFY", func() {

		BeforeEach(func() {
			addAppointment()
			httpMethodToUse = http.MethodPost
			httpEndpointToUse = "/appointments/appointment-1/notify"
		})

		Context("when the composer is not available", func() {
			assertHttpCode(http.StatusOK)

			It("should return a mailto link and a manual attachment notice", func() {
				result := map[string]interface{}{}
				Expect(json.Unmarshal(recorder.Body.Bytes(), &result)).To(Succeed())
				Expect(result["queued"]).To(BeFalse())
				Expect(result["method"]).To(Equal(notification.MethodMailto))
				Expect(result["mailtoUrl"]).To(HavePrefix("mailto:d@example.com?cc=c%40example.com"))
				Expect(result["notice"]).To(Equal(notification.NoticeAttachManually))
			})

			It("should generate the meeting link first", func() {
				appointment, _ := workspace.Appointments.Get("appointment-1")
				Expect(appointment.MeetingLink).To(Equal(firstLink))
			})
		})

		Context("when queued", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"mode":"queued"}`
			})

			assertHttpCode(http.StatusAccepted)

			It("should publish a snapshot of the participants", func() {
				events := mockPublisher.PublishedEvents()
				Expect(events).To(HaveLen(1))
				Expect(events[0].Type).To(Equal(messaging.EventNotificationRequested))
				Expect(events[0].MeetingLink).To(Equal(firstLink))
				Expect(events[0].Participants.Daycare.Email).To(Equal("d@example.com"))
			})
		})

		Context("when queued without a publisher", func() {
			BeforeEach(func() {
				appointmentService.Publisher = nil
				httpBodyToUse = `{"mode":"queued"}`
			})

			assertHttpCode(http.StatusServiceUnavailable)
		})

		Context("when the mode is unknown", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"mode":"pigeon"}`
			})

			assertHttpCode(http.StatusBadRequest)
		})

		Context("when the clinic was deleted", func() {
			BeforeEach(func() {
				Expect(workspace.Clinics.Delete(ctx, "clinic-1")).To(Succeed())
			})

			assertHttpCode(http.StatusConflict)
			assertJsonResponse(`{"error":"clinic: missing participants"}`)
		})
	})

	Describe("CONSULTATION", func() {

		BeforeEach(func() {
			httpMethodToUse = http.MethodPost
			httpEndpointToUse = "/consultations"
			httpBodyToUse = `{"childId":"child-1","daycareId":"daycare-1","clinicId":"clinic-1"}`
		})

		Context("default", func() {
			assertHttpCode(http.StatusCreated)
			assertJsonResponse(fmt.Sprintf(`{
				"id":"appointment-1",
				"childId":"child-1",
				"daycareId":"daycare-1",
				"clinicId":"clinic-1",
				"doctorId":"",
				"date":"2024-04-01",
				"time":"09:30",
				"status":"scheduled",
				"notes":"Urgent online consultation",
				"meetingLink":%q,
				"updatedAt":"2024-04-01T09:30:00Z"
			}`, firstLink))

			It("should match the meeting link format", func() {
				appointment, _ := workspace.Appointments.Get("appointment-1")
				Expect(appointment.MeetingLink).To(MatchRegexp(`^https://meet\.jit\.si/TOUCH_appointment-1_\d+$`))
			})
		})

		Context("when the daycare is not chosen", func() {
			BeforeEach(func() {
				httpBodyToUse = `{"childId":"child-1","clinicId":"clinic-1"}`
			})

			assertHttpCode(http.StatusBadRequest)

			It("should not create an appointment", func() {
				Expect(workspace.Appointments.List()).To(BeEmpty())
			})
		})
	})
})
