package reconcile_test

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Vinubaba/TOUCH-API/meeting"
	. "github.com/Vinubaba/TOUCH-API/reconcile"
	reconcilemocks "github.com/Vinubaba/TOUCH-API/reconcile/mocks"
	"github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"
	sharedmocks "github.com/Vinubaba/TOUCH-API/shared/mocks"
	"github.com/Vinubaba/TOUCH-API/store"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

var _ = Describe("Reconciler", func() {

	var (
		ctx        = context.Background()
		epoch      = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
		remote     *reconcilemocks.MockRemote
		config     *shared.AppConfig
		manager    *registry.Manager
		workspace  *registry.Workspace
		reconciler *Reconciler
		report     Report
		syncErr    error
	)

	childDocument := func(child registry.Child) Document {
		payload, err := json.Marshal(child)
		Expect(err).To(BeNil())
		return Document{Kind: registry.KindChild, Id: child.Id, OwnerId: "parent-1", UpdatedAt: child.UpdatedAt, Payload: payload}
	}

	BeforeEach(func() {
		remote = &reconcilemocks.MockRemote{}
		config = &shared.AppConfig{}
		clock := sharedmocks.Ticking(epoch, time.Second)
		manager = &registry.Manager{
			Mirror:          store.NewMemoryMirror(),
			StringGenerator: &shared.StringGenerator{},
			Clock:           clock,
			Broadcaster:     registry.NewBroadcaster(),
			MeetingLinks:    &meeting.Generator{Clock: clock},
			Config:          config,
			Logger:          shared.NewLogger("reconcile-test"),
		}
		reconciler = &Reconciler{
			Remote:     remote,
			Workspaces: manager,
			Config:     config,
			Logger:     shared.NewLogger("reconcile-test"),
		}
	})

	JustBeforeEach(func() {
		var err error
		workspace, err = manager.Open(ctx, "parent-1")
		Expect(err).To(BeNil())
	})

	Describe("Push", func() {
		var taro registry.Child

		JustBeforeEach(func() {
			var err error
			taro, err = workspace.Children.Add(ctx, registry.Child{Name: "Taro", BirthDate: "2020-05-01"})
			Expect(err).To(BeNil())
		})

		Context("when the remote store has no copy", func() {
			BeforeEach(func() {
				remote.On("Get", mock.Anything, registry.KindChild, mock.Anything).Return(Document{}, false, nil)
				remote.On("Put", mock.Anything, mock.Anything).Return(nil)
			})

			JustBeforeEach(func() {
				report = Report{}
				syncErr = reconciler.Push(ctx, workspace, &report)
			})

			It("should put the child and drain the outbox", func() {
				Expect(syncErr).To(BeNil())
				Expect(report.Pushed).To(Equal(1))
				Expect(workspace.Outbox.Pending()).To(BeEmpty())
				remote.AssertCalled(GinkgoT(), "Put", mock.Anything, mock.MatchedBy(func(doc Document) bool {
					return doc.Kind == registry.KindChild && doc.Id == taro.Id && doc.OwnerId == "parent-1" && doc.UpdatedAt.Equal(taro.UpdatedAt)
				}))
			})
		})

		Context("when the remote copy is newer", func() {
			JustBeforeEach(func() {
				remoteTaro := registry.Child{Id: taro.Id, ParentId: "parent-1", Name: "Taro Yamada", BirthDate: "2020-05-01", UpdatedAt: epoch.Add(time.Hour)}
				remote.On("Get", mock.Anything, registry.KindChild, taro.Id).Return(childDocument(remoteTaro), true, nil)

				report = Report{}
				syncErr = reconciler.Push(ctx, workspace, &report)
			})

			It("should keep the remote version and not overwrite it", func() {
				Expect(syncErr).To(BeNil())
				Expect(report.Conflicts).To(Equal(1))
				Expect(report.Pushed).To(Equal(0))
				remote.AssertNotCalled(GinkgoT(), "Put", mock.Anything, mock.Anything)

				child, err := workspace.Children.Get(taro.Id)
				Expect(err).To(BeNil())
				Expect(child.Name).To(Equal("Taro Yamada"))
				Expect(workspace.Outbox.Pending()).To(BeEmpty())
			})
		})

		Context("when the remote store fails", func() {
			BeforeEach(func() {
				remote.On("Get", mock.Anything, registry.KindChild, mock.Anything).Return(Document{}, false, nil)
				remote.On("Put", mock.Anything, mock.Anything).Return(errors.New("unavailable"))
			})

			JustBeforeEach(func() {
				name := "Taro Y."
				_, err := workspace.Children.Update(ctx, taro.Id, registry.ChildUpdate{Name: &name})
				Expect(err).To(BeNil())

				report = Report{}
				syncErr = reconciler.Push(ctx, workspace, &report)
			})

			It("should keep every change queued in order", func() {
				Expect(syncErr).To(BeNil())
				Expect(report.Failed).To(Equal(1))

				pending := workspace.Outbox.Pending()
				Expect(pending).To(HaveLen(2))
				Expect(pending[0].Attempts).To(Equal(1))
				Expect(pending[0].LastError).To(Equal("unavailable"))
				Expect(pending[1].Attempts).To(Equal(0))
			})

			It("should not push later changes of the same entity", func() {
				remote.AssertNumberOfCalls(GinkgoT(), "Put", 1)
			})
		})

		Context("when the child is deleted", func() {
			BeforeEach(func() {
				remote.On("Get", mock.Anything, registry.KindChild, mock.Anything).Return(Document{}, false, nil)
				remote.On("Put", mock.Anything, mock.Anything).Return(nil)
				remote.On("Delete", mock.Anything, registry.KindChild, mock.Anything).Return(nil)
			})

			JustBeforeEach(func() {
				Expect(workspace.Children.Delete(ctx, taro.Id)).To(Succeed())
				report = Report{}
				syncErr = reconciler.Push(ctx, workspace, &report)
			})

			It("should delete the remote copy", func() {
				Expect(syncErr).To(BeNil())
				Expect(report.Pushed).To(Equal(2))
				remote.AssertCalled(GinkgoT(), "Delete", mock.Anything, registry.KindChild, taro.Id)
				Expect(workspace.Outbox.Pending()).To(BeEmpty())
			})
		})
	})

	Describe("Pull", func() {
		var remoteHanako registry.Child

		BeforeEach(func() {
			remoteHanako = registry.Child{Id: "hanako", ParentId: "parent-1", Name: "Hanako", BirthDate: "2021-02-03", UpdatedAt: epoch.Add(time.Hour)}
			remote.On("List", mock.Anything, registry.KindChild, "parent-1").Return([]Document{childDocument(remoteHanako)}, nil)
		})

		JustBeforeEach(func() {
			report = Report{}
			syncErr = reconciler.Pull(ctx, workspace, &report)
		})

		It("should add unknown children", func() {
			Expect(syncErr).To(BeNil())
			Expect(report.Pulled).To(Equal(1))
			Expect(workspace.Children.Get("hanako")).To(Equal(remoteHanako))
		})

		It("should only list synced kinds", func() {
			remote.AssertNumberOfCalls(GinkgoT(), "List", 1)
		})

		Context("when all entities are synced", func() {
			BeforeEach(func() {
				config.SyncAllEntities = true
				remote.On("List", mock.Anything, mock.Anything, "parent-1").Return([]Document{}, nil)
			})

			It("should list every kind", func() {
				remote.AssertNumberOfCalls(GinkgoT(), "List", 4)
			})
		})

		Context("when the local copy is newer", func() {
			BeforeEach(func() {
				remoteHanako.UpdatedAt = epoch.Add(-time.Hour)
				remote.ExpectedCalls = nil
				remote.On("List", mock.Anything, registry.KindChild, "parent-1").Return([]Document{childDocument(remoteHanako)}, nil)
			})

			JustBeforeEach(func() {
				Expect(workspace.Outbox.Pending()).To(BeEmpty())
				// a second pull sees the same stale document
				report = Report{}
				syncErr = reconciler.Pull(ctx, workspace, &report)
			})

			It("should ignore the stale document", func() {
				Expect(syncErr).To(BeNil())
				Expect(report.Pulled).To(Equal(0))
			})
		})

		Context("when the remote store fails", func() {
			BeforeEach(func() {
				remote.ExpectedCalls = nil
				remote.On("List", mock.Anything, registry.KindChild, "parent-1").Return([]Document{}, errors.New("unavailable"))
			})

			It("should return an error", func() {
				Expect(syncErr).To(MatchError(ContainSubstring("unavailable")))
			})
		})
	})

	Describe("Pull with pending changes", func() {
		var taro registry.Child

		JustBeforeEach(func() {
			var err error
			taro, err = workspace.Children.Add(ctx, registry.Child{Name: "Taro"})
			Expect(err).To(BeNil())

			remoteTaro := taro
			remoteTaro.Name = "Remote Taro"
			remoteTaro.UpdatedAt = taro.UpdatedAt.Add(time.Hour)
			remote.On("List", mock.Anything, registry.KindChild, "parent-1").Return([]Document{childDocument(remoteTaro)}, nil)

			report = Report{}
			syncErr = reconciler.Pull(ctx, workspace, &report)
		})

		It("should leave the entity to the next push", func() {
			Expect(syncErr).To(BeNil())
			Expect(report.Pulled).To(Equal(0))
			child, err := workspace.Children.Get(taro.Id)
			Expect(err).To(BeNil())
			Expect(child.Name).To(Equal("Taro"))
		})
	})

	Describe("Pull of an appointment behind the local lifecycle", func() {
		var appointment registry.Appointment

		BeforeEach(func() {
			config.SyncAllEntities = true
		})

		JustBeforeEach(func() {
			var err error
			appointment, err = workspace.Appointments.Add(ctx, registry.Appointment{ChildId: "child-1", DaycareId: "dc1", ClinicId: "c1", Date: "2024-04-01", Time: "09:30"})
			Expect(err).To(BeNil())
			_, err = workspace.Appointments.Start(ctx, appointment.Id)
			Expect(err).To(BeNil())
			appointment, err = workspace.Appointments.Complete(ctx, appointment.Id)
			Expect(err).To(BeNil())
			for _, change := range workspace.Outbox.Pending() {
				Expect(workspace.Outbox.Ack(ctx, change.Seq)).To(Succeed())
			}

			stale := appointment
			stale.Status = registry.StatusScheduled
			stale.UpdatedAt = appointment.UpdatedAt.Add(time.Minute)
			payload, err := json.Marshal(stale)
			Expect(err).To(BeNil())
			remote.On("List", mock.Anything, registry.KindAppointment, "parent-1").Return([]Document{{
				Kind: registry.KindAppointment, Id: appointment.Id, OwnerId: "parent-1", UpdatedAt: stale.UpdatedAt, Payload: payload,
			}}, nil)
			remote.On("List", mock.Anything, mock.Anything, "parent-1").Return([]Document{}, nil)
			remote.On("Get", mock.Anything, registry.KindAppointment, appointment.Id).Return(Document{}, false, nil)
			remote.On("Put", mock.Anything, mock.Anything).Return(nil)

			report = Report{}
			syncErr = reconciler.Pull(ctx, workspace, &report)
		})

		It("should not reopen the completed appointment", func() {
			Expect(syncErr).To(BeNil())
			stored, err := workspace.Appointments.Get(appointment.Id)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(registry.StatusCompleted))
		})

		It("should push the completed status back", func() {
			Expect(workspace.Outbox.Pending()).To(HaveLen(1))

			report = Report{}
			Expect(reconciler.Push(ctx, workspace, &report)).To(Succeed())
			Expect(report.Pushed).To(Equal(1))
			remote.AssertCalled(GinkgoT(), "Put", mock.Anything, mock.MatchedBy(func(doc Document) bool {
				return doc.Kind == registry.KindAppointment && strings.Contains(string(doc.Payload), `"status":"completed"`)
			}))
		})
	})

	Describe("SyncOwner", func() {
		BeforeEach(func() {
			remote.On("List", mock.Anything, registry.KindChild, "parent-2").Return([]Document{}, nil)
		})

		It("should open the workspace and sync it", func() {
			report, err := reconciler.SyncOwner(ctx, "parent-2")
			Expect(err).To(BeNil())
			Expect(report).To(Equal(Report{}))
			Expect(manager.Workspaces()).To(HaveLen(2))
		})

		It("should reject an empty owner", func() {
			_, err := reconciler.SyncOwner(ctx, "")
			Expect(err).NotTo(BeNil())
		})
	})
})
