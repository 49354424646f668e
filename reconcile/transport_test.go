package reconcile_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/Vinubaba/TOUCH-API/claims"
	"github.com/Vinubaba/TOUCH-API/meeting"
	. "github.com/Vinubaba/TOUCH-API/reconcile"
	reconcilemocks "github.com/Vinubaba/TOUCH-API/reconcile/mocks"
	"github.com/Vinubaba/TOUCH-API/registry"
	"github.com/Vinubaba/TOUCH-API/shared"
	sharedmocks "github.com/Vinubaba/TOUCH-API/shared/mocks"
	"github.com/Vinubaba/TOUCH-API/store"

	kithttp "github.com/go-kit/kit/transport/http"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

var _ = Describe("Transport", func() {

	var (
		ctx            = context.Background()
		remote         *reconcilemocks.MockRemote
		handlerFactory *HandlerFactory
		rec            *httptest.ResponseRecorder
		req            *http.Request
		ownerId        string
	)

	assertHttpCode := func(code int) {
		It(http.StatusText(code), func() {
			Expect(rec.Code).To(Equal(code))
		})
	}

	BeforeEach(func() {
		remote = &reconcilemocks.MockRemote{}
		config := &shared.AppConfig{}
		clock := sharedmocks.Ticking(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), time.Second)
		manager := &registry.Manager{
			Mirror:          store.NewMemoryMirror(),
			StringGenerator: &shared.StringGenerator{},
			Clock:           clock,
			Broadcaster:     registry.NewBroadcaster(),
			MeetingLinks:    &meeting.Generator{Clock: clock},
			Config:          config,
			Logger:          shared.NewLogger("reconcile-test"),
		}
		handlerFactory = &HandlerFactory{
			Reconciler: &Reconciler{
				Remote:     remote,
				Workspaces: manager,
				Config:     config,
				Logger:     shared.NewLogger("reconcile-test"),
			},
		}
		rec = httptest.NewRecorder()
		ownerId = "parent-1"
	})

	JustBeforeEach(func() {
		req = httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
		req = req.WithContext(claims.WithClaims(ctx, claims.Claims{UserId: ownerId}))
		opts := []kithttp.ServerOption{kithttp.ServerErrorEncoder(EncodeError)}
		handlerFactory.Sync(opts).ServeHTTP(rec, req)
	})

	Describe("SYNC", func() {
		Context("when the remote store is empty", func() {
			BeforeEach(func() {
				remote.On("List", mock.Anything, registry.KindChild, "parent-1").Return([]Document{}, nil)
			})

			assertHttpCode(http.StatusOK)

			It("should return an empty report", func() {
				report := Report{}
				Expect(json.Unmarshal(rec.Body.Bytes(), &report)).To(BeNil())
				Expect(report).To(Equal(Report{}))
			})
		})

		Context("when the remote store fails", func() {
			BeforeEach(func() {
				remote.On("List", mock.Anything, registry.KindChild, "parent-1").Return([]Document(nil), errors.New("unavailable"))
			})

			assertHttpCode(http.StatusInternalServerError)
		})

		Context("when the request is not authenticated", func() {
			BeforeEach(func() {
				ownerId = ""
			})

			assertHttpCode(http.StatusUnauthorized)

			It("should not reach the remote store", func() {
				remote.AssertNotCalled(GinkgoT(), "List", mock.Anything, mock.Anything, mock.Anything)
			})
		})
	})
})
