package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vinubaba/TOUCH-API/appointments"
	"github.com/Vinubaba/TOUCH-API/authentication"
	"github.com/Vinubaba/TOUCH-API/children"
	"github.com/Vinubaba/TOUCH-API/clinics"
	"github.com/Vinubaba/TOUCH-API/daycares"
	touchFirebase "github.com/Vinubaba/TOUCH-API/firebase"
	"github.com/Vinubaba/TOUCH-API/meeting"
	"github.com/Vinubaba/TOUCH-API/messaging"
	"github.com/Vinubaba/TOUCH-API/metrics"
	"github.com/Vinubaba/TOUCH-API/notification"
	"github.com/Vinubaba/TOUCH-API/realtime"
	"github.com/Vinubaba/TOUCH-API/reconcile"
	"github.com/Vinubaba/TOUCH-API/registry"
	. "github.com/Vinubaba/TOUCH-API/shared"
	"github.com/Vinubaba/TOUCH-API/storage"
	. "github.com/Vinubaba/TOUCH-API/store"
	"github.com/Vinubaba/TOUCH-API/store/migrations"
	"github.com/Vinubaba/TOUCH-API/users"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go"
	"firebase.google.com/go/auth"
	"github.com/facebookgo/inject"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

var (
	ctx             = context.Background()
	logger          = NewLogger("touch")
	config          *AppConfig
	db              *gorm.DB
	redisMirror     *RedisMirror
	mirror          interface{}
	stringGenerator = &StringGenerator{}
	clock           = &Clock{}

	userService        = &users.UserService{}
	childService       = &children.ChildService{}
	daycareService     = &daycares.DaycareService{}
	clinicService      = &clinics.ClinicService{}
	appointmentService = &appointments.AppointmentService{}

	userHandlerFactory        = &users.HandlerFactory{}
	childrenHandlerFactory    = &children.HandlerFactory{}
	daycareHandlerFactory     = &daycares.HandlerFactory{}
	clinicHandlerFactory      = &clinics.HandlerFactory{}
	appointmentHandlerFactory = &appointments.HandlerFactory{}
	syncHandlerFactory        = &reconcile.HandlerFactory{}

	broadcaster     = registry.NewBroadcaster()
	manager         = &registry.Manager{}
	reconciler      = &reconcile.Reconciler{}
	meetingLinks    = &meeting.Generator{}
	dispatcher      = &notification.Dispatcher{}
	composer        = &notification.SMTPComposer{}
	hub             = &realtime.Hub{}
	identityToolkit = &touchFirebase.IdentityToolkit{}
	remoteStore     = &touchFirebase.Firestore{}

	fileStorage         storage.Storage
	pubSubClient        *messaging.Client
	touchFirebaseClient = &touchFirebase.Client{}
	firebaseClient      *auth.Client
	firestoreClient     *firestore.Client
	authenticator       = &authentication.Authenticator{QueryTokenPaths: []string{"/api/v1/events"}}
)

func init() {
	checkErrAndExit(initAppConfiguration())
	checkErrAndExit(initMirror())
	checkErrAndExit(initFirebase())
	checkErrAndExit(initStorage())
	checkErrAndExit(initPubSubClient())
	checkErrAndExit(initApplicationGraph())
	checkErrAndExit(initMetrics())
}

func initAppConfiguration() (err error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to load .env file")
	}
	config, err = InitAppConfiguration()
	return
}

func initMirror() error {
	switch config.MirrorBackend {
	case MirrorBackendPostgres:
		if err := initPostgresConnection(); err != nil {
			return err
		}
		mirror = &Store{}
	case MirrorBackendRedis:
		redisMirror = NewRedisMirror(&redis.Options{
			Addr:     config.RedisAddress,
			Password: config.RedisPassword,
			DB:       config.RedisDb,
		})
		if err := redisMirror.Ping(ctx); err != nil {
			return errors.Wrap(err, "failed to reach redis")
		}
		mirror = redisMirror
	default:
		logger.Warn(ctx, "using the in memory mirror, workspaces are lost on restart")
		mirror = NewMemoryMirror()
	}
	return nil
}

func initPostgresConnection() (err error) {
	connectString := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		config.PgContactPoint,
		config.PgContactPort,
		config.PgUsername,
		config.PgPassword,
		config.PgDbName)
	db, err = gorm.Open("postgres", connectString)
	if err != nil {
		return
	}

	db.LogMode(true)
	db.SetLogger(logger)
	return
}

func initFirebase() error {
	opt := option.WithCredentialsFile(config.FirebaseServiceAccount)
	config := &firebase.Config{ProjectID: config.GcpProjectID}

	firebaseApp, err := firebase.NewApp(context.Background(), config, opt)
	if err != nil {
		return err
	}

	firebaseClient, err = firebaseApp.Auth(context.Background())
	if err != nil {
		return errors.Wrap(err, "error getting Auth client")
	}

	firestoreClient, err = firebaseApp.Firestore(context.Background())
	if err != nil {
		return errors.Wrap(err, "error getting Firestore client")
	}

	return nil
}

func initStorage() (err error) {
	if config.LocalStoragePath != "" {
		fileStorage = &storage.LocalStorage{}
		return
	}
	fileStorage, err = storage.New(ctx, storage.Options{
		CredentialsFile: config.BucketServiceAccount,
		BucketName:      config.BucketImagesName,
	})
	return
}

func initPubSubClient() (err error) {
	if config.GcpTopic == "" {
		logger.Info(ctx, "no topic configured, queued notifications are disabled")
		return
	}
	pubSubClient, err = messaging.New(ctx, messaging.ClientOptions{
		ProjectID:      config.GcpProjectID,
		Topic:          config.GcpTopic,
		CredentialPath: config.FirebaseServiceAccount,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create pubsub client")
	}
	return pubSubClient.EnsureTopic(ctx)
}

func initApplicationGraph() error {
	// both the admin client and its wrapper verify tokens
	authenticator.FirebaseClient = touchFirebaseClient

	g := inject.Graph{}
	objects := []*inject.Object{
		{Value: config},
		{Value: logger},
		{Value: stringGenerator},
		{Value: clock},
		{Value: mirror},
		{Value: broadcaster},
		{Value: manager},
		{Value: reconciler},
		{Value: meetingLinks},
		{Value: fileStorage},
		{Value: composer},
		{Value: dispatcher},
		{Value: hub},
		{Value: identityToolkit},
		{Value: remoteStore},
		{Value: userService},
		{Value: childService},
		{Value: daycareService},
		{Value: clinicService},
		{Value: appointmentService},
		{Value: userHandlerFactory},
		{Value: childrenHandlerFactory},
		{Value: daycareHandlerFactory},
		{Value: clinicHandlerFactory},
		{Value: appointmentHandlerFactory},
		{Value: syncHandlerFactory},
		{Value: touchFirebaseClient},
		{Value: firebaseClient},
		{Value: firestoreClient},
		{Value: authenticator},
	}
	if db != nil {
		objects = append(objects, &inject.Object{Value: db})
	}
	if err := g.Provide(objects...); err != nil {
		return errors.Wrap(err, "failed to provide")
	}
	if err := g.Populate(); err != nil {
		return errors.Wrap(err, "failed to populate")
	}

	if pubSubClient != nil {
		appointmentService.Publisher = pubSubClient
	}
	return nil
}

func initMetrics() error {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return errors.Wrap(err, "failed to register metrics")
	}
	broadcaster.Listen(metrics.ObserveStoreEvent)
	return nil
}

func main() {
	if config.StartupMigration && config.MirrorBackend == MirrorBackendPostgres {
		applySqlSchemaMigrations(ctx)
	}

	restored, err := manager.Restore(ctx)
	checkErrAndExit(err)
	logger.Info(ctx, "workspaces restored", "count", restored)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    config.ListenAddress,
		Handler: newHttpHandler(),
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.Info(gctx, "listening", "address", config.ListenAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return reconciler.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if pubSubClient != nil {
		pubSubClient.Close()
	}
	if err != nil && err != context.Canceled {
		checkErrAndExit(err)
	}
}

func applySqlSchemaMigrations(ctx context.Context) {
	logger.Info(ctx, "applying sql schema migrations")
	migrationResult := migrations.Up(migrations.ApplyOptions{
		SourceURL: fmt.Sprintf("file://%s", config.SqlMigrationsSourceDir),
		DatabaseURL: fmt.Sprintf("postgres://%v:%v/%v?sslmode=disable&user=%s&password=%s",
			config.PgContactPoint, config.PgContactPort, config.PgDbName, config.PgUsername, config.PgPassword),
	})
	checkErrAndExit(migrationResult.Err)
	if !migrationResult.Changes {
		logger.Info(ctx, "no new migrations applied", "version", migrationResult.Version)
		return
	}
	logger.Info(ctx, "sql schema migrated", "version", migrationResult.Version)
}

func ready(ctx context.Context) error {
	switch {
	case db != nil:
		return db.DB().PingContext(ctx)
	case redisMirror != nil:
		return redisMirror.Ping(ctx)
	}
	return nil
}

func newHttpHandler() http.Handler {
	userOpts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(users.EncodeError),
	}

	childrenOpts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(children.EncodeError),
	}

	daycareOpts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(daycares.EncodeError),
	}

	clinicOpts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(clinics.EncodeError),
	}

	appointmentOpts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(appointments.EncodeError),
	}

	syncOpts := []kithttp.ServerOption{
		kithttp.ServerErrorLogger(logger),
		kithttp.ServerErrorEncoder(reconcile.EncodeError),
	}

	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	router.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			logger.Warn(r.Context(), "not ready", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	router.Handle("/auth/register", userHandlerFactory.Register(userOpts)).Methods(http.MethodPost)
	router.Handle("/auth/login", userHandlerFactory.Login(userOpts)).Methods(http.MethodPost)

	apiRouterV1 := router.PathPrefix("/api/v1").Subrouter()

	apiRouterV1.Handle("/me", userHandlerFactory.Me(userOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/me", userHandlerFactory.UpdateMe(userOpts)).Methods(http.MethodPatch)
	apiRouterV1.Handle("/logout", userHandlerFactory.Logout(userOpts)).Methods(http.MethodPost)

	apiRouterV1.Handle("/children", childrenHandlerFactory.Add(childrenOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/children", childrenHandlerFactory.List(childrenOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/children/selected", childrenHandlerFactory.Selected(childrenOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/children/{childId}", childrenHandlerFactory.Get(childrenOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/children/{childId}", childrenHandlerFactory.Update(childrenOpts)).Methods(http.MethodPatch)
	apiRouterV1.Handle("/children/{childId}", childrenHandlerFactory.Delete(childrenOpts)).Methods(http.MethodDelete)
	apiRouterV1.Handle("/children/{childId}/select", childrenHandlerFactory.Select(childrenOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/children/{childId}/unselect", childrenHandlerFactory.Unselect(childrenOpts)).Methods(http.MethodPost)

	apiRouterV1.Handle("/daycares", daycareHandlerFactory.Add(daycareOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/daycares", daycareHandlerFactory.List(daycareOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/daycares/selected", daycareHandlerFactory.Selected(daycareOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/daycares/{daycareId}", daycareHandlerFactory.Get(daycareOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/daycares/{daycareId}", daycareHandlerFactory.Update(daycareOpts)).Methods(http.MethodPatch)
	apiRouterV1.Handle("/daycares/{daycareId}", daycareHandlerFactory.Delete(daycareOpts)).Methods(http.MethodDelete)
	apiRouterV1.Handle("/daycares/{daycareId}/select", daycareHandlerFactory.Select(daycareOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/daycares/{daycareId}/unselect", daycareHandlerFactory.Unselect(daycareOpts)).Methods(http.MethodPost)

	apiRouterV1.Handle("/clinics", clinicHandlerFactory.Add(clinicOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/clinics", clinicHandlerFactory.List(clinicOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/clinics/selected", clinicHandlerFactory.Selected(clinicOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/clinics/{clinicId}", clinicHandlerFactory.Get(clinicOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/clinics/{clinicId}", clinicHandlerFactory.Update(clinicOpts)).Methods(http.MethodPatch)
	apiRouterV1.Handle("/clinics/{clinicId}", clinicHandlerFactory.Delete(clinicOpts)).Methods(http.MethodDelete)
	apiRouterV1.Handle("/clinics/{clinicId}/select", clinicHandlerFactory.Select(clinicOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/clinics/{clinicId}/unselect", clinicHandlerFactory.Unselect(clinicOpts)).Methods(http.MethodPost)

	apiRouterV1.Handle("/appointments", appointmentHandlerFactory.Add(appointmentOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/appointments", appointmentHandlerFactory.List(appointmentOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/appointments/selected", appointmentHandlerFactory.Selected(appointmentOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/appointments/{appointmentId}", appointmentHandlerFactory.Get(appointmentOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/appointments/{appointmentId}", appointmentHandlerFactory.Update(appointmentOpts)).Methods(http.MethodPatch)
	apiRouterV1.Handle("/appointments/{appointmentId}", appointmentHandlerFactory.Delete(appointmentOpts)).Methods(http.MethodDelete)
	apiRouterV1.Handle("/appointments/{appointmentId}/select", appointmentHandlerFactory.Select(appointmentOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/appointments/{appointmentId}/unselect", appointmentHandlerFactory.Unselect(appointmentOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/appointments/{appointmentId}/start", appointmentHandlerFactory.Start(appointmentOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/appointments/{appointmentId}/complete", appointmentHandlerFactory.Complete(appointmentOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/appointments/{appointmentId}/cancel", appointmentHandlerFactory.Cancel(appointmentOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/appointments/{appointmentId}/meeting-link", appointmentHandlerFactory.MeetingLink(appointmentOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/appointments/{appointmentId}/meeting-link", appointmentHandlerFactory.RegenerateMeetingLink(appointmentOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/appointments/{appointmentId}/details", appointmentHandlerFactory.Details(appointmentOpts)).Methods(http.MethodGet)
	apiRouterV1.Handle("/appointments/{appointmentId}/notify", appointmentHandlerFactory.Notify(appointmentOpts)).Methods(http.MethodPost)

	apiRouterV1.Handle("/consultations", appointmentHandlerFactory.StartConsultation(appointmentOpts)).Methods(http.MethodPost)

	apiRouterV1.Handle("/sync", syncHandlerFactory.Sync(syncOpts)).Methods(http.MethodPost)
	apiRouterV1.Handle("/events", hub).Methods(http.MethodGet)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	return corsHandler.Handler(
		logger.RequestLoggerMiddleware(
			authenticator.Firebase(router, []string{"/healthz", "/readyz", "/metrics", "/auth/register", "/auth/login"}),
		),
	)
}

func checkErrAndExit(err error) {
	if err == nil {
		return
	}
	fmt.Println(err.Error())
	os.Exit(1)
}
