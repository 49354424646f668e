package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/Vinubaba/TOUCH-API/event-manager/consumers"
	. "github.com/Vinubaba/TOUCH-API/event-manager/shared"
	"github.com/Vinubaba/TOUCH-API/messaging"
	"github.com/Vinubaba/TOUCH-API/notification"
	"github.com/Vinubaba/TOUCH-API/shared"
	"github.com/Vinubaba/TOUCH-API/storage"

	"github.com/facebookgo/inject"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

var (
	ctx    = context.Background()
	logger = shared.NewLogger("event-manager")
	config *AppConfig

	fileStorage     storage.Storage
	pubSubClient    *messaging.Client
	stringGenerator = &shared.StringGenerator{}

	consumer            = &consumers.Consumer{}
	notificationHandler = &consumers.NotificationHandler{}
	statusChangeHandler = &consumers.StatusChangeHandler{}
	dispatcher          = &notification.Dispatcher{}
	composer            = &notification.SMTPComposer{}
)

func init() {
	checkErrAndExit(initAppConfiguration())
	checkErrAndExit(initStorage())
	checkErrAndExit(initPubSubClient())
	checkErrAndExit(initApplicationGraph())
}

func initAppConfiguration() (err error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to load .env")
	}
	config, err = InitAppConfiguration()
	return
}

func initStorage() (err error) {
	if config.LocalStoragePath != "" {
		fileStorage = &storage.LocalStorage{}
		return nil
	}
	fileStorage, err = storage.New(ctx, storage.Options{
		BucketName:      config.BucketImagesName,
		CredentialsFile: config.ServiceAccount,
	})
	return
}

func initPubSubClient() (err error) {
	pubSubClient, err = messaging.New(ctx, messaging.ClientOptions{
		ProjectID:      config.GcpProjectID,
		Subscription:   config.GcpSubscription,
		Topic:          config.GcpTopic,
		CredentialPath: config.ServiceAccount,
	})
	if err != nil {
		return err
	}
	return pubSubClient.EnsureTopic(ctx)
}

func initApplicationGraph() error {
	consumer.EventHandlers = append(consumer.EventHandlers, notificationHandler, statusChangeHandler)

	g := inject.Graph{}
	g.Provide(
		&inject.Object{Value: config.MailConfig()},
		&inject.Object{Value: fileStorage},
		&inject.Object{Value: logger},
		&inject.Object{Value: composer},
		&inject.Object{Value: dispatcher},
		&inject.Object{Value: notificationHandler},
		&inject.Object{Value: statusChangeHandler},
		&inject.Object{Value: consumer},
		&inject.Object{Value: stringGenerator},
		&inject.Object{Value: pubSubClient},
	)
	if err := g.Populate(); err != nil {
		return errors.Wrap(err, "failed to populate")
	}
	return nil
}

func main() {
	go consumer.Start(ctx)
	startHttpServer(ctx)
}

func startHttpServer(ctx context.Context) {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	router.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	logger.Info(ctx, "listening", "address", config.ListenAddress)
	checkErrAndExit(http.ListenAndServe(config.ListenAddress, router))
}

func checkErrAndExit(err error) {
	if err == nil {
		return
	}
	fmt.Println(err.Error())
	os.Exit(1)
}
