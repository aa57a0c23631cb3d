package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/whoiswatch/whoiswatch/pkg/backend"
	"github.com/whoiswatch/whoiswatch/pkg/version"
)

type apiServer struct {
	ctx  context.Context
	log  *logrus.Entry
	port int
}

func NewAPIServer(ctx context.Context, log *logrus.Entry, port int) *apiServer {
	return &apiServer{
		ctx:  ctx,
		log:  log,
		port: port,
	}
}

func (a *apiServer) Start(back backend.Backend) error {
	logrus.Infof("Version: %s", version.Get())

	router := mux.NewRouter().StrictSlash(true)
	router.Use(loggingMiddleware(a.log))
	h := newHandler(back)

	// When functioning properly, these routes return the running version
	router.Path("/").HandlerFunc(h.root)
	router.Path("/healthz").HandlerFunc(h.root)

	// Everything under /v1 is read-only reporting over locally-tracked
	// data, so there is no auth layer.
	api := router.PathPrefix("/v1").Subrouter()
	api.Path("/domains").Methods("GET").HandlerFunc(h.listDomains)
	api.Path("/domains/{domain}").Methods("GET").HandlerFunc(h.getDomain)
	api.Path("/domains/{domain}/history").Methods("GET").HandlerFunc(h.getHistory)

	// Note: this allows not found urls to be logged via the middleware
	// It **HAS** to be defined after all other paths are defined.
	router.NotFoundHandler = router.NewRoute().HandlerFunc(http.NotFound).GetHandler()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: ghandlers.CORS()(router),
	}

	go func() {
		a.log.WithField("port", a.port).Info("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Fatalf("listen: %s\n", err)
		}
	}()

	go back.StartCheckerDaemon(a.ctx.Done())

	<-a.ctx.Done()

	a.log.Info("shutting down the api server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("unable to shutdown the api server gracefully")
		return err
	}

	return nil
}
