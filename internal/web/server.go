package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/parkour/internal/booking"
	"github.com/example/parkour/internal/notify"
)

// ContactSender delivers contact form messages synchronously.
type ContactSender interface {
	Send(ctx context.Context, msg notify.Message) error
}

type Server struct {
	Engine     *booking.Engine
	Contact    ContactSender
	OwnerEmail string
	Limiter    *Limiter
	Log        *zap.SugaredLogger
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/availability", s.handleAvailability).Methods(http.MethodGet)
	api.Handle("/bookings", s.limit(http.HandlerFunc(s.handleBook))).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{reference}", s.handleBookingStatus).Methods(http.MethodGet)
	api.Handle("/contact", s.limit(http.HandlerFunc(s.handleContact))).Methods(http.MethodPost)
	// preflight
	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodOptions)

	return s.logRequests(cors(r))
}

func (s *Server) limit(h http.Handler) http.Handler {
	if s.Limiter == nil {
		return h
	}
	return s.Limiter.Middleware(h)
}

func (s *Server) log() *zap.SugaredLogger {
	if s.Log == nil {
		return zap.NewNop().Sugar()
	}
	return s.Log
}

// Start serves h on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.SugaredLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Infow("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
