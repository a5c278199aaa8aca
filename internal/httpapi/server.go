package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"TopArtistsTracker/internal/domain"
	"TopArtistsTracker/internal/render"
	"TopArtistsTracker/pkg/logger"
)

// History is the read side of the snapshot store.
type History interface {
	Days(ctx context.Context) ([]time.Time, error)
	Snapshot(ctx context.Context, day time.Time) (domain.Snapshot, error)
	Report(ctx context.Context, day time.Time) (domain.Report, error)
}

// Server exposes stored snapshots over HTTP.
type Server struct {
	history History
	loc     *time.Location
	logger  *slog.Logger
}

// NewServer serves history; path days are parsed in loc.
func NewServer(history History, loc *time.Location, log *slog.Logger) *Server {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{history: history, loc: loc, logger: log}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/snapshots", s.handleDays)
	r.Get("/snapshots/{day}", s.handleSnapshot)
	r.Get("/snapshots/{day}/changes", s.handleChanges)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          logger.New(s.logger, "httpapi", slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type daysResponse struct {
	Days []string `json:"days"`
}

func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.history.Days(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := daysResponse{Days: make([]string, 0, len(days))}
	for _, day := range days {
		resp.Days = append(resp.Days, day.Format(domain.DayLayout))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	day, ok := s.parseDay(w, r)
	if !ok {
		return
	}
	snapshot, err := s.history.Snapshot(r.Context(), day)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view := render.NewReportView(domain.Report{Today: snapshot})
	writeJSON(w, http.StatusOK, struct {
		Day   string            `json:"day"`
		Items []render.ItemView `json:"items"`
	}{Day: view.Day, Items: view.Items})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	day, ok := s.parseDay(w, r)
	if !ok {
		return
	}
	report, err := s.history.Report(r.Context(), day)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, render.NewReportView(report))
}

func (s *Server) parseDay(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	day, err := domain.ParseDay(chi.URLParam(r, "day"), s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "day must be formatted as YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNoSnapshot) {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	s.logger.Error("request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
