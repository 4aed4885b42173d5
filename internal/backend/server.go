// Package backend is a reference authoritative store for the sync engine:
// a SQLite database behind the REST API spoken by remote.HTTPClient.
package backend

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mmcdole/kinosync/internal/domain"
	"github.com/mmcdole/kinosync/internal/history"
	"github.com/mmcdole/kinosync/internal/remote"
)

const userContextKey = "kinosync.user"

// Server exposes a SQLiteStore over HTTP.
type Server struct {
	store  *SQLiteStore
	token  string
	logger *slog.Logger
	echo   *echo.Echo
}

// NewServer creates a server for store. A non-empty token is required as a
// bearer token on every request.
func NewServer(store *SQLiteStore, token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:  store,
		token:  token,
		logger: logger,
		echo:   echo.New(),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	api := s.echo.Group("", s.authenticate)
	api.GET(remote.PathWatchProgress, s.listRecords(store.PlayRecords()))
	api.POST(remote.PathWatchProgress, s.upsertProgress)
	api.DELETE(remote.PathWatchProgress, s.deleteRecords(store.PlayRecords()))

	api.GET(remote.PathFavorites, s.listRecords(store.Favorites()))
	api.POST(remote.PathFavorites, s.upsertFavorite)
	api.DELETE(remote.PathFavorites, s.deleteRecords(store.Favorites()))

	api.GET(remote.PathSearchHistory, s.listHistory)
	api.POST(remote.PathSearchHistory, s.addKeyword)
	api.DELETE(remote.PathSearchHistory, s.deleteHistory)

	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("backend listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, remote.ErrorResponse{Error: msg})
}

// authenticate checks the bearer token and resolves the acting user.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.token != "" {
			got := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
				return errorJSON(c, http.StatusUnauthorized, "invalid token")
			}
		}
		user := strings.TrimSpace(c.Request().Header.Get(remote.UserHeader))
		if user == "" {
			return errorJSON(c, http.StatusUnauthorized, "missing "+remote.UserHeader+" header")
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

func userOf(c echo.Context) string {
	user, _ := c.Get(userContextKey).(string)
	return user
}

func (s *Server) internalError(c echo.Context, op string, err error) error {
	s.logger.Error("store operation failed", "op", op, "user", userOf(c), "error", err)
	return errorJSON(c, http.StatusInternalServerError, "internal error")
}

func (s *Server) listRecords(t *RecordTable) echo.HandlerFunc {
	return func(c echo.Context) error {
		records, err := t.All(c.Request().Context(), userOf(c))
		if err != nil {
			return s.internalError(c, "list "+t.table, err)
		}
		return c.JSON(http.StatusOK, records)
	}
}

func (s *Server) putRecord(c echo.Context, t *RecordTable, key string, value any) error {
	if err := domain.ValidateKey(key); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	data, err := json.Marshal(value)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid record")
	}
	if err := t.Put(c.Request().Context(), userOf(c), key, data); err != nil {
		return s.internalError(c, "put "+t.table, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) upsertProgress(c echo.Context) error {
	var req remote.UpsertProgressRequest[domain.WatchProgress]
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	return s.putRecord(c, s.store.PlayRecords(), req.Key, req.Record)
}

func (s *Server) upsertFavorite(c echo.Context) error {
	var req remote.UpsertFavoriteRequest[domain.Favorite]
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	return s.putRecord(c, s.store.Favorites(), req.Key, req.Favorite)
}

// deleteRecords removes the record named by ?key=, or every record when the
// parameter is absent.
func (s *Server) deleteRecords(t *RecordTable) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if !c.QueryParams().Has(remote.ParamKey) {
			if err := t.Clear(ctx, userOf(c)); err != nil {
				return s.internalError(c, "clear "+t.table, err)
			}
			return c.NoContent(http.StatusNoContent)
		}

		key := c.QueryParam(remote.ParamKey)
		if err := domain.ValidateKey(key); err != nil {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		if err := t.Delete(ctx, userOf(c), key); err != nil {
			return s.internalError(c, "delete "+t.table, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *Server) listHistory(c echo.Context) error {
	keywords, err := s.store.History(c.Request().Context(), userOf(c))
	if err != nil {
		return s.internalError(c, "list history", err)
	}
	return c.JSON(http.StatusOK, keywords)
}

func (s *Server) addKeyword(c echo.Context) error {
	var req remote.AddKeywordRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	keyword := history.Normalize(req.Keyword)
	if keyword == "" {
		return errorJSON(c, http.StatusBadRequest, domain.ErrEmptyKeyword.Error())
	}
	if err := s.store.AddKeyword(c.Request().Context(), userOf(c), keyword); err != nil {
		return s.internalError(c, "add keyword", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// deleteHistory removes the keyword named by ?keyword=, or the whole history
// when the parameter is absent.
func (s *Server) deleteHistory(c echo.Context) error {
	ctx := c.Request().Context()
	if !c.QueryParams().Has(remote.ParamKeyword) {
		if err := s.store.ClearHistory(ctx, userOf(c)); err != nil {
			return s.internalError(c, "clear history", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	keyword := history.Normalize(c.QueryParam(remote.ParamKeyword))
	if keyword == "" {
		return errorJSON(c, http.StatusBadRequest, domain.ErrEmptyKeyword.Error())
	}
	if err := s.store.RemoveKeyword(ctx, userOf(c), keyword); err != nil {
		return s.internalError(c, "remove keyword", err)
	}
	return c.NoContent(http.StatusNoContent)
}
