package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mosajjal/bountycatch/pkg/project"
	"github.com/mosajjal/bountycatch/pkg/store"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// API exposes the project operations over HTTP.
type API struct {
	*echo.Echo
	Store store.SetStore
	C     Config
}

// Config struct is corresponding to the YAML payload in api section of the config file
type Config struct {
	// BasePath is the basepath for the API
	BasePath string
	// ListenAddr is the address to listen on
	ListenAddr string
	// Logger is the logger to use
	Logger *zerolog.Logger
	// RPS is the rate limit for the API, per client IP. 0 disables it
	RPS float64
}

// NewAPI creates a new API instance. It won't start till ListenAndServe is called
func NewAPI(config Config, s store.SetStore) *API {
	if config.Logger == nil {
		nop := zerolog.Nop()
		config.Logger = &nop
	}
	if !strings.HasSuffix(config.BasePath, "/") {
		config.BasePath += "/"
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api := &API{
		Echo:  e,
		Store: s,
		C:     config,
	}
	api.addMiddlewares()
	api.AddProjectPaths()
	return api
}

// ListenAndServe starts the API server and blocks until ctx is cancelled.
func (api *API) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		api.C.Logger.Info().Msgf("listening on %s", api.C.ListenAddr)
		errCh <- api.Start(api.C.ListenAddr)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (api *API) addMiddlewares() {
	// the middlewares seems to be in order. so we'll log first, then rate limit
	api.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			api.C.Logger.Info().
				Str("method", v.Method).
				Str("URI", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	}))

	if api.C.RPS > 0 {
		api.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(api.C.RPS))))
	}
}

// AddProjectPaths adds the project URLs to the Echo instance
func (api *API) AddProjectPaths() {
	base := api.C.BasePath + "projects/:project"
	// $ curl http://127.0.0.1:8080/projects/acme/domains
	// > {"project":"acme","domains":["a.acme.com","b.acme.com"]}
	api.GET(base+"/domains", api.domains)
	api.GET(base+"/count", api.count)
	// $ curl -XPOST http://127.0.0.1:8080/projects/acme/domains -H 'Content-Type: application/json' -d '["a.acme.com"]'
	// > {"total":1,"new":1,"duplicates":0,"duplicate_pct":0,"invalid":0,"failed":0}
	api.POST(base+"/domains", api.addDomains)
	api.DELETE(base, api.deleteProject)
}

func (api *API) project(c echo.Context) *project.Project {
	return project.New(c.Param("project"), api.Store, *api.C.Logger)
}

func (api *API) domains(c echo.Context) error {
	p := api.project(c)
	return c.JSON(http.StatusOK, map[string]interface{}{"project": p.Name, "domains": p.Domains(c.Request().Context())})
}

func (api *API) count(c echo.Context) error {
	p := api.project(c)
	n, ok := p.Count(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "project not found"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"project": p.Name, "count": n})
}

// addDomains adds a list of domains to the project
// request body should be a JSON array of domain names. validation is on
// unless the validate query parameter says otherwise
func (api *API) addDomains(c echo.Context) error {
	var domains []string
	if err := c.Bind(&domains); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
	}
	validateDomains := true
	if v := c.QueryParam("validate"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad validate parameter"})
		}
		validateDomains = b
	}
	report := api.project(c).IngestDomains(c.Request().Context(), domains, validateDomains)
	return c.JSON(http.StatusOK, report)
}

func (api *API) deleteProject(c echo.Context) error {
	if !api.project(c).Delete(c.Request().Context()) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "project not found"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
