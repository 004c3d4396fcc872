package httpapi

import (
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/ppiankov/promptguard/internal/ratelimit"
)

// OpenAPIPath serves the generated OpenAPI document.
const OpenAPIPath = "/api/v1/openapi.json"

// Config configures the HTTP surface.
type Config struct {
	Addr    string
	Version string
	Logger  zerolog.Logger
	// RateLimit caps API requests per client. Zero disables it.
	RateLimit ratelimit.Limit
}

// NewContainer wires routes, filters, the OpenAPI document and /metrics.
func NewContainer(guard Guard, cfg Config) *restful.Container {
	container := restful.NewContainer()
	container.Filter(logFilter(cfg.Logger))
	container.Filter(recoverFilter(cfg.Logger))
	if cfg.RateLimit.Enabled() {
		container.Filter(rateLimitFilter(ratelimit.New(cfg.RateLimit), cfg.Logger))
	}

	RegisterRoutes(container, NewHandler(guard, cfg.Version, cfg.Logger))

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     OpenAPIPath,
		PostBuildSwaggerObjectHandler: func(swo *spec.Swagger) {
			enrichSwaggerObject(swo, cfg.Version)
		},
	}))

	container.Handle("/metrics", promhttp.Handler())
	return container
}

func enrichSwaggerObject(swo *spec.Swagger, version string) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "promptguard API",
			Description: "Input and output safety checks for LLM pipelines",
			Version:     version,
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "health", Description: "Health checks"}},
		{TagProps: spec.TagProps{Name: "check", Description: "Input and output validation"}},
		{TagProps: spec.TagProps{Name: "events", Description: "Safety event log"}},
	}
}

// NewServer returns an http.Server serving the container behind CORS.
func NewServer(guard Guard, cfg Config) *http.Server {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      corsHandler.Handler(NewContainer(guard, cfg)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
