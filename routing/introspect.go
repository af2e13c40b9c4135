package routing

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"github.com/gbili/di-why/framework/container"
	gohttp "github.com/gbili/di-why/http"
)

// ContainerSummary is the body of GET /_container.
type ContainerSummary struct {
	ID         string   `json:"id"`
	Loading    bool     `json:"loading"`
	Registered []string `json:"registered"`
	Loaded     []string `json:"loaded"`
}

// DefinitionSummary is the body of GET /_container/{name}.
type DefinitionSummary struct {
	Name          string   `json:"name"`
	Strategy      string   `json:"strategy"`
	Loaded        bool     `json:"loaded"`
	Locate        []string `json:"locate"`
	Destructure   bool     `json:"destructure"`
	Subscriptions []string `json:"subscriptions"`
}

// Introspect mounts read-only container routes under /_container:
//
//	GET  /_container                 → ContainerSummary
//	GET  /_container/{name}          → DefinitionSummary, 404 when not registered
//	POST /_container/events/{event}  → emits event, 204
func Introspect(r *Router, c *container.Container) {
	r.Prefix("/_container", func(cr *Router) {
		cr.Get("/", func(w http.ResponseWriter, req *http.Request) {
			gohttp.NewResponse(w).Success(ContainerSummary{
				ID:         c.ID().String(),
				Loading:    c.Loading(),
				Registered: c.Names(),
				Loaded:     c.Loaded(),
			})
		})

		cr.Get("/{name}", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)
			name := Param(req, "name")
			def, ok := c.Definition(name)
			if !ok {
				res.NotFound("No definition named " + name + ".")
				return
			}
			summary := DefinitionSummary{
				Name:          name,
				Loaded:        c.Has(name),
				Destructure:   def.Destructure,
				Locate:        []string{},
				Subscriptions: lo.Keys(def.Subscriptions),
			}
			if def.Strategy != nil {
				summary.Strategy = string(def.Strategy.Kind())
			}
			if def.Locate != nil {
				summary.Locate = container.RefNames(def.Locate)
			}
			res.Success(summary)
		})

		cr.Post("/events/{event}", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)
			if err := c.Emit(req.Context(), Param(req, "event")); err != nil {
				res.ServerError(err.Error())
				return
			}
			res.NoContent()
		})
	})
}

// Metrics serves the gatherer's metrics in the Prometheus text format at pattern.
func Metrics(r *Router, pattern string, g prometheus.Gatherer) {
	r.Handle(pattern, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
