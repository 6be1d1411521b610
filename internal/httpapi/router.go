package httpapi

import "net/http"

// NewMux wires every API route. main() wraps the mux in the middleware
// chain and owns the http.Server.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Scored output
	lh := LeadsHandler{DB: d.DB}
	mux.HandleFunc("/leads", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.List,
	}))
	mux.HandleFunc("/trends", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.Trends,
	}))
	mux.HandleFunc("/summary", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.Summary,
	}))

	// Pipeline control
	ph := PipelineHandler{Runner: d.Runner, Limiter: d.RunLimiter, Logger: d.Logger}
	mux.HandleFunc("/pipeline/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.Status,
	}))
	mux.HandleFunc("/pipeline/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ph.Run,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		Hub:         d.Hub,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Prometheus metrics
	mux.Handle("/metrics", d.Metrics.Handler())

	return mux
}
