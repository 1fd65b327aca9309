package httpserver

import "net/http"

// Routes defines HTTP endpoints.
type Routes struct {
	Readings  http.Handler
	Latest    http.Handler
	Dashboard http.Handler
	Stats     http.Handler
	ChartData http.Handler
	LiveWS    http.HandlerFunc
	Health    http.Handler
}

// NewRouter sets up HTTP routing.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.Readings != nil {
		mux.Handle("/api/rectifier", method(http.MethodGet, routes.Readings.ServeHTTP))
	}
	if routes.Latest != nil {
		mux.Handle("/api/rectifier/latest", method(http.MethodGet, routes.Latest.ServeHTTP))
	}
	if routes.Dashboard != nil {
		mux.Handle("/api/rectifier/dashboard", method(http.MethodGet, routes.Dashboard.ServeHTTP))
	}
	if routes.Stats != nil {
		mux.Handle("/api/rectifier/stats", method(http.MethodGet, routes.Stats.ServeHTTP))
	}
	if routes.ChartData != nil {
		mux.Handle("/api/rectifier/chart_data", method(http.MethodGet, routes.ChartData.ServeHTTP))
	}
	if routes.LiveWS != nil {
		mux.Handle("/ws/rectifier", method(http.MethodGet, routes.LiveWS))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health.ServeHTTP))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
