package http

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/httpapi"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewServiceProxy forwards requests unchanged (path included) to target.
// Websocket upgrades pass through.
func NewServiceProxy(name string, target *url.URL, log zerolog.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = target.Host
		},
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error().Err(err).
				Str("upstream", name).
				Str("path", r.URL.Path).
				Msg("upstream request failed")
			httpapi.RespondError(w, http.StatusBadGateway, "upstream_unavailable", name+" is unavailable")
		},
	}
}
