package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	fcerrors "github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/patch"
	"github.com/matzehuels/flowcanvas/pkg/pipeline"
	"github.com/matzehuels/flowcanvas/pkg/render"
)

// serveCommand creates the preview server command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var reload int
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve [patch]",
		Short: "Preview a patch in the browser",
		Long: `Serve a live preview of a patch file. Every request re-reads the file, so
saving from "flowcanvas edit" in another terminal shows up on reload.

Routes:
  /              HTML page showing the SVG, reloading every --reload seconds
  /patch.svg     scene painted as SVG
  /patch.dot     Graphviz DOT export
  /patch.png     Graphviz PNG
  /graphviz.svg  Graphviz SVG of the DOT export
  /patch.json    canonical patch document
  /scene.json    scene display list
  /patches/{h}   canonical patch stored under content hash h

Artifact routes accept ?grid=1 and ?select=a,b.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			base, err := pipelineOptions(cfg)
			if err != nil {
				return err
			}
			base.PatchPath = args[0]
			base.Logger = loggerFromContext(ctx)

			runner := c.newRunner(ctx, cfg, noCache)
			defer runner.Close()

			srv := newPreviewServer(runner, base, loggerFromContext(ctx))
			srv.reload = reload
			return srv.listen(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().IntVar(&reload, "reload", 2, "page reload interval in seconds (0 disables)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the artifact cache")
	return cmd
}

// =============================================================================
// Preview Server
// =============================================================================

// previewServer renders one patch file on demand.
type previewServer struct {
	runner *pipeline.Runner
	base   pipeline.Options
	logger *log.Logger
	reload int
}

func newPreviewServer(runner *pipeline.Runner, base pipeline.Options, logger *log.Logger) *previewServer {
	return &previewServer{runner: runner, base: base, logger: logger}
}

// routes builds the HTTP handler.
func (s *previewServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/patch.svg", s.artifact(render.FormatSVG, "image/svg+xml"))
	r.Get("/patch.dot", s.artifact(render.FormatDOT, "text/vnd.graphviz; charset=utf-8"))
	r.Get("/patch.png", s.artifact(render.FormatPNG, "image/png"))
	r.Get("/scene.json", s.artifact(render.FormatJSON, "application/json"))
	r.Get("/graphviz.svg", s.handleGraphvizSVG)
	r.Get("/patch.json", s.handlePatch)
	r.Get("/patches/{hash}", s.handleLookup)
	return r
}

// listen serves until ctx is cancelled, then shuts down gracefully.
func (s *previewServer) listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	url := "http://" + ln.Addr().String() + "/"
	printKeyValue("Patch", s.base.PatchPath)
	printKeyValue("Listening", StyleLink.Render(url))
	printNextStep("Stop", "ctrl+c")

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// logRequests logs every request through the CLI logger.
func (s *previewServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Handlers
// =============================================================================

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{if .Reload}}<meta http-equiv="refresh" content="{{.Reload}}">{{end}}
<style>
body { margin: 0; background: #f4f4f4; font-family: monospace; }
header { padding: 8px 12px; color: #555; }
main { padding: 12px; }
img { background: #fff; box-shadow: 0 1px 3px rgba(0,0,0,.2); }
</style>
</head>
<body>
<header>{{.Title}} · <a href="/patch.json">patch.json</a> · <a href="/patch.dot">patch.dot</a> · <a href="/patch.png">patch.png</a> · <a href="/graphviz.svg">graphviz.svg</a> · <a href="/scene.json">scene.json</a></header>
<main><img src="/patch.svg{{.Query}}" alt="{{.Title}}"></main>
</body>
</html>
`))

func (s *previewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	query := ""
	if r.URL.RawQuery != "" {
		query = "?" + r.URL.RawQuery
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Title  string
		Reload int
		Query  template.URL
	}{s.base.PatchPath, s.reload, template.URL(query)}
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Warn("render index", "err", err)
	}
}

func (s *previewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// artifact serves one rendered format of the patch.
func (s *previewServer) artifact(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := s.requestOptions(r, format)
		result, err := s.runner.Execute(r.Context(), opts)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Patch-Hash", result.PatchHash)
		if result.CacheInfo.RenderHit {
			w.Header().Set("X-Cache", "hit")
		} else {
			w.Header().Set("X-Cache", "miss")
		}
		_, _ = w.Write(result.Artifacts[format])
	}
}

// handleGraphvizSVG lays the DOT export out with Graphviz and serves it as
// SVG, for comparing the pinned layout with Graphviz's own.
func (s *previewServer) handleGraphvizSVG(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.Execute(r.Context(), s.requestOptions(r, render.FormatDOT))
	if err != nil {
		s.writeError(w, err)
		return
	}
	svg, err := render.GraphvizSVG(r.Context(), string(result.Artifacts[render.FormatDOT]))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(svg)
}

// handlePatch serves the canonical patch document.
func (s *previewServer) handlePatch(w http.ResponseWriter, r *http.Request) {
	opts := s.requestOptions(r, render.FormatJSON)
	g, err := s.runner.Load(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePatch(w, patch.Capture(g))
}

// handleLookup serves a canonical patch stored by an earlier render.
func (s *previewServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	p, err := s.runner.LookupPatch(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writePatch(w, p)
}

func (s *previewServer) writePatch(w http.ResponseWriter, p *patch.Patch) {
	data, err := patch.Marshal(p, patch.FormatJSON)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// requestOptions copies the base options and applies query parameters.
func (s *previewServer) requestOptions(r *http.Request, format string) pipeline.Options {
	opts := s.base
	opts.Formats = []string{format}
	q := r.URL.Query()
	if v := q.Get("grid"); v == "1" || v == "true" {
		opts.ShowGrid = true
	}
	if v := q.Get("select"); v != "" {
		opts.Selection = strings.Split(v, ",")
	}
	return opts
}

// writeError maps coded errors to HTTP statuses.
func (s *previewServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch code := fcerrors.GetCode(err); {
	case code == fcerrors.ErrCodeNotFound || code == fcerrors.ErrCodeFileNotFound:
		status = http.StatusNotFound
	case strings.HasPrefix(string(code), "INVALID_"):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("preview failed", "err", err)
	}
	code := fcerrors.GetCode(err)
	if code == "" {
		code = fcerrors.ErrCodeInternal
	}
	writeJSON(w, status, errorResponse{Error: string(code), Message: fcerrors.UserMessage(err)})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
