package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/loader"
	"github.com/anhnt/edge/internal/version"
)

// maxBodySize limits the JSON data posted to /render.
const maxBodySize = 1 << 20

// reloadScript reconnects to /ws and reloads the page on change.
const reloadScript = `<script>
(function () {
	var proto = location.protocol === "https:" ? "wss://" : "ws://";
	function connect() {
		var ws = new WebSocket(proto + location.host + "/ws");
		ws.onmessage = function (ev) {
			var msg = JSON.parse(ev.data);
			if (msg.type === "reload") { location.reload(); }
		};
		ws.onclose = function () { setTimeout(connect, 1000); };
	}
	connect();
})();
</script>`

type diagnosticResponse struct {
	Template  string    `json:"template"`
	File      string    `json:"file"`
	Line      int       `json:"line"`
	Column    int       `json:"column"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   version.Get().Short(),
		"clients":   s.hub.Count(),
		"cache":     s.edge.CacheStats(),
		"errors":    len(s.errors.GetDiagnostics()),
		"timestamp": time.Now(),
	})
}

func (s *PreviewServer) handleTemplates(w http.ResponseWriter, r *http.Request) {
	names, err := s.edge.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates": names,
		"count":     len(names),
	})
}

func (s *PreviewServer) handleErrors(w http.ResponseWriter, r *http.Request) {
	diagnostics := s.errors.GetDiagnostics()
	out := make([]diagnosticResponse, 0, len(diagnostics))
	for _, d := range diagnostics {
		out = append(out, diagnosticResponse{
			Template:  d.Template,
			File:      d.File,
			Line:      d.Line,
			Column:    d.Column,
			Code:      d.Code,
			Message:   d.Message,
			Severity:  d.Severity.String(),
			Timestamp: d.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"errors": out})
}

func (s *PreviewServer) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.edge.CacheStats())
}

func (s *PreviewServer) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.edge.Invalidate()
	s.errors.Clear()
	s.logger.Info(r.Context(), "cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

// handleIndex lists every template with a link to its preview.
func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	names, err := s.edge.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>edge preview</title></head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>Templates (%d)</h1>\n<ul>\n", len(names))
	for _, name := range names {
		escaped := html.EscapeString(name)
		fmt.Fprintf(&b, "<li><a href=\"/render/%s\">%s</a></li>\n", escaped, escaped)
	}
	b.WriteString("</ul>\n")
	b.WriteString(reloadScript)
	b.WriteString("\n</body>\n</html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, b.String())
}

// handleRender renders one template. Data comes from the JSON body of a POST
// or the "data" query parameter. Failures render the error overlay.
func (s *PreviewServer) handleRender(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	key, err := templateKey(name)
	if err != nil {
		s.renderError(w, r, name, err)
		return
	}

	data, err := requestData(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	proc, err := s.edge.Compile(name)
	if err != nil {
		s.renderError(w, r, key, err)
		return
	}
	s.errors.RemoveTemplate(key)

	page := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := proc.Component(data).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, reloadScript)
		return err
	})
	templ.Handler(page, templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.renderError(w, r, key, err)
		})
	})).ServeHTTP(w, r)
}

// renderError records err and answers with the overlay page.
func (s *PreviewServer) renderError(w http.ResponseWriter, r *http.Request, name string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsTemplateNotFoundError(err):
		status = http.StatusNotFound
	case errors.IsConfigError(err):
		status = http.StatusBadRequest
	case errors.IsCompileError(err):
		s.errors.RemoveTemplate(name)
		s.errors.AddError(name, err)
	}
	s.logger.Warn(r.Context(), err, "render failed", "template", name)

	overlay := errors.NewErrorCollector()
	overlay.AddError(name, err)
	body := overlay.ErrorOverlay()
	if body == "" {
		body = "<pre>" + html.EscapeString(err.Error()) + "</pre>"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, "<!DOCTYPE html>\n<html>\n<body>\n"+body+"\n"+reloadScript+"\n</body>\n</html>\n")
}

func templateKey(name string) (string, error) {
	disk, rel, err := loader.Split(name)
	if err != nil {
		return "", err
	}
	return loader.Join(disk, rel), nil
}

func requestData(r *http.Request) (map[string]interface{}, error) {
	var raw []byte
	if r.Method == http.MethodPost {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			return nil, err
		}
		raw = body
	} else if q := r.URL.Query().Get("data"); q != "" {
		raw = []byte(q)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid JSON data: %w", err)
	}
	return data, nil
}
