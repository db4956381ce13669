// Package serverless runs the relay's HTTP router behind AWS Lambda.
package serverless

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/wolfman30/assistant-relay/pkg/logging"
)

// Adapter translates API Gateway HTTP API (payload v2) events into requests
// for an http.Handler.
type Adapter struct {
	handler      http.Handler
	generatePath string
	routeAll     bool
	logger       *logging.Logger
}

// Config controls path handling for the function.
type Config struct {
	// GeneratePath is where the router serves the relay.
	GeneratePath string
	// RouteAll sends every path except /health to GeneratePath, so the
	// function answers on whatever route the gateway maps to it.
	RouteAll bool
}

func NewAdapter(handler http.Handler, cfg Config, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	path := cfg.GeneratePath
	if path == "" {
		path = "/generate"
	}
	return &Adapter{
		handler:      handler,
		generatePath: path,
		routeAll:     cfg.RouteAll,
		logger:       logger,
	}
}

// Handle is the lambda.Start entrypoint.
func (a *Adapter) Handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := a.toRequest(ctx, evt)
	if err != nil {
		a.logger.Warn("invalid lambda event", "error", err)
		return jsonResponse(http.StatusBadRequest, `{"error":"Corpo da requisição inválido"}`), nil
	}

	rw := newResponseWriter()
	a.handler.ServeHTTP(rw, req)
	return rw.toEvent(), nil
}

func (a *Adapter) toRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body, err := decodeBody(evt)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	if method == "" {
		method = http.MethodPost
	}

	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	if a.routeAll && path != "/health" {
		path = a.generatePath
	}
	if path == "" {
		path = "/"
	}

	u := &url.URL{Path: path, RawQuery: strings.TrimSpace(evt.RawQueryString)}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serverless: build request: %w", err)
	}
	req.ContentLength = int64(len(body))

	for key, value := range evt.Headers {
		req.Header.Set(key, value)
	}
	for _, cookie := range evt.Cookies {
		req.Header.Add("Cookie", cookie)
	}
	if host := strings.TrimSpace(evt.RequestContext.DomainName); host != "" {
		req.Host = host
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip
	}
	if id := strings.TrimSpace(evt.RequestContext.RequestID); id != "" && req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", id)
	}
	return req, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return nil, fmt.Errorf("serverless: decode base64 body: %w", err)
	}
	return decoded, nil
}

// responseWriter buffers a handler's response for conversion into an event.
type responseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: http.Header{}}
}

func (w *responseWriter) Header() http.Header { return w.header }

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *responseWriter) toEvent() events.APIGatewayV2HTTPResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	out := events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{},
		Body:       w.body.String(),
	}
	for key, values := range w.header {
		if strings.EqualFold(key, "Set-Cookie") {
			out.Cookies = append(out.Cookies, values...)
			continue
		}
		out.Headers[strings.ToLower(key)] = strings.Join(values, ", ")
	}
	return out
}

func jsonResponse(status int, body string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       body,
	}
}
