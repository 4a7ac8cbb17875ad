package loki

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"thermoscan/internal/govee"
)

const UserAgent = "thermoscan/1.0.0"

type Config struct {
	URL         string
	Token       string
	StreamKey   string
	StreamValue string
}

// Response is what the sink answered. Any status counts as delivered.
type Response struct {
	StatusCode int
	Body       string
}

// Shipper sends readings to a Loki push endpoint, one request per reading.
// There is no timeout and no retry: a slow sink holds up the caller.
type Shipper struct {
	client *resty.Client
	cfg    Config
}

func NewShipper(cfg Config) *Shipper {
	client := resty.New().
		SetLogger(restyLogger{slog.Default().With("component", "loki")}).
		SetRedirectPolicy(noFollow()).
		SetAuthScheme("Basic").
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", UserAgent)

	return &Shipper{client: client, cfg: cfg}
}

// Ship performs one POST for r. Only transport failures are errors; the
// sink's answer, whatever its status, is returned for the caller to log.
func (s *Shipper) Ship(ctx context.Context, r govee.Reading) (Response, error) {
	push, err := NewPushRequest(s.cfg.StreamKey, s.cfg.StreamValue, r)
	if err != nil {
		return Response{}, err
	}
	body, err := json.Marshal(push)
	if err != nil {
		return Response{}, fmt.Errorf("marshal push: %w", err)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(s.cfg.URL)
	if err != nil {
		return Response{}, fmt.Errorf("loki push: %w", err)
	}

	return Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}, nil
}

// noFollow hands back the redirect response itself instead of following it
// or failing the request.
func noFollow() resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	})
}

// restyLogger routes resty's own diagnostics into slog.
type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...any) {
	r.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (r restyLogger) Warnf(format string, v ...any) {
	r.l.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (r restyLogger) Debugf(format string, v ...any) {
	r.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
