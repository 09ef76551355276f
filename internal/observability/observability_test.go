package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/auth-engine/internal/auth"
	"github.com/spec-kit/auth-engine/internal/config"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordLogin("success")
	m.RecordLogin("success")
	m.RecordLogin("forbidden")
	m.RecordTokenRejection(auth.TokenExpired)
	m.RecordError("/auth/me", "GET", "TOKEN_EXPIRED")
	m.ObservePasswordVerify(40 * time.Millisecond)

	if got := testutil.ToFloat64(m.logins.WithLabelValues("success")); got != 2 {
		t.Errorf("login_outcomes_total{success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.logins.WithLabelValues("forbidden")); got != 1 {
		t.Errorf("login_outcomes_total{forbidden} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("expired")); got != 1 {
		t.Errorf("token_rejections_total{expired} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.errors.WithLabelValues("GET", "/auth/me", "TOKEN_EXPIRED")); got != 1 {
		t.Errorf("http_errors_total = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.verifyDuration); got != 1 {
		t.Errorf("password_verify_seconds series = %d, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordLogin("success")
	m.RecordTokenRejection(auth.TokenExpired)
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.ObservePasswordVerify(time.Millisecond)
}

func TestRequestLogger(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	app := fiber.New()
	app.Use(RequestLogger(zaptest.NewLogger(t), m))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	resp.Body.Close()

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/ping", "204")); got != 1 {
		t.Errorf("http_requests_total{GET,/ping,204} = %v, want 1", got)
	}
}

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"test@test.com":   "te***@test.com",
		"a@b.co":          "a***@b.co",
		"no-at-sign":      "***",
		"banned@test.com": "ba***@test.com",
	}
	for in, want := range tests {
		if got := MaskEmail(in); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "not-a-level"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("unknown levels should fall back to info")
	}
}
