package router

import (
	"strconv"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"

	uqconfig "github.com/mbeoliero/uq/internal/config"
	"github.com/mbeoliero/uq/internal/handler"
	"github.com/mbeoliero/uq/pkg/errcode"
)

func newTestEngine() *route.Engine {
	r := route.NewEngine(config.NewOptions([]config.Option{}))
	cfg := &uqconfig.Config{
		AI:   uqconfig.AIConfig{RateRPS: 1, RateBurst: 1},
		Auth: uqconfig.AuthConfig{VerifyRPS: 0.001, VerifyBurst: 2},
	}
	SetupRouter(r, cfg, &Handlers{Auth: handler.NewAuthHandler(nil)}, nil, nil)
	return r
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestEngine()

	w := ut.PerformRequest(r, consts.MethodGet, "/health", nil)
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode())
	assert.JSONEq(t, `{"status":"ok"}`, string(w.Result().Body()))

	w = ut.PerformRequest(r, consts.MethodGet, "/metrics", nil)
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode())
	assert.True(t, strings.Contains(string(w.Result().Body()), "go_goroutines"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestEngine()

	for _, path := range []string{"/user/info", "/contact/list", "/msg/list", "/msg/unread_counts"} {
		w := ut.PerformRequest(r, consts.MethodGet, path, nil)
		assert.Contains(t, string(w.Result().Body()), `"code":`+strconv.Itoa(errcode.ErrTokenMissing.Code), path)
	}
}

func TestVerifyIsRateLimited(t *testing.T) {
	r := newTestEngine()

	// the limiter is shared by both verify methods
	for _, method := range []string{consts.MethodPost, consts.MethodGet} {
		w := ut.PerformRequest(r, method, "/auth/verify", nil)
		assert.NotEqual(t, consts.StatusTooManyRequests, w.Result().StatusCode(), method)
		assert.NotContains(t, string(w.Result().Body()), `"code":`+strconv.Itoa(errcode.ErrTooManyRequests.Code), method)
	}

	w := ut.PerformRequest(r, consts.MethodGet, "/auth/verify?email=a@b.test&code=000000", nil)
	assert.Equal(t, consts.StatusTooManyRequests, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), `"code":`+strconv.Itoa(errcode.ErrTooManyRequests.Code))
}

func TestCheckOrigin(t *testing.T) {
	withOrigin := func(origin string) *app.RequestContext {
		c := app.NewContext(0)
		if origin != "" {
			c.Request.Header.Set("Origin", origin)
		}
		return c
	}

	assert.True(t, checkOrigin(withOrigin(""), nil))
	assert.False(t, checkOrigin(withOrigin("http://a.test"), nil))
	assert.True(t, checkOrigin(withOrigin("http://A.test"), []string{"http://a.test"}))
	assert.False(t, checkOrigin(withOrigin("http://b.test"), []string{"http://a.test"}))
	assert.True(t, checkOrigin(withOrigin("http://b.test"), []string{"*"}))
}
