package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/mbeoliero/uq/pkg/errcode"
)

// Response is the envelope of every API reply. Code 0 means success.
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

const successMsg = "success"

func write(c *app.RequestContext, status int, e *errcode.Error, data interface{}) {
	resp := Response{Msg: successMsg, Data: data}
	if e != nil {
		resp = Response{Code: e.Code, Msg: e.Msg}
	}
	c.JSON(status, resp)
}

func Success(_ context.Context, c *app.RequestContext, data interface{}) {
	write(c, http.StatusOK, nil, data)
}

// Error replies with the business error inside err, anything else becomes an internal error
func Error(_ context.Context, c *app.RequestContext, err error) {
	write(c, http.StatusOK, errcode.From(err), nil)
}

func ErrorWithCode(_ context.Context, c *app.RequestContext, e *errcode.Error) {
	write(c, http.StatusOK, e, nil)
}

// TooManyRequests is the only reply that leaves 200, so proxies and clients can back off
func TooManyRequests(_ context.Context, c *app.RequestContext) {
	write(c, http.StatusTooManyRequests, errcode.ErrTooManyRequests, nil)
}
