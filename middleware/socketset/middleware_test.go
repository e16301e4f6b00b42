package socketset_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RobertWHurst/websockify"
	"github.com/RobertWHurst/websockify/middleware/socketset"
	"github.com/RobertWHurst/websockify/websockifytest"
)

func TestMiddleware(t *testing.T) {
	socket, _ := websockifytest.NewSocket()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	reached := false
	websockify.NewContext(socket, req,
		socketset.Middleware("serverVersion", "1.0.0"),
		func(ctx *websockify.Context) {
			reached = true
			if v, ok := ctx.GetFromSocket("serverVersion"); !ok || v != "1.0.0" {
				t.Errorf("expected '1.0.0', got %v", v)
			}
		},
	).Next()

	if !reached {
		t.Error("expected handler after middleware to run")
	}
	if socket.MustGet("serverVersion") != "1.0.0" {
		t.Error("expected value to outlive the context")
	}
}
