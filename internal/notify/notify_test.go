package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"

	"github.com/example/kycstack/internal/confpush"
	"github.com/example/kycstack/internal/errs"
)

type recordingInvoker struct {
	function string
	payload  string
	resp     confpush.Response
}

func (r *recordingInvoker) Invoke(_ context.Context, function string, payload []byte) (confpush.Response, error) {
	r.function = function
	r.payload = string(payload)
	return r.resp, nil
}

func TestNotifySendsReboot(t *testing.T) {
	inv := &recordingInvoker{resp: confpush.Response{StatusCode: 200}}
	c := &Client{Invoker: inv, Log: logr.Discard()}
	if err := c.Notify(context.Background(), "prod"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if inv.function != "prod-cli" || inv.payload != `{"name":"reboot"}` {
		t.Fatalf("unexpected invocation %q %q", inv.function, inv.payload)
	}
}

func TestNotifySurfacesFunctionError(t *testing.T) {
	inv := &recordingInvoker{resp: confpush.Response{StatusCode: 200, FunctionError: "Unhandled", Payload: []byte("reboot failed")}}
	c := &Client{Invoker: inv, Function: "control", Log: logr.Discard()}
	err := c.Notify(context.Background(), "prod")
	if !errors.Is(err, errs.ErrProviderOperationFailed) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	if inv.function != "prod-control" {
		t.Fatalf("expected custom function, got %q", inv.function)
	}
}
