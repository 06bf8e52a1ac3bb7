package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caresbot/caresbot/internal/core"
)

func echoDescriptor(name string) *Descriptor {
	return &Descriptor{
		Name:        name,
		Description: "echoes its input",
		Capability:  core.CapStructuredQuery,
		ReadOnly:    true,
		Params: map[string]Param{
			"text":  {Type: "string", Required: true},
			"count": {Type: "integer"},
		},
		Handler: func(ctx context.Context, req Request) (Result, error) {
			return Result{Normalized: StringArg(req.Args, "text")}, nil
		},
	}
}

func TestRegister_DuplicateRejected(t *testing.T) {
	r := NewRegistry(time.Second)
	if err := r.Register(echoDescriptor("echo")); err != nil {
		t.Fatal(err)
	}
	err := r.Register(echoDescriptor("echo"))
	if !errors.Is(err, core.ErrDuplicateTool) {
		t.Errorf("duplicate: %v", err)
	}
}

func TestRegister_AfterSealRejected(t *testing.T) {
	r := NewRegistry(time.Second)
	r.Seal()
	if err := r.Register(echoDescriptor("late")); err == nil {
		t.Error("registration after seal accepted")
	}
}

func TestInvoke_UnknownTool(t *testing.T) {
	r := NewRegistry(time.Second)
	_, err := r.Invoke(context.Background(), "nope", "{}", "C001")
	if !errors.Is(err, core.ErrUnknownTool) {
		t.Errorf("unknown tool: %v", err)
	}
}

func TestInvoke_ArgumentValidation(t *testing.T) {
	r := NewRegistry(time.Second)
	if err := r.Register(echoDescriptor("echo")); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		args string
	}{
		{"not json", `[1,2]`},
		{"missing required", `{}`},
		{"unknown argument", `{"text":"hi","oops":1}`},
		{"wrong type", `{"text":42}`},
		{"fractional integer", `{"text":"hi","count":1.5}`},
	}
	for _, tc := range cases {
		_, err := r.Invoke(context.Background(), "echo", tc.args, "C001")
		var argErr *core.ArgumentError
		if !errors.As(err, &argErr) {
			t.Errorf("%s: expected ArgumentError, got %v", tc.name, err)
		}
	}

	res, err := r.Invoke(context.Background(), "echo", `{"text":"hi","count":3}`, "C001")
	if err != nil {
		t.Fatal(err)
	}
	if res.Normalized != "hi" {
		t.Errorf("result: %+v", res)
	}
}

func TestInvoke_EnumChecked(t *testing.T) {
	r := NewRegistry(time.Second)
	d := &Descriptor{
		Name:   "pick",
		Params: map[string]Param{"mode": {Type: "string", Enum: []string{"a", "b"}}},
		Handler: func(ctx context.Context, req Request) (Result, error) {
			return Result{Normalized: "ok"}, nil
		},
	}
	if err := r.Register(d); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Invoke(context.Background(), "pick", `{"mode":"a"}`, ""); err != nil {
		t.Errorf("valid enum value rejected: %v", err)
	}
	var argErr *core.ArgumentError
	_, err := r.Invoke(context.Background(), "pick", `{"mode":"z"}`, "")
	if !errors.As(err, &argErr) {
		t.Errorf("invalid enum value: %v", err)
	}
}

func TestInvoke_Timeout(t *testing.T) {
	r := NewRegistry(30 * time.Millisecond)
	d := &Descriptor{
		Name: "slow",
		Handler: func(ctx context.Context, req Request) (Result, error) {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(5 * time.Second):
				return Result{Normalized: "done"}, nil
			}
		},
	}
	if err := r.Register(d); err != nil {
		t.Fatal(err)
	}

	_, err := r.Invoke(context.Background(), "slow", "", "")
	if !errors.Is(err, core.ErrToolTimeout) {
		t.Errorf("timeout: %v", err)
	}
}

func TestInvoke_RetriesReadOnlyOnBackendUnavailable(t *testing.T) {
	r := NewRegistry(time.Second)
	calls := 0
	d := &Descriptor{
		Name:     "flaky",
		ReadOnly: true,
		Handler: func(ctx context.Context, req Request) (Result, error) {
			calls++
			if calls == 1 {
				return Result{}, core.ErrBackendUnavailable
			}
			return Result{Normalized: "recovered"}, nil
		},
	}
	if err := r.Register(d); err != nil {
		t.Fatal(err)
	}

	res, err := r.Invoke(context.Background(), "flaky", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 || res.Normalized != "recovered" {
		t.Errorf("calls=%d res=%+v", calls, res)
	}
}

func TestInvoke_NoRetryForMutatingTools(t *testing.T) {
	r := NewRegistry(time.Second)
	calls := 0
	d := &Descriptor{
		Name:     "writer",
		ReadOnly: false,
		Handler: func(ctx context.Context, req Request) (Result, error) {
			calls++
			return Result{}, core.ErrBackendUnavailable
		},
	}
	if err := r.Register(d); err != nil {
		t.Fatal(err)
	}

	_, err := r.Invoke(context.Background(), "writer", "", "")
	if !errors.Is(err, core.ErrBackendUnavailable) {
		t.Errorf("error: %v", err)
	}
	if calls != 1 {
		t.Errorf("mutating tool retried: %d calls", calls)
	}
}

func TestDefinitions_RegistrationOrderAndSchema(t *testing.T) {
	r := NewRegistry(time.Second)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(echoDescriptor(name)); err != nil {
			t.Fatal(err)
		}
	}

	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("definitions: %d", len(defs))
	}
	for i, want := range []string{"zeta", "alpha", "mid"} {
		if defs[i].Function.Name != want {
			t.Errorf("defs[%d] = %q, want %q", i, defs[i].Function.Name, want)
		}
	}

	schema, ok := defs[0].Function.Parameters.(map[string]interface{})
	if !ok {
		t.Fatalf("parameters: %T", defs[0].Function.Parameters)
	}
	if schema["type"] != "object" {
		t.Errorf("schema type: %v", schema["type"])
	}
	required, _ := schema["required"].([]string)
	if len(required) != 1 || required[0] != "text" {
		t.Errorf("required: %v", schema["required"])
	}
}

func TestCustomerIDPassedFromInvoker(t *testing.T) {
	r := NewRegistry(time.Second)
	var got string
	d := &Descriptor{
		Name:   "scoped",
		Params: map[string]Param{"customer_id": {Type: "string"}},
		Handler: func(ctx context.Context, req Request) (Result, error) {
			got = req.CustomerID
			return Result{Normalized: "ok"}, nil
		},
	}
	if err := r.Register(d); err != nil {
		t.Fatal(err)
	}

	// Identity in the arguments must not matter; only the invoker's does.
	if _, err := r.Invoke(context.Background(), "scoped", `{"customer_id":"C999"}`, "C001"); err != nil {
		t.Fatal(err)
	}
	if got != "C001" {
		t.Errorf("handler saw identity %q", got)
	}
}
