package modules

import (
	"errors"
	"testing"
)

type stubModule struct {
	name   string
	deps   []string
	schema *Schema
	init   func(ctx *InitContext) error
}

func (m *stubModule) Name() string        { return m.name }
func (m *stubModule) Description() string { return "stub " + m.name }
func (m *stubModule) DependsOn() []string { return m.deps }
func (m *stubModule) Schema() *Schema     { return m.schema }
func (m *stubModule) Init(ctx *InitContext) error {
	if m.init == nil {
		return nil
	}
	return m.init(ctx)
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry()

	m := &stubModule{name: "redis"}

	// Register module
	err := registry.Register(m)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Try to register duplicate
	err = registry.Register(m)
	if err == nil {
		t.Error("Register() should fail for duplicate module")
	}
}

func TestRegistryRegisterInvalidSchema(t *testing.T) {
	registry := NewRegistry()

	m := &stubModule{name: "email", schema: NewSchema(&Field{Name: "provider", Type: FieldTypeSelect})}
	if err := registry.Register(m); err == nil {
		t.Error("Register() should fail for select field without options")
	}
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(&stubModule{name: "redis"})

	got, err := registry.Get("redis")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name() != "redis" {
		t.Errorf("Get() name = %v, want redis", got.Name())
	}

	_, err = registry.Get("non-existent")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Get() error = %v, want NotFoundError", err)
	}
	if notFound.Name != "non-existent" {
		t.Errorf("NotFoundError.Name = %v", notFound.Name)
	}
}

func TestRegistryListSorted(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(
		&stubModule{name: "queue"},
		&stubModule{name: "auth"},
		&stubModule{name: "media"},
	)

	names := registry.Names()
	want := []string{"auth", "media", "queue"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %v, want %v", i, names[i], want[i])
		}
	}
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(&stubModule{name: "redis"})

	if err := registry.Unregister("redis"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if registry.Exists("redis") {
		t.Error("Exists() should be false after Unregister()")
	}
	if err := registry.Unregister("redis"); err == nil {
		t.Error("Unregister() should fail for unknown module")
	}
}

func TestDescribe(t *testing.T) {
	m := &stubModule{
		name: "email",
		deps: []string{"core"},
		schema: NewSchema(
			&Field{Name: "provider", Type: FieldTypeSelect, Options: []string{"smtp", "log"}, Default: "log"},
			&Field{Name: "from", Type: FieldTypeString, Required: true},
		),
	}

	info := Describe(m)
	if info.Name != "email" || info.Description != "stub email" {
		t.Errorf("unexpected info %+v", info)
	}
	if info.Required {
		t.Error("stub module is not required")
	}
	if len(info.DependsOn) != 1 || info.DependsOn[0] != "core" {
		t.Errorf("DependsOn = %v", info.DependsOn)
	}
	if len(info.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(info.Fields))
	}
	if info.Fields[0].Default != "log" || len(info.Fields[0].Options) != 2 {
		t.Errorf("unexpected provider field %+v", info.Fields[0])
	}
	if !info.Fields[1].Required {
		t.Error("from should be required")
	}

	empty := Describe(&stubModule{name: "bare"})
	if empty.Fields == nil || empty.DependsOn == nil {
		t.Error("slices should serialize as empty arrays")
	}
}
