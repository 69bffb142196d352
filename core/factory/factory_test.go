package factory

import (
	"reflect"
	"testing"
	"time"
)

type sample struct {
	A     int
	Every time.Duration
}

type sampleConf struct {
	A     int           `json:"a"`
	Every time.Duration `json:"every"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{A: c.A, Every: c.Every}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"a": "3", "every": "30s"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.A != 3 || inst.Every != 30*time.Second {
		t.Fatalf("unexpected decode %+v", inst)
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("nil", nil); err == nil {
		t.Fatal("expected error for nil factory")
	}
	f := func(map[string]any) (int, error) { return 1, nil }
	if err := reg.Register("one", f); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("one", f); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "two"}); err == nil {
		t.Fatal("expected unknown type error")
	}
	if !reflect.DeepEqual(reg.Types(), []string{"one"}) {
		t.Fatalf("types %v", reg.Types())
	}
}
