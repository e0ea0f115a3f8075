package factory

import (
	"testing"
	"time"
)

type sample struct{ A int }

type sampleConf struct {
	A int `json:"a"`
}

// Test registry registration and instantiation using Decode.
func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{A: c.A}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"a": 3}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.A != 3 {
		t.Fatalf("expected 3 got %d", inst.A)
	}
}

// Test duplicate registration and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", nil); err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "y"}); err == nil {
		t.Fatal("expected unknown type error")
	}
}

func TestRegistry_CreateAllAndTypes(t *testing.T) {
	reg := NewRegistry[string]()
	_ = reg.Register("b", func(map[string]any) (string, error) { return "b", nil })
	_ = reg.Register("a", func(map[string]any) (string, error) { return "a", nil })
	got, err := reg.CreateAll([]ModuleConfig{{Type: "b"}, {Type: "a"}})
	if err != nil {
		t.Fatalf("create all: %v", err)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("unexpected modules %v", got)
	}
	if types := reg.Types(); len(types) != 2 || types[0] != "a" {
		t.Fatalf("unexpected types %v", types)
	}
	if _, err := reg.CreateAll([]ModuleConfig{{Type: "c"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestDecode_WeakTypes(t *testing.T) {
	var c struct {
		Port    int           `json:"port"`
		Timeout time.Duration `json:"timeout"`
	}
	if err := Decode(map[string]any{"port": "1883", "timeout": "2s"}, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Port != 1883 || c.Timeout != 2*time.Second {
		t.Fatalf("unexpected decode result %+v", c)
	}
}
