package model

import "testing"

func TestVehicleIcon(t *testing.T) {
	cases := map[string]string{
		"car":      "car",
		"Легковой": "car",
		"bus":      "bus",
		"автобус":  "bus",
		"грузовой": "truck",
		"":         "truck",
	}
	for typ, want := range cases {
		if got := (Vehicle{Type: typ}).Icon(); got != want {
			t.Errorf("Icon(%q) = %s, want %s", typ, got, want)
		}
	}
}

func TestVehicleLabel(t *testing.T) {
	if l := (Vehicle{ID: 3}).Label(); l != "#3" {
		t.Fatalf("unexpected label %s", l)
	}
	if l := (Vehicle{ID: 3, RegistrationNumber: "A1000BC77"}).Label(); l != "A1000BC77" {
		t.Fatalf("unexpected label %s", l)
	}
}
