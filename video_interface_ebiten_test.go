//go:build !headless

package main

import "testing"

func TestEbitenOutput_Implements(t *testing.T) {
	eo := &EbitenOutput{}
	if _, ok := any(eo).(InputCapable); !ok {
		t.Fatal("expected EbitenOutput to implement InputCapable")
	}
	if _, ok := any(eo).(StatusCapable); !ok {
		t.Fatal("expected EbitenOutput to implement StatusCapable")
	}
	if _, ok := any(eo).(VideoOutput); !ok {
		t.Fatal("expected EbitenOutput to implement VideoOutput")
	}
}
