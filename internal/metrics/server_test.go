package metrics

import (
	"context"
	"testing"
)

func TestAddrDisabled(t *testing.T) {
	for _, addr := range []string{"", "off", "OFF", "disabled", "false"} {
		if !addrDisabled(addr) {
			t.Errorf("addrDisabled(%q) = false, want true", addr)
		}
	}
	if addrDisabled(":9102") {
		t.Error("addrDisabled(\":9102\") = true, want false")
	}
}

func TestStartServer_DisabledAddr(t *testing.T) {
	srv, errCh := StartServer(context.Background(), "off")
	if srv != nil || errCh != nil {
		t.Fatalf("StartServer(off) = (%v, %v), want (nil, nil)", srv, errCh)
	}
	srv, errCh = StartServer(context.Background(), "  ")
	if srv != nil || errCh != nil {
		t.Fatalf("StartServer(blank) = (%v, %v), want (nil, nil)", srv, errCh)
	}
}
