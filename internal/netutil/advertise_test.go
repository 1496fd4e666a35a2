package netutil

import (
	"net"
	"testing"
)

func TestResolveAdvertiseIPHonorsHostOverride(t *testing.T) {
	got, err := ResolveAdvertiseIP("node-a.example.com", "private")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "node-a.example.com" {
		t.Fatalf("expected host override to pass through verbatim, got %q", got)
	}
}

func TestResolveAdvertiseIPRejectsUnknownMode(t *testing.T) {
	if _, err := ResolveAdvertiseIP("", "sideways"); err == nil {
		t.Fatalf("expected an error for an unknown advertise mode")
	}
}

func TestIsPrivateIP(t *testing.T) {
	cases := []struct {
		ip      string
		private bool
	}{
		{"10.0.0.5", true},
		{"172.16.4.1", true},
		{"192.168.1.1", true},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
	}
	for _, c := range cases {
		ip := net.ParseIP(c.ip).To4()
		if got := isPrivateIP(ip); got != c.private {
			t.Errorf("isPrivateIP(%s) = %v, want %v", c.ip, got, c.private)
		}
	}
}

func TestBindAddrDefaultsToAllInterfaces(t *testing.T) {
	if got := BindAddr("", 7946); got != "0.0.0.0:7946" {
		t.Fatalf("expected default bind interface, got %q", got)
	}
	if got := BindAddr("192.168.1.5", 7946); got != "192.168.1.5:7946" {
		t.Fatalf("expected explicit bind interface to pass through, got %q", got)
	}
}

func TestAdvertiseAddrFormatsHostPort(t *testing.T) {
	if got := AdvertiseAddr("203.0.113.9", 7946); got != "203.0.113.9:7946" {
		t.Fatalf("unexpected advertise address: %q", got)
	}
}
