package gateway

import (
	"errors"
	"testing"
)

func TestNormalizeAddressCanonicalizes(t *testing.T) {
	got, err := NormalizeAddress("HTTPS://WWW.Airbnb.com/rooms/12345/?source=email#photos")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := "https://www.airbnb.com/rooms/12345"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalizeAddressAddsScheme(t *testing.T) {
	got, err := NormalizeAddress("airbnb.com/rooms/98")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "https://airbnb.com/rooms/98" {
		t.Fatalf("unexpected address %q", got)
	}
}

func TestNormalizeAddressRejectsOtherHosts(t *testing.T) {
	cases := []string{
		"https://example.com/rooms/1",
		"https://www.airbnb.com/experiences/1",
		"ftp://www.airbnb.com/rooms/1",
		"   ",
	}
	for _, c := range cases {
		if _, err := NormalizeAddress(c); !errors.Is(err, ErrUnsupportedAddress) {
			t.Fatalf("expected ErrUnsupportedAddress for %q, got %v", c, err)
		}
	}
}

func TestNormalizeAddressEquivalentInputsMatch(t *testing.T) {
	a, err := NormalizeAddress("https://www.airbnb.com/rooms/777/")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, err := NormalizeAddress("www.airbnb.com/rooms/777?adults=2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a != b {
		t.Fatalf("expected equal addresses, got %q and %q", a, b)
	}
}
