package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersionDefault(t *testing.T) {
	if Version == "" {
		t.Fatal("Version should have a default value")
	}
}

func TestColoredPlain(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	for _, v := range []string{"0.3.0-dev", "1.2.3", "1.0.0-beta.1+build.7", "dev", "1.2"} {
		if got := Colored(v); got != v {
			t.Fatalf("Colored(%q) = %q without color, want input unchanged", v, got)
		}
	}
}

func TestColoredAddsEscapes(t *testing.T) {
	orig := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = orig })

	got := Colored("1.2.3-rc.1")
	if got == "1.2.3-rc.1" {
		t.Fatalf("expected escape sequences, got %q", got)
	}
	if want := "-rc.1"; got[len(got)-len(want):] != want {
		t.Fatalf("suffix should stay plain, got %q", got)
	}
}
