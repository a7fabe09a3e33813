package synthesis_test

import (
	"strings"
	"testing"

	"panelsmith/internal/synthesis"
)

func TestSanitizePrompt(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "dead body",
			in:   "Detective kneels over a dead body in the alley",
			want: "Detective kneels over a figure on the ground in the alley",
		},
		{
			name: "compound before component",
			in:   "a covered body on the slab",
			want: "a covered figure on the ground on the slab",
		},
		{
			name: "blood",
			in:   "Blood pools under the door",
			want: "dark stains pools under the door",
		},
		{
			name: "gun pointing",
			in:   "Mara pointing a gun at the intruder",
			want: "Mara holding weapon at side at the intruder",
		},
		{
			name: "gore dropped and spaces collapsed",
			in:   "a scene of gore and ruin",
			want: "a scene of and ruin",
		},
		{
			name: "case insensitive",
			in:   "MURDER in the cathedral",
			want: "crime in the cathedral",
		},
		{
			name: "clean prompt untouched",
			in:   "two friends sharing tea by a window",
			want: "two friends sharing tea by a window",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := synthesis.SanitizePrompt(tc.in)
			if got != tc.want {
				t.Fatalf("SanitizePrompt(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Mara", "Mara"},
		{"Detective Sarah Chen", "Detective_Sarah_Chen"},
		{"D'Artagnan!", "DArtagnan"},
		{"  padded  ", "padded"},
		{"mixed-case_ok 9", "mixed-case_ok_9"},
	}
	for _, tc := range cases {
		if got := synthesis.SanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizePromptKeepsMeaningfulLength(t *testing.T) {
	in := "The killer is attacking the guard, firing a gun while bleeding"
	got := synthesis.SanitizePrompt(in)
	for _, banned := range []string{"attacking", "firing a gun", "bleeding"} {
		if strings.Contains(got, banned) {
			t.Fatalf("expected %q to be rewritten, got %q", banned, got)
		}
	}
}
