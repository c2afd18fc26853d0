package app

import "testing"

// spec.md §8 "registry docker config key selection": an explicit
// hostname always wins; otherwise the image reference decides
// docker.io (bare or two-segment, no dot/colon/port in the first
// segment) vs a private registry host.
func TestRegistryAuthKey(t *testing.T) {
	cases := []struct {
		name             string
		image            string
		explicitHostname string
		want             string
	}{
		{"explicit hostname always wins", "registry.example.com/app:latest", "registry.other.com", "registry.other.com"},
		{"bare docker hub image", "nginx", "", dockerHubAuthKey},
		{"two segment docker hub image", "library/nginx", "", dockerHubAuthKey},
		{"private registry with port", "localhost:5000/app", "", "localhost:5000"},
		{"private registry with dot", "registry.example.com/app", "", "registry.example.com"},
		{"localhost without port", "localhost/app", "", "localhost"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := registryAuthKey(tc.image, tc.explicitHostname); got != tc.want {
				t.Errorf("registryAuthKey(%q, %q) = %q, want %q", tc.image, tc.explicitHostname, got, tc.want)
			}
		})
	}
}
