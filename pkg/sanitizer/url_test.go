package sanitizer

import "testing"

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "adds https",
			input: "cdn.example.com/cars/a.jpg",
			want:  "https://cdn.example.com/cars/a.jpg",
		},
		{
			name:  "upgrades http",
			input: "http://cdn.example.com/cars/a.jpg",
			want:  "https://cdn.example.com/cars/a.jpg",
		},
		{
			name:  "lowercases host only",
			input: "https://CDN.Example.com/Cars/Photo.JPG",
			want:  "https://cdn.example.com/Cars/Photo.JPG",
		},
		{
			name:  "drops tracking parameters",
			input: "https://cdn.example.com/a.jpg?utm_source=x&v=2",
			want:  "https://cdn.example.com/a.jpg?v=2",
		},
		{
			name:  "empty",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeURL(tt.input); got != tt.want {
				t.Errorf("SanitizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeURLs_Dedupes(t *testing.T) {
	got := SanitizeURLs([]string{"http://a.com/x.png", "https://A.com/x.png", ""})
	if len(got) != 1 || got[0] != "https://a.com/x.png" {
		t.Errorf("SanitizeURLs() = %v", got)
	}
}
