package sanitizer

import (
	"net/url"
	"strings"
)

// SanitizeURL forces https and a lowercase host, and drops utm_ parameters.
// Paths keep their case since object storage keys are case sensitive.
func SanitizeURL(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
		s = s[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		s = s[len("http://"):]
	}
	s = "https://" + s

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")

	if u.RawQuery != "" {
		q := url.Values{}
		for k, v := range u.Query() {
			if strings.HasPrefix(strings.ToLower(k), "utm_") {
				continue
			}
			for _, val := range v {
				if val != "" {
					q.Add(k, val)
				}
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}

func SanitizeURLs(urls []string) []string {
	return SanitizeSlice(urls, SanitizeURL)
}
