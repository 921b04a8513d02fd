package logging

import "net/url"

// RedactURL masks the api_key query parameter of u, including one nested
// inside a proxy target parameter.
func RedactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}

	q := parsed.Query()
	changed := false
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		changed = true
	}
	if target := q.Get("target"); target != "" {
		if redacted := RedactURL(target); redacted != target {
			q.Set("target", redacted)
			changed = true
		}
	}
	if !changed {
		return u
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
