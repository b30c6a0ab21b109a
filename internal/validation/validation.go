package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// HTTPURL validates that raw is an absolute http(s) URL. field names the
// input in the error.
func HTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL", field)
	}
	return nil
}

// VersionLabel validates a version label. Labels are used as a single path
// segment of the call URL.
func VersionLabel(v string) error {
	if v == "" {
		return fmt.Errorf("version is required")
	}
	if strings.ContainsAny(v, "/?#") {
		return fmt.Errorf("version cannot contain '/', '?' or '#'")
	}
	return nil
}

// HeaderKeys validates that every injected header has a usable name.
func HeaderKeys(keys []string) error {
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("header key is required")
		}
		if strings.ContainsAny(k, " :\r\n") {
			return fmt.Errorf("invalid header key %q", k)
		}
	}
	return nil
}
