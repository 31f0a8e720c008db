package cli

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// parseHeaders converts repeated --header "Name: value" flags into an
// http.Header, validating names and values per RFC 7230.
func parseHeaders(values []string) (http.Header, error) {
	if len(values) == 0 {
		return nil, nil
	}

	header := http.Header{}
	for _, raw := range values {
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: value\")", raw)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if !httpguts.ValidHeaderFieldName(name) {
			return nil, fmt.Errorf("invalid header name %q", name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("invalid value for header %s", name)
		}
		header.Add(name, value)
	}
	return header, nil
}

// headerStrings validates and normalizes --header flags for the
// vendor-CLI passthrough commands, which take them as strings.
// Input order is preserved.
func headerStrings(values []string) ([]string, error) {
	var out []string
	for _, raw := range values {
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: value\")", raw)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if !httpguts.ValidHeaderFieldName(name) {
			return nil, fmt.Errorf("invalid header name %q", name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("invalid value for header %s", name)
		}
		out = append(out, name+": "+value)
	}
	return out, nil
}

// normalizeAPIPath makes passthrough paths absolute.
func normalizeAPIPath(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
