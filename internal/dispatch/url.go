package dispatch

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseCommandURL decodes the external command surface's URL-scheme
// form, `pin://<command>?<k=v>&…` (spec.md §6).
func ParseCommandURL(raw string) (Command, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Command{}, fmt.Errorf("dispatch: invalid command url: %w", err)
	}
	if u.Scheme != "pin" {
		return Command{}, fmt.Errorf("dispatch: unsupported scheme %q", u.Scheme)
	}

	name := strings.TrimPrefix(u.Opaque, "//")
	if name == "" {
		name = strings.Trim(u.Host+u.Path, "/")
	}

	args := make(map[string]string, len(u.Query()))
	for k, v := range u.Query() {
		if len(v) > 0 {
			args[k] = v[0]
		}
	}
	return Command{Name: name, Args: args}, nil
}
