package browser

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnresolvableTarget is returned for navigation targets that cannot or
// must not be followed
var ErrUnresolvableTarget = errors.New("unresolvable navigation target")

var blockedSchemes = []string{"javascript:", "data:", "vbscript:"}

// ResolveTarget resolves target against base, the URL of the page the
// navigation came from. Either may lack a scheme, in which case https is
// assumed. An empty base requires target to stand on its own.
func ResolveTarget(base, target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("%w: empty target", ErrUnresolvableTarget)
	}

	lower := strings.ToLower(target)
	for _, scheme := range blockedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", fmt.Errorf("%w: %s URLs are not navigable", ErrUnresolvableTarget, strings.TrimSuffix(scheme, ":"))
		}
	}

	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnresolvableTarget, err)
	}

	base = strings.TrimSpace(base)
	if base == "" {
		if ref.Scheme != "" {
			return ref.String(), nil
		}
		abs, err := url.Parse(withScheme(target))
		if err != nil || abs.Host == "" {
			return "", fmt.Errorf("%w: relative target %q without a page", ErrUnresolvableTarget, target)
		}
		return abs.String(), nil
	}

	parsedBase, err := url.Parse(withScheme(base))
	if err != nil {
		return "", fmt.Errorf("%w: bad page URL %q: %v", ErrUnresolvableTarget, base, err)
	}
	return parsedBase.ResolveReference(ref).String(), nil
}

// withScheme prefixes https:// when raw has no scheme
func withScheme(raw string) string {
	if i := strings.Index(raw, "://"); i > 0 {
		return raw
	}
	return "https://" + strings.TrimPrefix(raw, "//")
}
