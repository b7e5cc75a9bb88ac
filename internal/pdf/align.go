package pdf

import (
	"errors"
	"fmt"
	"strings"
)

// PagePolicy decides which overlay page is composited onto each base page
// when the two documents differ in length
type PagePolicy string

const (
	// PolicyClamp reuses the last overlay page for every extra base page
	PolicyClamp PagePolicy = "clamp"
	// PolicyRepeat cycles through the overlay pages
	PolicyRepeat PagePolicy = "repeat"
	// PolicyFail rejects a base document longer than the overlay
	PolicyFail PagePolicy = "fail"
)

// PagePolicies lists the accepted policy names
func PagePolicies() []string {
	return []string{string(PolicyClamp), string(PolicyRepeat), string(PolicyFail)}
}

// ParsePagePolicy parses a policy name, case-insensitively
func ParsePagePolicy(s string) (PagePolicy, error) {
	switch p := PagePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyClamp, PolicyRepeat, PolicyFail:
		return p, nil
	case "":
		return PolicyClamp, nil
	default:
		return "", fmt.Errorf("invalid page policy %q (valid: %s)", s, strings.Join(PagePolicies(), ", "))
	}
}

// ErrPageOutOfRange is returned by Align under PolicyFail
var ErrPageOutOfRange = errors.New("base page has no matching overlay page")

// Align returns the 0-based overlay page index for base page i given n
// overlay pages
func Align(policy PagePolicy, i, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("overlay has no pages")
	}
	if i < 0 {
		return 0, fmt.Errorf("negative page index %d", i)
	}

	switch policy {
	case PolicyRepeat:
		return i % n, nil
	case PolicyFail:
		if i >= n {
			return 0, ErrPageOutOfRange
		}
		return i, nil
	default:
		return min(i, n-1), nil
	}
}
