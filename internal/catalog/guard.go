package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// guardPattern matches SQL-ish keywords as whole words. All persistence
// access is parameterized; this screen is defense in depth for free-text
// fields that end up inside pattern matches.
var guardPattern = regexp.MustCompile(`(?i)\b(?:CREATE|DROP|ALTER|TRUNCATE|RENAME|INSERT|UPDATE|DELETE|MERGE|UPSERT|BULK\s+INSERT|COPY|KILL|SHUTDOWN|UNION|ALL|SELECT)\b`)

// GuardText rejects free-text input containing denylisted keywords. The
// field name only feeds the error message.
func GuardText(field, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if guardPattern.MatchString(text) {
		return fmt.Errorf("%w: field %s", ErrInvalidInput, field)
	}
	return nil
}

// GuardFilter screens every free-text dimension of a filter.
func GuardFilter(f *ProductFilter) error {
	if f == nil {
		return nil
	}
	if err := GuardText("keyword", f.Keyword); err != nil {
		return err
	}
	return GuardText("brandName", f.BrandName)
}
