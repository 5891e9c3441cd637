package autoscout

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// digitsToInt strips every non-digit and parses the rest. Empty input or
// overflow yields nil.
func digitsToInt(s string) *int {
	digits := nonDigitPattern.ReplaceAllString(s, "")
	if digits == "" {
		return nil
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &v
}

// parsePowerText reads "(<hp> hp)" and "<kw> kW" tokens independently.
func parsePowerText(text string) (hp, kw *int) {
	if m := powerHPPattern.FindStringSubmatch(text); m != nil {
		hp = digitsToInt(m[1])
	}
	if m := powerKWPattern.FindStringSubmatch(text); m != nil {
		kw = digitsToInt(m[1])
	}
	return hp, kw
}

// parsePriceText reads the first run of digits and grouping separators,
// e.g. "€ 15.000,-" -> 15000.
func parsePriceText(text string) *int {
	match := priceTextPattern.FindString(text)
	if match == "" {
		return nil
	}
	digits := priceGrouping.ReplaceAllString(match, "")
	if digits == "" {
		return nil
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &v
}

// ColorFromURL infers the paint color from a detail-page URL. The last path
// segment is split on hyphens and the token before the trailing identifier is
// taken, skipping a paint-finish word such as "metallic".
func ColorFromURL(raw string) *string {
	if raw == "" {
		return nil
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	segment := path.Base(strings.TrimRight(p, "/"))
	tokens := strings.Split(segment, "-")
	if len(tokens) < 2 {
		return nil
	}
	idx := len(tokens) - 2
	if colorFinishTokens[strings.ToLower(tokens[idx])] && idx > 0 {
		idx--
	}
	return colorFromToken(tokens[idx])
}

// colorFromToken accepts purely alphabetic tokens of 3 to 14 letters.
func colorFromToken(token string) *string {
	if !colorTokenPattern.MatchString(token) {
		return nil
	}
	c := titleCase(token)
	return &c
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// firstString returns the first non-blank value.
func firstString(values ...string) *string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return &v
		}
	}
	return nil
}
