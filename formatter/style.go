package formatter

import (
	"regexp"

	"github.com/pkg/errors"
)

// Style selects the placeholder syntax a template is written in.
type Style string

const (
	// StylePercent matches %(name) placeholders
	StylePercent Style = "%"
	// StyleBrace matches {name} placeholders
	StyleBrace Style = "{"
	// StyleDollar matches ${name} placeholders
	StyleDollar Style = "$"
)

// ErrInvalidStyle is returned when a template style is not one of the
// supported placeholder syntaxes.
var ErrInvalidStyle = errors.New("unknown template style")

var (
	percentPattern = regexp.MustCompile(`%\((.+?)\)`)
	bracePattern   = regexp.MustCompile(`\{(.+?)\}`)
	dollarPattern  = regexp.MustCompile(`\$\{(.+?)\}`)
)

// DefaultTemplate selects just the message attribute. Constructors that
// want a usable formatter without template plumbing pass it explicitly;
// an empty template selects nothing.
const DefaultTemplate = "%(message)"

// parseTemplate extracts the attribute names referenced by the template
// placeholders, in order of first appearance. Text between placeholders
// is ignored; only the names matter. An empty template selects no
// attributes at all: output is then driven entirely by static fields,
// message payloads, and extras. Names are kept exactly as written, so a
// brace placeholder carrying a format spec like {lineno:d} yields the
// literal name "lineno:d".
func parseTemplate(template string, style Style) ([]string, error) {
	var pattern *regexp.Regexp
	switch style {
	case StylePercent, "":
		pattern = percentPattern
	case StyleBrace:
		pattern = bracePattern
	case StyleDollar:
		pattern = dollarPattern
	default:
		return nil, errors.Wrapf(ErrInvalidStyle, "style %q", string(style))
	}

	if template == "" {
		return nil, nil
	}

	matches := pattern.FindAllStringSubmatch(template, -1)
	fields := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, name)
	}
	return fields, nil
}
