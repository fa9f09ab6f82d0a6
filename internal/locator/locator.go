package locator

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind is the element lookup strategy of a Reference.
type Kind int

// Lookup strategies. XPath is the zero value and the fallback.
const (
	XPath Kind = iota
	ID
	Name
	LinkText
	PartialLinkText
	CSSSelector
	ClassName
	TagName
)

// String returns the W3C WebDriver strategy name for the kind.
func (k Kind) String() string {
	switch k {
	case ID:
		return "id"
	case Name:
		return "name"
	case LinkText:
		return "link text"
	case PartialLinkText:
		return "partial link text"
	case CSSSelector:
		return "css selector"
	case ClassName:
		return "class name"
	case TagName:
		return "tag name"
	default:
		return "xpath"
	}
}

// prefixes maps lower-cased locator prefixes to kinds.
var prefixes = map[string]Kind{
	"id":              ID,
	"name":            Name,
	"xpath":           XPath,
	"link":            LinkText,
	"linktext":        LinkText,
	"partiallinktext": PartialLinkText,
	"css":             CSSSelector,
	"cssselector":     CSSSelector,
	"classname":       ClassName,
	"tagname":         TagName,
}

// Reference identifies one element lookup. It is created by parsing and
// consumed by the driver call that resolves it.
type Reference struct {
	Kind  Kind
	Value string
}

// String renders the reference in prefixed form.
func (r Reference) String() string {
	return fmt.Sprintf("%s=%s", r.Kind, r.Value)
}

// Resolution tells how the kind of a parsed reference was decided.
type Resolution int

const (
	// Bare means the string had no prefix and XPath was assumed.
	Bare Resolution = iota
	// Recognized means the prefix matched the prefix table.
	Recognized
	// DefaultedToXPath means a prefix was present but unknown.
	DefaultedToXPath
)

func (r Resolution) String() string {
	switch r {
	case Recognized:
		return "recognized"
	case DefaultedToXPath:
		return "defaulted_to_xpath"
	default:
		return "bare"
	}
}

// Parsed is a Reference together with how it was resolved.
type Parsed struct {
	Reference
	Resolution Resolution
	// Prefix is the normalized prefix as written, empty for bare strings.
	Prefix string
}

// Parse converts a locator string into a Reference. It never fails.
func Parse(raw string) Reference {
	return Resolve(raw).Reference
}

// Resolve parses raw and reports whether its prefix was recognized.
func Resolve(raw string) Parsed {
	s := unquote(strings.TrimSpace(raw))

	left, right, found := strings.Cut(s, "=")
	prefix := strings.ToLower(strings.TrimSpace(left))
	if !found || !isPrefixToken(prefix) {
		return Parsed{Reference: Reference{Kind: XPath, Value: s}, Resolution: Bare}
	}

	value := unquote(strings.TrimSpace(right))
	kind, ok := prefixes[prefix]
	if !ok {
		return Parsed{
			Reference:  Reference{Kind: XPath, Value: value},
			Resolution: DefaultedToXPath,
			Prefix:     prefix,
		}
	}
	return Parsed{
		Reference:  Reference{Kind: kind, Value: value},
		Resolution: Recognized,
		Prefix:     prefix,
	}
}

// isPrefixToken reports whether s can be a locator prefix. Expressions such
// as //div[@id='x'] or input[name=q] contain '=' but no prefix and are kept
// whole. An empty prefix counts and defaults to XPath.
func isPrefixToken(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// unquote strips one layer of matching single or double quotes.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '"' || first == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
