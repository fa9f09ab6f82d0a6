package locator

import "strings"

// Selector renders the reference in Playwright selector-engine syntax.
// Strategies Playwright has no engine for are expressed as CSS or XPath.
func (r Reference) Selector() string {
	switch r.Kind {
	case ID:
		return "css=[id=" + cssString(r.Value) + "]"
	case Name:
		return "css=[name=" + cssString(r.Value) + "]"
	case LinkText:
		return "xpath=//a[normalize-space(.)=" + xpathLiteral(strings.TrimSpace(r.Value)) + "]"
	case PartialLinkText:
		return "xpath=//a[contains(normalize-space(.), " + xpathLiteral(strings.TrimSpace(r.Value)) + ")]"
	case CSSSelector:
		return "css=" + r.Value
	case ClassName:
		return "css=[class~=" + cssString(r.Value) + "]"
	case TagName:
		return "css=" + r.Value
	default:
		return "xpath=" + r.Value
	}
}

// cssString quotes s as a CSS string token.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
