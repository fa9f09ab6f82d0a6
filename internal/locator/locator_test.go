package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_CaseWhitespaceQuoteInsensitive(t *testing.T) {
	want := Reference{Kind: ID, Value: "foo"}
	for _, raw := range []string{`id=foo`, `ID = foo`, `'id=foo'`, `"id=foo"`, `  id="foo"  `, `Id='foo'`} {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, want, Parse(raw))
		})
	}
}

func TestParse_PrefixTable(t *testing.T) {
	tests := []struct {
		raw  string
		want Reference
	}{
		{"id=search", Reference{ID, "search"}},
		{"name=q", Reference{Name, "q"}},
		{"xpath=//input", Reference{XPath, "//input"}},
		{"link=First Name", Reference{LinkText, "First Name"}},
		{"linktext=First Name", Reference{LinkText, "First Name"}},
		{"partiallinktext=First", Reference{PartialLinkText, "First"}},
		{"css=table > tbody tr", Reference{CSSSelector, "table > tbody tr"}},
		{"cssSelector=#main", Reference{CSSSelector, "#main"}},
		{"className=btn-danger", Reference{ClassName, "btn-danger"}},
		{"tagName=table", Reference{TagName, "table"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Resolve(tt.raw)
			assert.Equal(t, tt.want, got.Reference)
			assert.Equal(t, Recognized, got.Resolution)
		})
	}
}

func TestResolve_UnknownPrefixDefaultsToXPath(t *testing.T) {
	got := Resolve("bogus=x")
	assert.Equal(t, Reference{Kind: XPath, Value: "x"}, got.Reference)
	assert.Equal(t, DefaultedToXPath, got.Resolution)
	assert.Equal(t, "bogus", got.Prefix)

	empty := Resolve("=x")
	assert.Equal(t, Reference{Kind: XPath, Value: "x"}, empty.Reference)
	assert.Equal(t, DefaultedToXPath, empty.Resolution)
}

func TestResolve_BareStringIsXPath(t *testing.T) {
	for _, raw := range []string{
		`//div[@id='x']`,
		`//button[text()='Delete']`,
		`(.//*[normalize-space(text()) and normalize-space(.)='E55555'])[1]/following::button[1]`,
		`//table`,
	} {
		got := Resolve(raw)
		assert.Equal(t, Reference{Kind: XPath, Value: raw}, got.Reference, raw)
		assert.Equal(t, Bare, got.Resolution, raw)
	}
}

func TestParse_SplitsOnFirstEqualsOnly(t *testing.T) {
	got := Parse(`xpath=//input[@ng-model='searchCustomer']`)
	assert.Equal(t, Reference{Kind: XPath, Value: `//input[@ng-model='searchCustomer']`}, got)

	got = Parse(`css=input[name="q"]`)
	assert.Equal(t, Reference{Kind: CSSSelector, Value: `input[name="q"]`}, got)
}

func TestParse_ValueQuotesStrippedIndependently(t *testing.T) {
	assert.Equal(t, Reference{Kind: LinkText, Value: "Post Code"}, Parse(`'link="Post Code"'`))
	assert.Equal(t, Reference{Kind: LinkText, Value: "Post Code"}, Parse(`link = 'Post Code'`))
	// Mismatched quotes are kept.
	assert.Equal(t, Reference{Kind: ID, Value: `"foo'`}, Parse(`id="foo'`))
}

func TestParse_Idempotent(t *testing.T) {
	for _, raw := range []string{`id=foo`, `'link=First Name'`, `xpath=//a[@x='1']`, `css=.row`} {
		first := Parse(raw)
		again := Parse(first.Value)
		assert.Equal(t, first.Value, again.Value, raw)
	}
}

func TestParse_EmptyAndQuoteOnly(t *testing.T) {
	assert.Equal(t, Reference{Kind: XPath, Value: ""}, Parse(""))
	assert.Equal(t, Reference{Kind: XPath, Value: ""}, Parse(`""`))
	assert.Equal(t, Reference{Kind: XPath, Value: `"`}, Parse(`"`))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "xpath", XPath.String())
	assert.Equal(t, "link text", LinkText.String())
	assert.Equal(t, "css selector", CSSSelector.String())
	assert.Equal(t, "id=foo", Reference{ID, "foo"}.String())
}
