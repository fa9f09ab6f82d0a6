// Package locator parses compact, type-prefixed element references.
//
// Locator strings use the Selenium IDE / Katalon convention:
//
//	[prefix=]value
//
// where prefix is one of id, name, xpath, link, linktext, partiallinktext,
// css, cssselector, classname or tagname (case-insensitive). A string
// without a prefix is an XPath expression. An unrecognized prefix also
// yields an XPath reference; Resolve reports that case as DefaultedToXPath
// so callers can surface it instead of failing.
//
// One layer of matching quotes is stripped from the whole string and,
// independently, from the value, so CSV-quoted cells parse the same as
// bare ones:
//
//	id=foo, "ID = foo", 'id=foo'  ->  {ID, "foo"}
//	bogus=x                       ->  {XPath, "x"} (DefaultedToXPath)
//	//div[@id='x']                ->  {XPath, "//div[@id='x']"}
package locator
