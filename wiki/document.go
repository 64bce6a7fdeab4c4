package wiki

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// Attr is a single XML attribute.
type Attr struct {
	Name  string
	Value string
}

// Element is a node of a parsed API response. Only element children are
// kept; character data directly inside the element is concatenated into Text.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []*Element
	Text     string
}

// Attr returns the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue returns the named attribute or "".
func (e *Element) AttrValue(name string) string {
	v, _ := e.Attr(name)
	return v
}

// HasAttr reports whether the attribute is present, whatever its value.
// MediaWiki marks booleans such as missing or redirect this way.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// Attributes returns all attributes as a map.
func (e *Element) Attributes() map[string]string {
	m := make(map[string]string)
	if e == nil {
		return m
	}
	for _, a := range e.Attrs {
		m[a.Name] = a.Value
	}
	return m
}

// Child returns the first direct child with the given name.
func (e *Element) Child(name string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all direct children with the given name.
func (e *Element) ChildrenNamed(name string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Path returns the first element matching a slash separated path of child
// names, e.g. "query/pages/page", searching all branches in document order.
func (e *Element) Path(path string) *Element {
	matches := e.PathAll(path)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// PathAll returns every element matching a slash separated path of child names.
func (e *Element) PathAll(path string) []*Element {
	if e == nil {
		return nil
	}
	current := []*Element{e}
	for _, step := range strings.Split(strings.Trim(path, "/"), "/") {
		if step == "" {
			continue
		}
		var next []*Element
		for _, el := range current {
			next = append(next, el.ChildrenNamed(step)...)
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// FindAll returns every descendant (not e itself) with the given name in
// document order.
func (e *Element) FindAll(name string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	var walk func(*Element)
	walk = func(el *Element) {
		for _, c := range el.Children {
			if c.Name == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(e)
	return out
}

// InnerText returns all character data in e and its descendants.
func (e *Element) InnerText() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*Element)
	walk = func(el *Element) {
		sb.WriteString(el.Text)
		for _, c := range el.Children {
			walk(c)
		}
	}
	walk(e)
	return sb.String()
}

// XML serializes e back to markup. Mixed content is written text first.
func (e *Element) XML() string {
	if e == nil {
		return ""
	}
	var buf bytes.Buffer
	e.writeTo(&buf)
	return buf.String()
}

func (e *Element) writeTo(buf *bytes.Buffer) {
	buf.WriteByte('<')
	buf.WriteString(e.Name)
	for _, a := range e.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		_ = xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	if e.Text == "" && len(e.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	_ = xml.EscapeText(buf, []byte(e.Text))
	for _, c := range e.Children {
		c.writeTo(buf)
	}
	buf.WriteString("</")
	buf.WriteString(e.Name)
	buf.WriteByte('>')
}

// ParseXML builds an element tree from an XML document.
func ParseXML(data []byte) (*Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	var (
		root  *Element
		stack []*Element
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: qualifiedName(t.Name)}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: qualifiedName(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("empty document")
	}
	return root, nil
}

// qualifiedName keeps the xml: prefix MediaWiki uses for xml:space and drops
// other namespaces, which the API does not use.
func qualifiedName(n xml.Name) string {
	if n.Space == "xml" || n.Space == "http://www.w3.org/XML/1998/namespace" {
		return "xml:" + n.Local
	}
	return n.Local
}

// parseResponse parses an API body and checks the root element.
func parseResponse(body []byte) (*Element, error) {
	root, err := ParseXML(body)
	if err != nil {
		return nil, &TransportError{Op: "parse", Body: string(body), Err: errors.New("response is not XML: " + err.Error())}
	}
	if root.Name != "api" && root.Name != "mediawiki" {
		return nil, &TransportError{Op: "parse", Body: string(body), Err: errors.New("unexpected root element " + root.Name)}
	}
	return root, nil
}

// Selector extracts a continuation value from a response.
type Selector interface {
	Select(doc *Element) (string, bool)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(doc *Element) (string, bool)

func (f SelectorFunc) Select(doc *Element) (string, bool) { return f(doc) }

// ContinueSelector picks the first attribute of query-continue/<list> whose
// name is one of Names.
type ContinueSelector struct {
	List  string
	Names []string
}

func (s ContinueSelector) Select(doc *Element) (string, bool) {
	for _, el := range doc.PathAll("query-continue/" + s.List) {
		for _, a := range el.Attrs {
			for _, n := range s.Names {
				if a.Name == n {
					return a.Value, true
				}
			}
		}
	}
	return "", false
}

// continueFor returns the selector used by list iteration: the first two
// characters of the continue parameter followed by "from" or "continue".
func continueFor(list, param string) ContinueSelector {
	prefix := param
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return ContinueSelector{List: list, Names: []string{prefix + "from", prefix + "continue"}}
}
