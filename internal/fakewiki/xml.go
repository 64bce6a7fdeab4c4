package fakewiki

import (
	"encoding/xml"
	"net/http"
	"strings"
)

// Node is a response element under construction.
type Node struct {
	Name     string
	Attrs    [][2]string
	Children []*Node
	Text     string
}

// El creates an element with alternating attribute names and values.
func El(name string, attrs ...string) *Node {
	n := &Node{Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attrs = append(n.Attrs, [2]string{attrs[i], attrs[i+1]})
	}
	return n
}

// Set adds or replaces an attribute.
func (n *Node) Set(name, value string) *Node {
	for i := range n.Attrs {
		if n.Attrs[i][0] == name {
			n.Attrs[i][1] = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, [2]string{name, value})
	return n
}

// Add appends children.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// WithText sets the character data.
func (n *Node) WithText(text string) *Node {
	n.Text = text
	return n
}

// String renders the element as XML.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	sb.WriteByte('<')
	sb.WriteString(n.Name)
	for _, a := range n.Attrs {
		sb.WriteString(" " + a[0] + `="`)
		_ = xml.EscapeText(sb, []byte(a[1]))
		sb.WriteByte('"')
	}
	if n.Text == "" && len(n.Children) == 0 {
		sb.WriteString(" />")
		return
	}
	sb.WriteByte('>')
	_ = xml.EscapeText(sb, []byte(n.Text))
	for _, c := range n.Children {
		c.write(sb)
	}
	sb.WriteString("</" + n.Name + ">")
}

// WriteXML sends root as an XML document with status 200.
func WriteXML(w http.ResponseWriter, root *Node) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<?xml version="1.0"?>` + root.String()))
}

// WriteError sends an in-band API error.
func WriteError(w http.ResponseWriter, code, info string) {
	WriteXML(w, El("api").Add(El("error", "code", code, "info", info)))
}
