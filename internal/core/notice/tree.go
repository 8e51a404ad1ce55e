package notice

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	perr "tedingest/internal/platform/errors"

	"golang.org/x/text/encoding/htmlindex"
)

// TextKey is the field under which an element's character data is kept
// when the element also has attributes or children
const TextKey = "#text"

// Kind is the shape of a Node
type Kind uint8

const (
	// KindNull is an absent value
	KindNull Kind = iota
	// KindText is character data (possibly empty)
	KindText
	// KindList holds repeated sibling elements of the same name
	KindList
	// KindObject holds attributes and child elements by local name
	KindObject
)

// Node is one value in a parsed document. The zero value and nil are both null.
type Node struct {
	Kind   Kind
	Text   string
	Items  []*Node
	Fields map[string]*Node
	Keys   []string // field insertion order
}

// Field returns the child with the given name or nil
func (n *Node) Field(name string) *Node {
	if n == nil || n.Kind != KindObject {
		return nil
	}
	return n.Fields[name]
}

// List returns the node as a sequence: items for a list, itself for any
// other non-null node, nil for null
func (n *Node) List() []*Node {
	switch {
	case n == nil || n.Kind == KindNull:
		return nil
	case n.Kind == KindList:
		return n.Items
	default:
		return []*Node{n}
	}
}

// TextNode returns a text node
func TextNode(s string) *Node { return &Node{Kind: KindText, Text: s} }

// ListNode returns a list node
func ListNode(items ...*Node) *Node { return &Node{Kind: KindList, Items: items} }

// set stores v under k; a second value under the same key turns the field into a list
func (n *Node) set(k string, v *Node) {
	cur, ok := n.Fields[k]
	if !ok {
		n.Fields[k] = v
		n.Keys = append(n.Keys, k)
		return
	}
	if cur.Kind == KindList {
		cur.Items = append(cur.Items, v)
		return
	}
	n.Fields[k] = ListNode(cur, v)
}

// Parse decodes raw XML into a tree rooted at an object keyed by the
// document element's local name. Namespace prefixes are dropped from
// element and attribute names and xmlns declarations are discarded.
// Character data is trimmed; an element with only text becomes a text node,
// an empty element becomes "".
func Parse(raw []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charsetReader

	doc := &Node{Kind: KindObject, Fields: map[string]*Node{}}
	type frame struct {
		name string
		node *Node
		text strings.Builder
	}
	var stack []*frame
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeDecode, "notice: parse xml")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && sawRoot {
				return nil, perr.Decodef("notice: parse xml: multiple root elements")
			}
			sawRoot = true
			f := &frame{name: t.Name.Local, node: &Node{Kind: KindObject, Fields: map[string]*Node{}}}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				f.node.set(a.Name.Local, TextNode(strings.TrimSpace(a.Value)))
			}
			stack = append(stack, f)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			v := f.node
			text := strings.TrimSpace(f.text.String())
			switch {
			case len(v.Keys) == 0:
				v = TextNode(text)
			case text != "":
				v.set(TextKey, TextNode(text))
			}
			parent := doc
			if len(stack) > 0 {
				parent = stack[len(stack)-1].node
			}
			parent.set(f.name, v)
		}
	}
	if !sawRoot {
		return nil, perr.Decodef("notice: parse xml: no root element")
	}
	return doc, nil
}

func charsetReader(label string, in io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDecode, "notice: unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(in), nil
}
