package notice

import (
	"strconv"
	"strings"
)

// Path is a sequence of field names. A numeric step selects a list index;
// applied to a single (non-list) node, index 0 selects the node itself.
type Path []string

// P splits a slash-separated path ("ProcurementProject/Name")
func P(s string) Path { return strings.Split(strings.Trim(s, "/"), "/") }

// Dig walks p from n. Before descending by name, a list is replaced by its
// first element, so a repeated container is read through its first occurrence.
func Dig(n *Node, p Path) *Node {
	cur := n
	for _, step := range p {
		if cur == nil || cur.Kind == KindNull {
			return nil
		}
		if i, err := strconv.Atoi(step); err == nil {
			items := cur.List()
			if i < 0 || i >= len(items) {
				return nil
			}
			cur = items[i]
			continue
		}
		if cur.Kind == KindList {
			if len(cur.Items) == 0 {
				return nil
			}
			cur = cur.Items[0]
		}
		cur = cur.Field(step)
	}
	return cur
}

// Text normalizes a node to a non-empty trimmed string.
//
//	text    trimmed, empty is absent
//	list    first member that normalizes
//	object  "#text", then "content", then "_"; otherwise a lone text member
func Text(n *Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case KindText:
		s := strings.TrimSpace(n.Text)
		return s, s != ""
	case KindList:
		for _, it := range n.Items {
			if s, ok := Text(it); ok {
				return s, true
			}
		}
	case KindObject:
		for _, k := range []string{TextKey, "content", "_"} {
			if v, ok := n.Fields[k]; ok {
				return Text(v)
			}
		}
		if len(n.Keys) == 1 {
			if v := n.Fields[n.Keys[0]]; v != nil && v.Kind == KindText {
				return Text(v)
			}
		}
	}
	return "", false
}

// First returns the first path under n whose value normalizes to a
// non-empty string
func First(n *Node, paths ...Path) (string, bool) {
	for _, p := range paths {
		if s, ok := Text(Dig(n, p)); ok {
			return s, true
		}
	}
	return "", false
}
