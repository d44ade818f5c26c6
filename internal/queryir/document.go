package queryir

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a Node, used by filter files and
// scenario fixtures. Exactly one of Literal, Field, Unary, Binary or
// Method is set per document:
//
//	binary: and
//	left:
//	  binary: eq
//	  left: {field: Type}
//	  right: {literal: "'A'"}
//	right:
//	  method: contains
//	  args: [{field: Description}, {literal: "'steel'"}]
//
// JSON documents decode through the same path.
type Document struct {
	Literal *string   `yaml:"literal,omitempty" json:"literal,omitempty"`
	Field   string    `yaml:"field,omitempty" json:"field,omitempty"`
	Unary   UnaryOp   `yaml:"unary,omitempty" json:"unary,omitempty"`
	Operand *Document `yaml:"operand,omitempty" json:"operand,omitempty"`

	Binary BinaryOp   `yaml:"binary,omitempty" json:"binary,omitempty"`
	Left   *Document  `yaml:"left,omitempty" json:"left,omitempty"`
	Right  *Document  `yaml:"right,omitempty" json:"right,omitempty"`
	Values []Document `yaml:"values,omitempty" json:"values,omitempty"`

	Method Method     `yaml:"method,omitempty" json:"method,omitempty"`
	Args   []Document `yaml:"args,omitempty" json:"args,omitempty"`
}

// DocumentError reports a malformed filter document.
type DocumentError struct {
	Path    string
	Message string
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("filter document %s: %s", e.Path, e.Message)
}

// ParseDocument decodes a YAML or JSON filter document into a Node.
func ParseDocument(data []byte) (Node, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode filter document: %w", err)
	}
	return doc.Node()
}

// Node converts the document into an expression tree. Only the
// document's structure is checked here; operand kinds are checked by
// Validate and the compiler.
func (d Document) Node() (Node, error) {
	return d.toNode("$")
}

func (d Document) toNode(path string) (Node, error) {
	set := 0
	for _, present := range []bool{d.Literal != nil, d.Field != "", d.Unary != "", d.Binary != "", d.Method != ""} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, &DocumentError{Path: path, Message: fmt.Sprintf("expected exactly one of literal, field, unary, binary, method; found %d", set)}
	}

	switch {
	case d.Literal != nil:
		return Literal{Text: *d.Literal}, nil

	case d.Field != "":
		return FieldRef{Path: d.Field}, nil

	case d.Unary != "":
		if d.Operand == nil {
			return nil, &DocumentError{Path: path, Message: "unary without operand"}
		}
		operand, err := d.Operand.toNode(path + ".operand")
		if err != nil {
			return nil, err
		}
		return Unary{Op: d.Unary, Operand: operand}, nil

	case d.Binary != "":
		return d.binaryNode(path)

	default:
		args, err := documentList(path+".args", d.Args)
		if err != nil {
			return nil, err
		}
		return MethodCall{Name: d.Method, Args: args}, nil
	}
}

func (d Document) binaryNode(path string) (Node, error) {
	if d.Left == nil {
		return nil, &DocumentError{Path: path, Message: fmt.Sprintf("%s without left operand", d.Binary)}
	}
	left, err := d.Left.toNode(path + ".left")
	if err != nil {
		return nil, err
	}

	if d.Binary == OpIn {
		values, err := documentList(path+".values", d.Values)
		if err != nil {
			return nil, err
		}
		return Binary{Op: OpIn, Left: left, Values: values}, nil
	}

	if d.Right == nil {
		return nil, &DocumentError{Path: path, Message: fmt.Sprintf("%s without right operand", d.Binary)}
	}
	right, err := d.Right.toNode(path + ".right")
	if err != nil {
		return nil, err
	}
	return Binary{Op: d.Binary, Left: left, Right: right}, nil
}

func documentList(path string, docs []Document) ([]Node, error) {
	nodes := make([]Node, 0, len(docs))
	for i, doc := range docs {
		n, err := doc.toNode(fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// NewDocument converts a tree back into its document form. Nil nodes
// become empty documents.
func NewDocument(n Node) Document {
	switch v := n.(type) {
	case Literal:
		text := v.Text
		return Document{Literal: &text}
	case FieldRef:
		return Document{Field: v.Path}
	case Unary:
		operand := NewDocument(v.Operand)
		return Document{Unary: v.Op, Operand: &operand}
	case Binary:
		left := NewDocument(v.Left)
		doc := Document{Binary: v.Op, Left: &left}
		if v.Op == OpIn {
			doc.Values = newDocuments(v.Values)
			return doc
		}
		right := NewDocument(v.Right)
		doc.Right = &right
		return doc
	case MethodCall:
		return Document{Method: v.Name, Args: newDocuments(v.Args)}
	}
	return Document{}
}

func newDocuments(nodes []Node) []Document {
	docs := make([]Document, len(nodes))
	for i, n := range nodes {
		docs[i] = NewDocument(n)
	}
	return docs
}
