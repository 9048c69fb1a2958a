package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// HostList is an ordered list of target hostnames. It decodes from a JSON
// array or any YAML sequence.
type HostList []string

// Decode parses value as a JSON or YAML list of hostnames. Valid JSON is
// always read as JSON; YAML is the fallback.
func (h *HostList) Decode(value string) error {
	if strings.TrimSpace(value) == "" {
		*h = nil
		return nil
	}
	var hosts []string
	if json.Valid([]byte(value)) {
		if err := json.Unmarshal([]byte(value), &hosts); err != nil {
			return fmt.Errorf("parsing host list: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(value), &hosts); err != nil {
		return fmt.Errorf("parsing host list: %w", err)
	}
	*h = hosts
	return nil
}

// ExtraVars is a free-form mapping passed to a job launch unchanged.
// Keys keep the order of the source document when encoded to JSON. A key
// repeated in the source keeps its first position and its last value.
type ExtraVars struct {
	root *object
}

// Decode parses value as a JSON object or YAML mapping. Valid JSON is
// always read as JSON so every JSON escape is honored; YAML is the fallback.
func (v *ExtraVars) Decode(value string) error {
	if strings.TrimSpace(value) == "" {
		v.root = nil
		return nil
	}

	var (
		root node
		err  error
	)
	if json.Valid([]byte(value)) {
		root, err = readJSON(value)
	} else {
		root, err = readYAML(value)
	}
	if err != nil {
		return fmt.Errorf("parsing extra vars: %w", err)
	}
	if root.obj == nil {
		return fmt.Errorf("parsing extra vars: expected a mapping, got %s", root.kind())
	}
	v.root = root.obj
	return nil
}

// MarshalJSON encodes the variables as a JSON object in document order.
func (v ExtraVars) MarshalJSON() ([]byte, error) {
	if v.root == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	if err := (node{obj: v.root}).encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// node is one JSON value: an object, an array, or an encoded scalar.
type node struct {
	obj    *object
	arr    []node
	isArr  bool
	scalar json.RawMessage
}

type object struct {
	keys   []string
	values map[string]node
}

func newObject() *object {
	return &object{values: make(map[string]node)}
}

func (o *object) set(key string, n node) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = n
}

func (n node) kind() string {
	switch {
	case n.obj != nil:
		return "mapping"
	case n.isArr:
		return "sequence"
	case string(n.scalar) == "null":
		return "null"
	}
	return "scalar"
}

func (n node) encode(buf *bytes.Buffer) error {
	switch {
	case n.obj != nil:
		buf.WriteByte('{')
		for i, k := range n.obj.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := marshalString(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := n.obj.values[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case n.isArr:
		buf.WriteByte('[')
		for i, item := range n.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		buf.Write(n.scalar)
	}
	return nil
}

// marshalString encodes s without HTML escaping so values reach the
// controller as written.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func readJSON(value string) (node, error) {
	dec := json.NewDecoder(strings.NewReader(value))
	dec.UseNumber()
	n, err := readJSONValue(dec)
	if err != nil {
		return node{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return node{}, fmt.Errorf("unexpected data after top-level value")
	}
	return n, nil
}

func readJSONValue(dec *json.Decoder) (node, error) {
	tok, err := dec.Token()
	if err != nil {
		return node{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := newObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return node{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return node{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := readJSONValue(dec)
				if err != nil {
					return node{}, err
				}
				obj.set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return node{}, err
			}
			return node{obj: obj}, nil
		case '[':
			arr := node{isArr: true, arr: []node{}}
			for dec.More() {
				item, err := readJSONValue(dec)
				if err != nil {
					return node{}, err
				}
				arr.arr = append(arr.arr, item)
			}
			if _, err := dec.Token(); err != nil {
				return node{}, err
			}
			return arr, nil
		}
		return node{}, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		return node{scalar: json.RawMessage(t)}, nil
	case string:
		data, err := marshalString(t)
		if err != nil {
			return node{}, err
		}
		return node{scalar: data}, nil
	default:
		// bool or nil
		data, err := json.Marshal(t)
		if err != nil {
			return node{}, err
		}
		return node{scalar: data}, nil
	}
}

func readYAML(value string) (node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(value), &doc); err != nil {
		return node{}, err
	}
	if len(doc.Content) == 0 {
		return node{obj: newObject()}, nil
	}
	return fromYAML(doc.Content[0])
}

func fromYAML(y *yaml.Node) (node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return node{scalar: json.RawMessage("null")}, nil
		}
		return fromYAML(y.Content[0])
	case yaml.AliasNode:
		return fromYAML(y.Alias)
	case yaml.MappingNode:
		obj := newObject()
		for i := 0; i+1 < len(y.Content); i += 2 {
			val, err := fromYAML(y.Content[i+1])
			if err != nil {
				return node{}, err
			}
			obj.set(y.Content[i].Value, val)
		}
		return node{obj: obj}, nil
	case yaml.SequenceNode:
		arr := node{isArr: true, arr: make([]node, 0, len(y.Content))}
		for _, item := range y.Content {
			n, err := fromYAML(item)
			if err != nil {
				return node{}, err
			}
			arr.arr = append(arr.arr, n)
		}
		return arr, nil
	case yaml.ScalarNode:
		var scalar interface{}
		if err := y.Decode(&scalar); err != nil {
			return node{}, fmt.Errorf("decoding %q: %w", y.Value, err)
		}
		var (
			data []byte
			err  error
		)
		if s, ok := scalar.(string); ok {
			data, err = marshalString(s)
		} else {
			data, err = json.Marshal(scalar)
		}
		if err != nil {
			return node{}, fmt.Errorf("encoding %q: %w", y.Value, err)
		}
		return node{scalar: data}, nil
	}
	return node{}, fmt.Errorf("unsupported yaml node kind %d", y.Kind)
}
