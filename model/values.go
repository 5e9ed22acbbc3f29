package model

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

type Value struct {
	Label string
	Value any
}

// Values maps question labels to answers, keeping the order in which labels
// were first set. It encodes as a JSON object.
type Values []Value

// Set stores v under label. An existing label keeps its position and gets
// the new value.
func (vs *Values) Set(label string, v any) {
	for i := range *vs {
		if (*vs)[i].Label == label {
			(*vs)[i].Value = v
			return
		}
	}
	*vs = append(*vs, Value{label, v})
}

func (vs Values) Get(label string) (any, bool) {
	for _, v := range vs {
		if v.Label == label {
			return v.Value, true
		}
	}
	return nil, false
}

func (vs Values) Labels() []string {
	labels := make([]string, len(vs))
	for i, v := range vs {
		labels[i] = v.Label
	}
	return labels
}

func (vs Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range vs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(v.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.Value)
		if err != nil {
			return nil, fmt.Errorf("data value %q: %w", v.Label, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (vs *Values) UnmarshalJSON(b []byte) error {
	if !gjson.ValidBytes(b) {
		return errors.New("data_values: invalid JSON")
	}
	res := gjson.ParseBytes(b)
	if res.Type == gjson.Null {
		*vs = nil
		return nil
	}
	if !res.IsObject() {
		return errors.New("data_values: expected an object")
	}

	out := Values{}
	res.ForEach(func(key, value gjson.Result) bool {
		out.Set(key.String(), value.Value())
		return true
	})
	*vs = out
	return nil
}

func (vs Values) Value() (driver.Value, error) {
	b, err := vs.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (vs *Values) Scan(src any) error {
	switch src := src.(type) {
	case nil:
		*vs = nil
		return nil
	case string:
		return vs.UnmarshalJSON([]byte(src))
	case []byte:
		return vs.UnmarshalJSON(src)
	}
	return fmt.Errorf("data_values: cannot scan %T", src)
}
