package preset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// decode parses JSON or YAML depending on the file extension. Anything that
// is not .yaml/.yml is read as JSON.
func decode(name string, b []byte, v interface{}) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, v); err != nil {
			return &ValidationError{File: name, Field: "<yaml>", Err: err}
		}
	default:
		if err := json.Unmarshal(b, v); err != nil {
			return &ValidationError{File: name, Field: "<json>", Err: err}
		}
	}
	return nil
}

func readAndDecode(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	return decode(path, b, v)
}

// Number accepts either a scalar or a list of numbers.
type Number struct {
	Scalar *float64
	List   []float64
}

func (n *Number) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		n.Scalar = &f
		return nil
	}
	var l []float64
	if err := json.Unmarshal(b, &l); err != nil {
		return errors.Errorf("expected number or list of numbers, got %s", string(b))
	}
	n.List = l
	return nil
}

func (n *Number) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var f float64
	if err := unmarshal(&f); err == nil {
		n.Scalar = &f
		return nil
	}
	var l []float64
	if err := unmarshal(&l); err != nil {
		return errors.New("expected number or list of numbers")
	}
	n.List = l
	return nil
}
