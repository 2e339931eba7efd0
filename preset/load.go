package preset

import (
	"embed"
	"os"
	"path"
	"path/filepath"

	"github.com/janoschsimon/Digital-Director/articulation"
	"github.com/pkg/errors"
)

//go:embed defaults/*.json
var defaultsFS embed.FS

// Bundle is the complete, validated engine configuration.
type Bundle struct {
	Rules    *RuleSet
	Dynamics *Dynamics
	Catalog  *articulation.Catalog
}

// configExts lists the accepted extensions in lookup order.
var configExts = []string{".json", ".yaml", ".yml"}

// LoadDir loads rules, dynamics and articulations from dir. Each file may be
// JSON or YAML; the first existing extension in configExts wins.
func LoadDir(dir string) (*Bundle, error) {
	find := func(base string) (string, error) {
		for _, ext := range configExts {
			p := filepath.Join(dir, base+ext)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
		return "", &ValidationError{File: filepath.Join(dir, base+".json"), Field: "<file>", Err: os.ErrNotExist}
	}

	var b Bundle
	p, err := find("rules")
	if err != nil {
		return nil, err
	}
	if b.Rules, err = LoadRules(p); err != nil {
		return nil, err
	}
	if p, err = find("dynamics"); err != nil {
		return nil, err
	}
	if b.Dynamics, err = LoadDynamics(p); err != nil {
		return nil, err
	}
	if p, err = find("articulations"); err != nil {
		return nil, err
	}
	if b.Catalog, err = LoadArticulations(p); err != nil {
		return nil, err
	}
	return &b, nil
}

// Parse builds a bundle from in-memory documents. The names select the
// decoder by extension and appear in errors.
func Parse(rulesName string, rulesDoc []byte, dynName string, dynDoc []byte, artName string, artDoc []byte) (*Bundle, error) {
	var rf RulesFile
	if err := decode(rulesName, rulesDoc, &rf); err != nil {
		return nil, err
	}
	var df DynamicsFile
	if err := decode(dynName, dynDoc, &df); err != nil {
		return nil, err
	}
	var af ArticulationsFile
	if err := decode(artName, artDoc, &af); err != nil {
		return nil, err
	}

	var (
		b   Bundle
		err error
	)
	if b.Rules, err = ApplyRules(rulesName, &rf); err != nil {
		return nil, err
	}
	if b.Dynamics, err = ApplyDynamics(dynName, &df); err != nil {
		return nil, err
	}
	if b.Catalog, err = ApplyArticulations(artName, &af); err != nil {
		return nil, err
	}
	return &b, nil
}

// DefaultDocument returns one of the embedded default documents:
// "rules", "dynamics" or "articulations".
func DefaultDocument(name string) ([]byte, error) {
	b, err := defaultsFS.ReadFile(path.Join("defaults", name+".json"))
	if err != nil {
		return nil, errors.Wrapf(err, "embedded preset %s", name)
	}
	return b, nil
}

// Default returns the bundle built from the embedded default configs.
func Default() (*Bundle, error) {
	docs := make(map[string][]byte, 3)
	for _, name := range []string{"rules", "dynamics", "articulations"} {
		b, err := DefaultDocument(name)
		if err != nil {
			return nil, err
		}
		docs[name] = b
	}
	return Parse("rules.json", docs["rules"], "dynamics.json", docs["dynamics"], "articulations.json", docs["articulations"])
}
