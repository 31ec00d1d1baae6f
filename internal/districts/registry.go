package districts

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// None is returned by Normalize when the input matches no district.
const None = ""

// Izberbash is the combined district that absorbs every Izberbash match.
const Izberbash = "Избербаш + Каякентский район"

// izberbashKeyword short-circuits the keyword scan, see Normalize.
const izberbashKeyword = "избербаш"

//go:embed districts.yaml
var registryYAML []byte

// Record describes one district open for registration.
type Record struct {
	Name       string   `yaml:"name"`
	Keywords   []string `yaml:"keywords"`
	Localities []string `yaml:"localities"`
}

type rule struct {
	keyword  string
	district string
}

// Registry is the immutable set of districts. It is safe for concurrent use.
type Registry struct {
	records    []Record
	byName     map[string]int
	rules      []rule
	localities map[string]map[string]struct{}
}

type registryFile struct {
	Districts []Record `yaml:"districts"`
}

// Default is the registry embedded in the binary.
var Default = mustParse(registryYAML)

func mustParse(data []byte) *Registry {
	r, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("districts: embedded registry: %v", err))
	}
	return r
}

// Parse builds a registry from a YAML document. Keywords and localities are
// folded the same way Normalize folds its input.
func Parse(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding registry: %w", err)
	}
	if len(f.Districts) == 0 {
		return nil, errors.New("registry has no districts")
	}

	r := &Registry{
		byName:     make(map[string]int, len(f.Districts)),
		localities: make(map[string]map[string]struct{}, len(f.Districts)),
	}
	for i, d := range f.Districts {
		if d.Name == "" {
			return nil, fmt.Errorf("district #%d has no name", i+1)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate district %q", d.Name)
		}
		if len(d.Keywords) == 0 {
			return nil, fmt.Errorf("district %q has no keywords", d.Name)
		}

		set := make(map[string]struct{}, len(d.Localities))
		for _, loc := range d.Localities {
			set[fold(loc)] = struct{}{}
		}
		for _, kw := range d.Keywords {
			k := fold(kw)
			if k == "" {
				return nil, fmt.Errorf("district %q has an empty keyword", d.Name)
			}
			r.rules = append(r.rules, rule{keyword: k, district: d.Name})
		}

		r.byName[d.Name] = len(r.records)
		r.localities[d.Name] = set
		r.records = append(r.records, d)
	}
	if _, ok := r.byName[Izberbash]; !ok {
		return nil, fmt.Errorf("registry must contain %q", Izberbash)
	}
	return r, nil
}

// Names returns canonical district names in registry order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.records))
	for i, d := range r.records {
		out[i] = d.Name
	}
	return out
}

// Lookup returns the record for a canonical name.
func (r *Registry) Lookup(name string) (Record, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Record{}, false
	}
	return r.records[i], true
}

// Contains reports whether name is a canonical district name.
func (r *Registry) Contains(name string) bool {
	_, ok := r.byName[name]
	return ok
}
