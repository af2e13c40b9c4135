// Package manifest reads container definitions from YAML.
//
//	services:
//	  config:
//	    value: {host: localhost, port: 5432}
//	  db:
//	    use: postgres
//	    locate: config
//	  repo:
//	    use: repo
//	    locate: {db: db, caches: [l1, l2]}
//	    deps: {table: users}
//	    subscribe: [shutdown]
//
// Services keep their document order.
package manifest

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gbili/di-why/framework/container"
)

type service struct {
	Use         string    `yaml:"use"`
	Value       yaml.Node `yaml:"value"`
	Deps        yaml.Node `yaml:"deps"`
	Locate      yaml.Node `yaml:"locate"`
	Destructure bool      `yaml:"destructure"`
	Before      string    `yaml:"before"`
	After       string    `yaml:"after"`
	Subscribe   []string  `yaml:"subscribe"`
}

// Load reads the manifest at path.
func Load(path string, catalog *Catalog) (*container.LoadDict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "manifest: read")
	}
	dict, err := Parse(data, catalog)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest: %s", path)
	}
	return dict, nil
}

// Parse builds a LoadDict from a manifest document.
func Parse(data []byte, catalog *Catalog) (*container.LoadDict, error) {
	if catalog == nil {
		catalog = NewCatalog()
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	dict := container.NewLoadDict()
	if doc.Kind == 0 {
		return dict, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Wrapf(ErrMalformed, "line %d: top level must be a mapping", root.Line)
	}
	services := lookup(root, "services")
	if services == nil || services.Tag == "!!null" {
		return dict, nil
	}
	if services.Kind != yaml.MappingNode {
		return nil, errors.Wrapf(ErrMalformed, "line %d: services must be a mapping", services.Line)
	}

	for i := 0; i+1 < len(services.Content); i += 2 {
		key, body := services.Content[i], services.Content[i+1]
		name := key.Value

		var svc service
		if err := body.Decode(&svc); err != nil {
			return nil, errors.Wrapf(ErrMalformed, "service %q (line %d): %v", name, key.Line, err)
		}
		def, err := svc.definition(name, catalog)
		if err != nil {
			return nil, errors.Wrapf(err, "service %q (line %d)", name, key.Line)
		}
		dict.Add(name, def)
	}

	if err := dict.Validate(); err != nil {
		return nil, err
	}
	return dict, nil
}

func (s service) definition(name string, catalog *Catalog) (container.Definition, error) {
	def := container.Definition{Destructure: s.Destructure}

	hasValue := s.Value.Kind != 0
	switch {
	case s.Use != "" && hasValue:
		return def, errors.Wrap(container.ErrNoStrategy, "use and value are exclusive")
	case s.Use != "":
		strategy, ok := catalog.strategies[s.Use]
		if !ok {
			return def, errors.Wrapf(ErrUnknownStrategy, "%q", s.Use)
		}
		def.Strategy = strategy
	case hasValue:
		var v any
		if err := s.Value.Decode(&v); err != nil {
			return def, errors.Wrap(ErrMalformed, err.Error())
		}
		def.Strategy = container.Instance(v)
	default:
		return def, errors.Wrap(container.ErrNoStrategy, "one of use or value is required")
	}

	var err error
	if def.Deps, err = bag(&s.Deps); err != nil {
		return def, err
	}
	if def.Locate, err = tree(&s.Locate); err != nil {
		return def, err
	}

	if s.Before != "" {
		fn, ok := catalog.before[s.Before]
		if !ok {
			return def, errors.Wrapf(ErrUnknownHook, "before %q", s.Before)
		}
		def.Before = fn
	}
	if s.After != "" {
		fn, ok := catalog.after[s.After]
		if !ok {
			return def, errors.Wrapf(ErrUnknownHook, "after %q", s.After)
		}
		def.After = fn
	}

	if len(s.Subscribe) > 0 {
		def.Subscriptions = make(map[string]container.Subscriber, len(s.Subscribe))
		for _, event := range s.Subscribe {
			key := name + "." + event
			fn, ok := catalog.subscribers[key]
			if !ok {
				return def, errors.Wrapf(ErrUnknownHook, "subscriber %q", key)
			}
			def.Subscriptions[event] = fn
		}
	}
	return def, nil
}

// ── Node conversion ───────────────────────────────────────────────────────────

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func bag(n *yaml.Node) (container.Bag, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.SequenceNode:
		var args []any
		if err := n.Decode(&args); err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
		return container.Args(args), nil
	case yaml.MappingNode:
		var named map[string]any
		if err := n.Decode(&named); err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
		return container.Named(named), nil
	}
	return nil, errors.Wrapf(ErrMalformed, "line %d: deps must be a sequence or a mapping", n.Line)
}

// tree turns a locate node into a locate tree. A single name is shorthand
// for a one-element list.
func tree(n *yaml.Node) (container.Tree, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode {
		return container.Refs(n.Value), nil
	}
	node, err := locateNode(n)
	if err != nil {
		return nil, err
	}
	return node.(container.Tree), nil
}

func locateNode(n *yaml.Node) (container.Node, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "" {
			return nil, errors.Wrapf(ErrMalformed, "line %d: empty locate name", n.Line)
		}
		return container.Ref(n.Value), nil
	case yaml.SequenceNode:
		list := make(container.RefList, 0, len(n.Content))
		for _, child := range n.Content {
			node, err := locateNode(child)
			if err != nil {
				return nil, err
			}
			list = append(list, node)
		}
		return list, nil
	case yaml.MappingNode:
		refs := make(container.RefMap, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			node, err := locateNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			refs[n.Content[i].Value] = node
		}
		return refs, nil
	}
	return nil, errors.Wrapf(ErrMalformed, "line %d: locate must be a name, a sequence or a mapping", n.Line)
}
