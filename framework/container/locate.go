package container

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
)

// ── Locate trees ──────────────────────────────────────────────────────────────

// Node is one element of a locate tree: a Ref leaf, a RefList or a RefMap.
type Node interface {
	node()
}

// Tree is the root of a locate tree. Only sequences and mappings can be roots.
type Tree interface {
	Node
	tree()
}

// Ref names a definition to resolve from the same container.
type Ref string

// RefList locates into Args, element by element.
type RefList []Node

// RefMap locates into Named, key by key.
type RefMap map[string]Node

func (Ref) node()     {}
func (RefList) node() {}
func (RefMap) node()  {}
func (RefList) tree() {}
func (RefMap) tree()  {}

// Refs is shorthand for a flat RefList of names.
//
//	Definition{Factory(NewService), Locate: container.Refs("db", "cache")}
func Refs(names ...string) RefList {
	out := make(RefList, len(names))
	for i, name := range names {
		out[i] = Ref(name)
	}
	return out
}

// RefNames returns every leaf name of n in traversal order.
func RefNames(n Node) []string {
	var names []string
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case Ref:
			names = append(names, string(n))
		case RefList:
			for _, child := range n {
				walk(child)
			}
		case RefMap:
			for _, k := range sortedKeys(n) {
				walk(n[k])
			}
		}
	}
	walk(n)
	return names
}

// ── Locator ───────────────────────────────────────────────────────────────────

// Locate resolves every Ref of t through Get and returns a bag of the same
// shape: a RefList becomes Args, a RefMap becomes Named.
//
// Siblings are resolved one after the other, mapping keys in sorted order.
// The first failing leaf aborts the walk with a *LocateError.
func (c *Container) Locate(ctx context.Context, t Tree) (Bag, error) {
	c.logger.Debug("container: locate begin", "tree", t)
	located, err := c.locate(ctx, t, "")
	if err != nil {
		return nil, err
	}
	c.logger.Debug("container: locate end", "deps", located)
	return located.(Bag), nil
}

func (c *Container) locate(ctx context.Context, n Node, path string) (any, error) {
	switch n := n.(type) {
	case Ref:
		dep, err := c.Get(ctx, string(n))
		if err != nil {
			c.logger.Debug("container: locate failed", "name", string(n), "path", path, "error", err)
			return nil, &LocateError{Path: path, Name: string(n), Err: err}
		}
		return dep, nil

	case RefList:
		out := make(Args, len(n))
		for i, child := range n {
			dep, err := c.locate(ctx, child, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			out[i] = dep
		}
		return out, nil

	case RefMap:
		out := make(Named, len(n))
		for _, key := range sortedKeys(n) {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			dep, err := c.locate(ctx, n[key], childPath)
			if err != nil {
				return nil, err
			}
			out[key] = dep
		}
		return out, nil
	}
	return nil, errors.Errorf("container: unsupported locate node %T at %q", n, path)
}
