package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gbili/di-why/framework/container"
	"github.com/gbili/di-why/framework/manifest"
)

// builtinCatalog holds the strategies a manifest can use from the command line.
//
//	env     positional names → map of their environment values
//	join    positional values → their concatenation
//	bag     named deps → the bag itself
func builtinCatalog() *manifest.Catalog {
	return manifest.NewCatalog().
		Strategy("env", container.Factory(envValues)).
		Strategy("join", container.Factory(join)).
		Strategy("bag", container.Factory(func(deps container.Named) container.Named { return deps }))
}

func envValues(keys ...any) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		key := fmt.Sprint(k)
		out[key] = os.Getenv(key)
	}
	return out
}

func join(parts ...any) string {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprint(&b, p)
	}
	return b.String()
}
