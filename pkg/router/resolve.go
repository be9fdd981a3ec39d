package router

import (
	"strings"

	"lambo/pkg/lambda"
)

// Resolve walks the tree and returns the handlers matching path and method,
// in the order they are found. An empty result means no route matched.
func (r *Router) Resolve(path string, method lambda.Method) []Handler {
	return resolve(r, path, method, nil)
}

// resolve collects into acc. path is the part of the request path not yet
// consumed by ancestors.
func resolve(node *Router, path string, method lambda.Method, acc []Handler) []Handler {
	if !strings.HasPrefix(path, node.path) {
		return acc
	}

	// A terminal match never descends into its own children
	if node.handler != nil && path == node.path && node.method == method {
		return append(acc, node.handler)
	}

	if len(node.routes) == 0 {
		return acc
	}

	rest := path[len(node.path):]
	for _, child := range node.routes {
		acc = resolve(child, rest, method, acc)
	}
	return acc
}
