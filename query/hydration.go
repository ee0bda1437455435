package query

import (
	"net/http"
	"strings"
)

// HydrationHeader carries the comma-separated relations a caller wants
// embedded in the response.
const HydrationHeader = "Samson-Hydration"

// RequestOperators are per-call options derived from transport headers.
type RequestOperators struct {
	// Hydration lists relation names to embed. Dotted paths such as
	// "product.vendor" expand nested relations.
	Hydration []string
	// SkipPaging returns every matching record in one page.
	SkipPaging bool
}

// ParseHydration reads the hydration header. Names are trimmed, empty
// entries and repeats are dropped, and first-seen order is kept. A missing
// or empty header yields an empty, non-nil slice.
func ParseHydration(h http.Header) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, value := range h.Values(HydrationHeader) {
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// OperatorsFromHeaders builds the request operators of an inbound call.
func OperatorsFromHeaders(h http.Header) RequestOperators {
	return RequestOperators{Hydration: ParseHydration(h)}
}

// SetHydrationHeader writes hydration to h. An empty list removes the header.
func SetHydrationHeader(h http.Header, hydration []string) {
	if len(hydration) == 0 {
		h.Del(HydrationHeader)
		return
	}
	h.Set(HydrationHeader, strings.Join(hydration, ","))
}

// HydrationRoots returns the first path segment of every entry, deduplicated
// in order.
func HydrationRoots(hydration []string) []string {
	var roots []string
	seen := map[string]bool{}
	for _, h := range hydration {
		root, _, _ := strings.Cut(h, ".")
		if root == "" || seen[root] {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	return roots
}

// SubHydration returns the nested paths below target with the target
// segment removed: for target "product", "product.vendor" becomes "vendor"
// and "product" itself contributes nothing.
func SubHydration(target string, hydration []string) []string {
	var out []string
	prefix := target + "."
	for _, h := range hydration {
		rest, ok := strings.CutPrefix(h, prefix)
		if !ok || rest == "" {
			continue
		}
		out = append(out, rest)
	}
	return out
}
