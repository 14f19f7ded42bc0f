// Package names produces throwaway display names for participants who join
// without one. The names are decorative and never used for identity.
package names

import "math/rand/v2"

var adjectives = []string{
	"Swift", "Brave", "Clever", "Eager", "Fierce", "Gentle", "Happy", "Jolly",
	"Kind", "Lively", "Mighty", "Noble", "Quick", "Silent", "Wise",
}

var animals = []string{
	"Panda", "Tiger", "Eagle", "Dolphin", "Fox", "Wolf", "Bear", "Lion",
	"Hawk", "Owl", "Shark", "Dragon",
}

// Source picks an index in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Generator builds "Adjective Animal" names.
type Generator struct {
	src Source
}

// NewGenerator returns a Generator drawing from src, or from the global
// random source when src is nil.
func NewGenerator(src Source) *Generator {
	if src == nil {
		src = globalSource{}
	}
	return &Generator{src: src}
}

// Generate returns a new name. It is never empty.
func (g *Generator) Generate() string {
	return adjectives[g.src.IntN(len(adjectives))] + " " + animals[g.src.IntN(len(animals))]
}

var defaultGenerator = NewGenerator(nil)

// Generate returns a name from the default generator.
func Generate() string {
	return defaultGenerator.Generate()
}
