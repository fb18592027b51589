package uuid

import gonanoid "github.com/matoous/go-nanoid"

// Generator ID generator interface
type Generator interface {
	Generate() (string, error)
}

// DefaultAlphabet url safe characters without the separators used in control data
const DefaultAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NanoIDGenerator ID implementation using NanoID
type NanoIDGenerator struct {
	Length   int
	Alphabet string
}

var _ Generator = &NanoIDGenerator{}

// NewNanoIDGenerator create a new `NanoIDGenerator` instance
func NewNanoIDGenerator(length int) *NanoIDGenerator {
	if length < 1 {
		panic("length must be larger than 1")
	}
	return &NanoIDGenerator{Length: length, Alphabet: DefaultAlphabet}
}

// Generate generate ID
func (ns *NanoIDGenerator) Generate() (string, error) {
	return gonanoid.Generate(ns.Alphabet, ns.Length)
}

// Func adapts a Generator to the func() string signature expected by echo middlewares,
// falling back to an empty string which lets echo keep the incoming header
func Func(g Generator) func() string {
	return func() string {
		id, err := g.Generate()
		if err != nil {
			return ""
		}
		return id
	}
}
