// Package ident builds human-readable record identifiers for records that must exist
// locally before (or instead of) a remote round trip.
//
// An identifier is <prefix><last 6 digits of epoch millis><uppercase base36 suffix>,
// e.g. STU482913K7Q.
package ident

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Prefixes used by the record collections.
const (
	StudentPrefix = "STU"
	TeacherPrefix = "TCH"
	BatchPrefix   = "BAT"
)

const (
	alphabet      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffixLen     = 3
	timeModulus   = 1_000_000
	widenAfterTry = 32
)

// Generator is a pure function of prefix, clock and random source. The zero value
// uses the wall clock and the global random source.
type Generator struct {
	Now  func() time.Time
	IntN func(n int) int
}

// Default is the generator used by the collections.
var Default = Generator{}

// Generate returns a new identifier with the default generator.
func Generate(prefix string) string {
	return Default.Generate(prefix)
}

// Generate returns <prefix><6 digits><3 chars>. It never fails.
func (g Generator) Generate(prefix string) string {
	return g.build(prefix, suffixLen)
}

// Unique keeps drawing until taken reports the identifier as free. The suffix grows
// by one character every widenAfterTry attempts, so it terminates even when a single
// millisecond window is saturated.
func (g Generator) Unique(prefix string, taken func(id string) bool) string {
	n := suffixLen
	for attempt := 1; ; attempt++ {
		id := g.build(prefix, n)
		if taken == nil || !taken(id) {
			return id
		}
		if attempt%widenAfterTry == 0 {
			n++
		}
	}
}

func (g Generator) build(prefix string, n int) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	intn := rand.IntN
	if g.IntN != nil {
		intn = g.IntN
	}

	var b strings.Builder
	b.Grow(len(prefix) + 6 + n)
	b.WriteString(prefix)
	fmt.Fprintf(&b, "%06d", now().UnixMilli()%timeModulus)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[intn(len(alphabet))])
	}
	return b.String()
}

// AcademyPrefix starts every academy key.
const AcademyPrefix = "AC"

// AcademyKey returns AC<4 chars><last 4 digits of epoch millis>, e.g. ACK7Q20481.
func (g Generator) AcademyKey() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	intn := rand.IntN
	if g.IntN != nil {
		intn = g.IntN
	}

	var b strings.Builder
	b.WriteString(AcademyPrefix)
	for i := 0; i < 4; i++ {
		b.WriteByte(alphabet[intn(len(alphabet))])
	}
	fmt.Fprintf(&b, "%04d", now().UnixMilli()%10_000)
	return b.String()
}
