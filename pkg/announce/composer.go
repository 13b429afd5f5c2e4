// Package announce builds spoken obstacle warnings and decides when they
// may be repeated.
package announce

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/teslashibe/go-echosight/pkg/spatial"
)

// Templates holds the phrasings for each tier. Each entry contains one %s
// for the label.
type Templates map[spatial.Proximity][]string

// DefaultTemplates returns three Far, three Mid and four Near phrasings.
func DefaultTemplates() Templates {
	return Templates{
		spatial.Far: {
			"%s is far ahead",
			"There is a %s in the distance",
			"%s up ahead",
		},
		spatial.Mid: {
			"%s is some steps ahead",
			"Approaching a %s",
			"%s a few steps away",
		},
		spatial.Near: {
			"%s is very near you",
			"Careful, %s right in front",
			"Stop, %s ahead",
			"%s very close",
		},
	}
}

// Composer turns a label and tier into a sentence.
type Composer struct {
	templates     Templates
	withDirection bool

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Composer.
type Option func(*Composer)

// WithRand sets the random source used to pick templates.
func WithRand(r *rand.Rand) Option {
	return func(c *Composer) {
		c.rng = r
	}
}

// WithTemplates replaces the phrasings.
func WithTemplates(t Templates) Option {
	return func(c *Composer) {
		c.templates = t
	}
}

// WithDirection toggles the trailing "on your left" style suffix.
func WithDirection(on bool) Option {
	return func(c *Composer) {
		c.withDirection = on
	}
}

// NewComposer creates a composer with default templates and the
// direction suffix enabled.
func NewComposer(opts ...Option) *Composer {
	c := &Composer{
		templates:     DefaultTemplates(),
		withDirection: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return c
}

// Compose picks a template for p uniformly at random. It returns "" when
// the tier has no templates.
func (c *Composer) Compose(label string, p spatial.Proximity) string {
	options := c.templates[p]
	if len(options) == 0 {
		return ""
	}

	c.mu.Lock()
	tmpl := options[c.rng.Intn(len(options))]
	c.mu.Unlock()

	return capitalize(fmt.Sprintf(tmpl, label))
}

// ComposeDirected is Compose with the bearing appended when enabled.
func (c *Composer) ComposeDirected(label string, p spatial.Proximity, d spatial.Direction) string {
	msg := c.Compose(label, p)
	if msg == "" || !c.withDirection {
		return msg
	}

	switch d {
	case spatial.Left:
		return msg + " on your left"
	case spatial.Right:
		return msg + " on your right"
	default:
		return msg
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
