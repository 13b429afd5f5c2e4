// Package command turns voice transcripts into navigation commands and
// queues them for the application loop.
package command

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Command is a navigation control request.
type Command int

const (
	None Command = iota
	Start
	Stop
	Describe
	Help
)

// HelpText is spoken in reply to Help.
const HelpText = "Say start to begin navigation. Say stop to end."

// ErrUnrecognized is returned when a transcript holds no command word.
var ErrUnrecognized = errors.New("command: unrecognized")

var names = [...]string{
	None:     "none",
	Start:    "start",
	Stop:     "stop",
	Describe: "describe",
	Help:     "help",
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(names) {
		return fmt.Sprintf("command(%d)", int(c))
	}
	return names[c]
}

// MarshalText encodes the command name.
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts a command name or any keyword Parse understands.
func (c *Command) UnmarshalText(b []byte) error {
	cmd, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = cmd
	return nil
}

// keywords maps spoken words to commands. Earlier rules win when a
// transcript holds several.
var keywords = []struct {
	cmd   Command
	words []string
}{
	{Start, []string{"start"}},
	{Stop, []string{"stop", "end", "pause"}},
	{Describe, []string{"describe"}},
	{Help, []string{"help"}},
}

// Parse finds the command in a transcript. Matching is on whole words,
// case-insensitive, so "friend" does not read as "end".
func Parse(transcript string) (Command, error) {
	words := strings.FieldsFunc(strings.ToLower(transcript), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return None, ErrUnrecognized
	}

	seen := make(map[string]bool, len(words))
	for _, w := range words {
		seen[w] = true
	}

	for _, k := range keywords {
		for _, w := range k.words {
			if seen[w] {
				return k.cmd, nil
			}
		}
	}
	return None, ErrUnrecognized
}

// ParseAlternatives returns the command from the first recognizer
// hypothesis that holds one.
func ParseAlternatives(alternatives []string) (Command, error) {
	for _, alt := range alternatives {
		if cmd, err := Parse(alt); err == nil {
			return cmd, nil
		}
	}
	return None, ErrUnrecognized
}
