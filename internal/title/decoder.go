// Package title decodes the project identity from a main window caption.
package title

import "strings"

// Decoder extracts the project identity from window titles of one application.
type Decoder struct {
	marker   string
	untitled []string
}

// NewDecoder creates a decoder for titles of the form "<identity><marker>...".
// Identities listed in untitled decode to the empty string.
func NewDecoder(marker string, untitled []string) *Decoder {
	return &Decoder{marker: marker, untitled: untitled}
}

// Decode returns the project identity shown in title, or "" when no saved
// project is open.
func (d *Decoder) Decode(title string) string {
	idx := strings.LastIndex(title, d.marker)
	if idx < 0 {
		return ""
	}

	identity := title[:idx]
	for _, name := range d.untitled {
		if strings.EqualFold(identity, name) {
			return ""
		}
	}
	return identity
}
