// Package irc implements the wire codec for the IRC line protocol: parsing
// one CRLF-terminated line into a structured Message and serializing a
// Message back to a line.
package irc

import (
	"fmt"
	"strings"
)

// MaxLineLength is the maximum protocol message length, including the
// trailing CRLF.
const MaxLineLength = 512

// Message holds one protocol message. See RFC 1459/2812 section 2.3.1.
type Message struct {
	// Source is the optional prefix: a server name or nick!user@host. It is
	// blank when absent.
	Source string

	// Command is the verb (uppercased) or a 3-digit numeric.
	Command string

	// Params holds up to 15 ordered parameters. The last one may contain
	// spaces; Trailing records whether it must be serialized with a leading
	// ':' to preserve that.
	Params []string

	// Trailing is true when the last entry in Params is a trailing parameter
	// and must be re-emitted with a leading ':' even if it happens to contain
	// no spaces (e.g., an explicitly cleared topic).
	Trailing bool
}

func (m Message) String() string {
	return fmt.Sprintf("Source [%s] Command [%s] Params %q", m.Source, m.Command,
		m.Params)
}

// SourceNick returns the nickname portion of Source, or "" if Source is not
// a nick!user@host identifier.
func (m Message) SourceNick() string {
	idx := strings.Index(m.Source, "!")
	if idx == -1 {
		return ""
	}
	return m.Source[:idx]
}

// Encode serializes the message to a line, including the trailing CRLF.
//
// It does not enforce command-specific semantics (e.g., parameter counts).
func (m Message) Encode() (string, error) {
	var b strings.Builder

	if len(m.Source) > 0 {
		b.WriteString(":")
		b.WriteString(m.Source)
		b.WriteString(" ")
	}

	b.WriteString(m.Command)

	if b.Len()+2 > MaxLineLength {
		return "", fmt.Errorf("message with only source/command is too long")
	}

	if len(m.Params) > 15 {
		return "", fmt.Errorf("too many parameters")
	}

	for i, param := range m.Params {
		isLast := i+1 == len(m.Params)

		needsColon := isLast && (m.Trailing ||
			strings.Contains(param, " ") ||
			param == "" ||
			strings.HasPrefix(param, ":"))

		if !isLast && (strings.Contains(param, " ") || param == "" ||
			strings.HasPrefix(param, ":")) {
			return "", fmt.Errorf(
				"parameter problem: ':' or ' ' required outside last parameter")
		}

		rendered := param
		if needsColon {
			rendered = ":" + param
		}

		if b.Len()+1+len(rendered)+2 > MaxLineLength {
			lengthUsed := b.Len() + 1 + 2
			lengthAvailable := MaxLineLength - lengthUsed
			if lengthAvailable > 0 {
				b.WriteString(" ")
				b.WriteString(rendered[0:lengthAvailable])
			}
			b.WriteString("\r\n")
			return b.String(), ErrTruncated
		}

		b.WriteString(" ")
		b.WriteString(rendered)
	}

	b.WriteString("\r\n")

	return b.String(), nil
}

// ErrTruncated is returned by Encode when the message had to be shortened to
// fit MaxLineLength. The returned string is still a usable, well-formed
// line.
var ErrTruncated = fmt.Errorf("message truncated")
