package irc

import (
	"fmt"
	"strings"
)

// errEmptyParam signals a zero-length middle parameter, which only stray
// trailing whitespace legitimately produces.
var errEmptyParam = fmt.Errorf("parameter with zero characters")

// ParseMessage parses one protocol line, which must end in CRLF (a lone LF
// is tolerated and fixed up).
//
// Grammar (RFC 1459/2812 section 2.3.1):
//
//	message = [ ":" source SP ] command (SP param)* [ SP ":" trailing ] crlf
func ParseMessage(line string) (Message, error) {
	line, err := fixLineEnding(line)
	if err != nil {
		return Message{}, fmt.Errorf("line does not have a valid ending: %s", err)
	}

	message := Message{}
	index := 0

	if line[0] == ':' {
		source, sourceIndex, err := parseSource(line)
		if err != nil {
			return Message{}, fmt.Errorf("problem parsing source: %s", err)
		}
		index = sourceIndex
		message.Source = source

		if index >= len(line) {
			return Message{}, fmt.Errorf("malformed message: source only")
		}
	}

	command, index, err := parseCommand(line, index)
	if err != nil {
		return Message{}, fmt.Errorf("problem parsing command: %s", err)
	}
	message.Command = command

	params, trailing, index, err := splitParams(line, index)
	if err != nil {
		return Message{}, fmt.Errorf("problem parsing params: %s", err)
	}
	if len(params) > 15 {
		return Message{}, fmt.Errorf("too many parameters")
	}
	message.Params = params
	message.Trailing = trailing

	if index != len(line)-2 || line[index] != '\r' || line[index+1] != '\n' {
		return Message{}, fmt.Errorf(
			"malformed message: no CRLF found at position %d", index)
	}

	return message, nil
}

// fixLineEnding ensures the line ends in CRLF, tolerating a lone LF.
func fixLineEnding(line string) (string, error) {
	if len(line) == 0 {
		return "", fmt.Errorf("line is blank")
	}

	if len(line) == 1 {
		if line[0] == '\n' {
			return "\r\n", nil
		}
		return "", fmt.Errorf("line does not end with LF")
	}

	last := len(line) - 1
	secondLast := last - 1

	if line[secondLast] == '\r' && line[last] == '\n' {
		return line, nil
	}

	if line[last] == '\n' {
		return line[:last] + "\r\n", nil
	}

	return "", fmt.Errorf("line has no ending CRLF or LF")
}

// parseSource parses the leading ":source " portion. line[0] is ':'.
//
// Returns the source string and the index of the first character after the
// separating space.
func parseSource(line string) (string, int, error) {
	pos := 0

	for pos < len(line) {
		if line[pos] == ' ' {
			break
		}
		if line[pos] == '\x00' || line[pos] == '\n' || line[pos] == '\r' {
			return "", -1, fmt.Errorf("invalid character in source: %q", line[pos])
		}
		pos++
	}

	if pos == len(line) {
		return "", -1, fmt.Errorf("no space found after source")
	}
	if pos == 1 {
		return "", -1, fmt.Errorf("source is zero length")
	}

	return line[1:pos], pos + 1, nil
}

// parseCommand parses the command starting at index. Returns the uppercased
// command and the index just after it.
func parseCommand(line string, index int) (string, int, error) {
	newIndex := index

	for newIndex < len(line) {
		c := line[newIndex]
		if (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
			newIndex++
			continue
		}
		if c != ' ' && c != '\r' {
			return "", -1, fmt.Errorf("unexpected character after command: %q", c)
		}
		break
	}

	if newIndex == index {
		return "", -1, fmt.Errorf("zero length command")
	}

	return strings.ToUpper(line[index:newIndex]), newIndex, nil
}

// splitParams parses the params portion of a line, starting at index, which
// points either at a space before the first param or at CR if there are
// none. It returns the params, whether the last one is a trailing
// (colon-introduced) parameter, and the index of the terminating CR.
func splitParams(line string, index int) ([]string, bool, int, error) {
	newIndex := index
	var params []string
	trailing := false

	for newIndex < len(line) {
		if line[newIndex] != ' ' {
			return params, trailing, newIndex, nil
		}

		param, isTrailing, paramIndex, err := parseParam(line, newIndex)
		if err != nil {
			if err == errEmptyParam {
				crIndex := trailingSpaceEnd(line, newIndex)
				if crIndex != -1 {
					return params, trailing, crIndex, nil
				}
			}
			return nil, false, -1, fmt.Errorf("problem parsing parameter: %s", err)
		}

		newIndex = paramIndex
		params = append(params, param)
		trailing = isTrailing
	}

	return nil, false, -1, fmt.Errorf("malformed params: not terminated properly")
}

// parseParam parses a single " param" or " :trailing" term starting at a
// space. Returns the parameter text (without leading ':'), whether it was a
// trailing parameter, and the index after it ends.
func parseParam(line string, index int) (string, bool, int, error) {
	newIndex := index

	if line[newIndex] != ' ' {
		return "", false, -1, fmt.Errorf("malformed param: no leading space")
	}
	newIndex++

	if len(line) == newIndex {
		return "", false, -1, fmt.Errorf("malformed param: end of string after space")
	}

	if line[newIndex] == ':' {
		newIndex++
		start := newIndex
		for newIndex < len(line) {
			if line[newIndex] == '\x00' || line[newIndex] == '\r' || line[newIndex] == '\n' {
				break
			}
			newIndex++
		}
		return line[start:newIndex], true, newIndex, nil
	}

	start := newIndex
	for newIndex < len(line) {
		c := line[newIndex]
		if c == '\x00' || c == '\r' || c == '\n' || c == ' ' {
			break
		}
		newIndex++
	}

	if start == newIndex {
		return "", false, -1, errEmptyParam
	}

	return line[start:newIndex], false, newIndex, nil
}

// trailingSpaceEnd reports the index of the CR if everything from index to
// the line's end is spaces followed by CRLF; returns -1 otherwise. This
// tolerates stray trailing whitespace some clients send.
func trailingSpaceEnd(line string, index int) int {
	for i := index; i < len(line); i++ {
		if line[i] == ' ' {
			continue
		}
		if line[i] == '\r' {
			return i
		}
		return -1
	}
	return -1
}

// splitParamText applies the same leading/trailing parameter grammar used
// for inbound lines to a standalone, already-rendered text blob (no source
// or command prefix). It is used to split a formatted numeric reply body
// into params, exactly as the wire codec would split an inbound line's
// params section. See Numeric.Render.
func splitParamText(text string) ([]string, bool) {
	line := " " + text + "\r\n"
	params, trailing, _, err := splitParams(line, 0)
	if err != nil {
		return nil, false
	}
	return params, trailing
}
