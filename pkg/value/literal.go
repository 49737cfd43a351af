package value

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidLiteral is returned when ParseLiteral cannot read its input.
var ErrInvalidLiteral = errors.New("value: invalid literal")

var (
	durationDatePattern = regexp.MustCompile(`^(?:(\d+)D)?$`)
	durationTimePattern = regexp.MustCompile(`^(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?$`)
)

// ParseLiteral parses a single Cypher literal.
//
// Accepted forms:
//
//	null, true, false                 (case-insensitive)
//	42, -7, +3                        INTEGER
//	3.14, -2.5e3, .5, NaN, Infinity   FLOAT
//	'text', "text"                    STRING with \n \t \' \" \\ escapes
//	[1, 'a', null]                    LIST
//	{name: 'Alice', age: 30}          MAP (keys may be quoted or backticked)
//	duration('P1DT2H30M')             DURATION (days and below)
//
// Example:
//
//	v, err := ParseLiteral("[1, 2.5, 'x']")
//	// v.String() == `[1, 2.5, "x"]`
func ParseLiteral(src string) (Value, error) {
	p := &literalParser{src: src}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return NewNull(), err
	}
	p.skipSpace()
	if !p.eof() {
		return NewNull(), p.errorf("unexpected %q", p.src[p.pos:])
	}
	return v, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) eof() bool { return p.pos >= len(p.src) }

func (p *literalParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrInvalidLiteral, p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) parseValue() (Value, error) {
	if p.eof() {
		return NewNull(), p.errorf("unexpected end of input")
	}
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		s, err := p.parseQuoted()
		if err != nil {
			return NewNull(), err
		}
		return NewString(s), nil
	case c == '[':
		return p.parseList()
	case c == '{':
		return p.parseMap()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.parseNumber()
	case isIdentStart(c):
		return p.parseKeyword()
	default:
		return NewNull(), p.errorf("unexpected character %q", c)
	}
}

func (p *literalParser) parseQuoted() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case quote:
			return sb.String(), nil
		case '\\':
			if p.eof() {
				return "", p.errorf("unterminated escape")
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"':
				sb.WriteByte(esc)
			default:
				return "", p.errorf("unsupported escape \\%c", esc)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) parseList() (Value, error) {
	p.pos++ // [
	items := []Value{}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return NewList(items), nil
	}
	for {
		p.skipSpace()
		item, err := p.parseValue()
		if err != nil {
			return NewNull(), err
		}
		items = append(items, item)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return NewList(items), nil
		default:
			return NewNull(), p.errorf("expected ',' or ']'")
		}
	}
}

func (p *literalParser) parseMap() (Value, error) {
	p.pos++ // {
	entries := map[string]Value{}
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return NewMap(entries), nil
	}
	for {
		p.skipSpace()
		key, err := p.parseKey()
		if err != nil {
			return NewNull(), err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return NewNull(), p.errorf("expected ':' after key %q", key)
		}
		p.pos++
		p.skipSpace()
		item, err := p.parseValue()
		if err != nil {
			return NewNull(), err
		}
		entries[key] = item
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return NewMap(entries), nil
		default:
			return NewNull(), p.errorf("expected ',' or '}'")
		}
	}
}

func (p *literalParser) parseKey() (string, error) {
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		return p.parseQuoted()
	case c == '`':
		// A doubled backtick inside the quotes is a literal backtick.
		p.pos++
		var sb strings.Builder
		for !p.eof() {
			ch := p.src[p.pos]
			p.pos++
			if ch != '`' {
				sb.WriteByte(ch)
				continue
			}
			if !p.eof() && p.src[p.pos] == '`' {
				sb.WriteByte('`')
				p.pos++
				continue
			}
			return sb.String(), nil
		}
		return "", p.errorf("unterminated backtick")
	case isIdentStart(c):
		return p.ident(), nil
	default:
		return "", p.errorf("expected map key")
	}
}

func (p *literalParser) ident() string {
	start := p.pos
	for !p.eof() && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *literalParser) parseNumber() (Value, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	if isIdentStart(p.peek()) {
		// -Infinity, +NaN
		word := p.ident()
		f, ok := specialFloat(word)
		if !ok {
			return NewNull(), p.errorf("invalid number %q", p.src[start:p.pos])
		}
		if p.src[start] == '-' {
			f = -f
		}
		return NewFloat(f), nil
	}
	isFloat := false
scan:
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case isDigit(c):
		case c == '.' || c == 'e' || c == 'E':
			isFloat = true
		case (c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E'):
		default:
			break scan
		}
		p.pos++
	}
	text := p.src[start:p.pos]
	if !isFloat {
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return NewNull(), p.errorf("invalid integer %q", text)
		}
		return NewInteger(i), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return NewNull(), p.errorf("invalid float %q", text)
	}
	return NewFloat(f), nil
}

func (p *literalParser) parseKeyword() (Value, error) {
	start := p.pos
	word := p.ident()
	switch strings.ToLower(word) {
	case "null":
		return NewNull(), nil
	case "true":
		return NewBool(true), nil
	case "false":
		return NewBool(false), nil
	case "duration":
		return p.parseDurationCall()
	}
	if f, ok := specialFloat(word); ok {
		return NewFloat(f), nil
	}
	p.pos = start
	return NewNull(), p.errorf("unknown keyword %q", word)
}

func (p *literalParser) parseDurationCall() (Value, error) {
	p.skipSpace()
	if p.peek() != '(' {
		return NewNull(), p.errorf("expected '(' after duration")
	}
	p.pos++
	p.skipSpace()
	if c := p.peek(); c != '\'' && c != '"' {
		return NewNull(), p.errorf("duration expects a string argument")
	}
	text, err := p.parseQuoted()
	if err != nil {
		return NewNull(), err
	}
	p.skipSpace()
	if p.peek() != ')' {
		return NewNull(), p.errorf("expected ')'")
	}
	p.pos++
	d, err := ParseDuration(text)
	if err != nil {
		return NewNull(), err
	}
	return NewDuration(d), nil
}

// ParseDuration parses an ISO-8601 duration restricted to days, hours,
// minutes and (fractional) seconds, e.g. "P1DT2H30M" or "-PT0.5S".
// Year and month components are rejected because they have no fixed length.
func ParseDuration(s string) (time.Duration, error) {
	orig := s
	s = strings.ToUpper(strings.TrimSpace(s))
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) == 1 {
		return 0, fmt.Errorf("%w: duration %q", ErrInvalidLiteral, orig)
	}
	s = s[1:]
	datePart, timePart, hasTime := strings.Cut(s, "T")
	if hasTime && timePart == "" {
		return 0, fmt.Errorf("%w: duration %q", ErrInvalidLiteral, orig)
	}

	var total time.Duration
	m := durationDatePattern.FindStringSubmatch(datePart)
	if m == nil {
		return 0, fmt.Errorf("%w: duration %q", ErrInvalidLiteral, orig)
	}
	if m[1] != "" {
		days, _ := strconv.ParseInt(m[1], 10, 64)
		total += time.Duration(days) * 24 * time.Hour
	}
	if hasTime {
		m = durationTimePattern.FindStringSubmatch(timePart)
		if m == nil {
			return 0, fmt.Errorf("%w: duration %q", ErrInvalidLiteral, orig)
		}
		if m[1] != "" {
			hours, _ := strconv.ParseInt(m[1], 10, 64)
			total += time.Duration(hours) * time.Hour
		}
		if m[2] != "" {
			minutes, _ := strconv.ParseInt(m[2], 10, 64)
			total += time.Duration(minutes) * time.Minute
		}
		if m[3] != "" {
			secs, _ := strconv.ParseFloat(m[3], 64)
			total += time.Duration(math.Round(secs * float64(time.Second)))
		}
	}
	if neg {
		total = -total
	}
	return total, nil
}

func specialFloat(word string) (float64, bool) {
	switch strings.ToLower(word) {
	case "nan":
		return math.NaN(), true
	case "infinity", "inf":
		return math.Inf(1), true
	}
	return 0, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
