package websockify

import (
	"errors"
	"strings"

	"github.com/grafana/regexp"
)

// Pattern is a compiled path pattern used to scope WebSocket middleware to
// the upgrade request path. Patterns support static segments ('/chat'), named
// parameters ('/rooms/:id'), single segment wildcards ('/files/*'), any depth
// wildcards ('/files/**'), custom sub expressions ('/users/:id([0-9]+)') and
// the modifiers '?' (optional), '+' (one or more) and '*' (zero or more).
// Sub expressions cannot contain slashes.
type Pattern struct {
	str      string
	segments []segment
	regExp   *regexp.Regexp
}

type segmentKind int

const (
	staticSegment segmentKind = iota
	paramSegment
	wildcardSegment
)

type segmentRepeat int

const (
	repeatOnce segmentRepeat = iota
	repeatOptional
	repeatOneOrMore
	repeatZeroOrMore
)

type segment struct {
	kind   segmentKind
	repeat segmentRepeat
	name   string
	expr   string
}

// NewPattern compiles a pattern string. It returns an error if the pattern is
// malformed.
func NewPattern(patternStr string) (*Pattern, error) {
	if !strings.HasPrefix(patternStr, "/") {
		return nil, errors.New("pattern must start with a leading slash")
	}

	segments := make([]segment, 0)
	for _, rawSegment := range strings.Split(patternStr[1:], "/") {
		if rawSegment == "" {
			continue
		}
		seg, err := parseSegment(rawSegment)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	patternRegExp, err := compileSegments(segments)
	if err != nil {
		return nil, err
	}

	return &Pattern{
		str:      patternStr,
		segments: segments,
		regExp:   patternRegExp,
	}, nil
}

// Match compares a path to the pattern. If it matches, the named parameters
// captured from the path are returned with true.
func (p *Pattern) Match(path string) (Params, bool) {
	var params Params
	if !p.MatchInto(path, &params) {
		return nil, false
	}
	return params, true
}

// MatchInto is like Match but writes the parameters into an existing map,
// clearing it first. The map is allocated if nil.
func (p *Pattern) MatchInto(path string, params *Params) bool {
	matchIndices := p.regExp.FindStringSubmatchIndex(path)
	if matchIndices == nil {
		return false
	}

	names := p.regExp.SubexpNames()
	if *params == nil {
		*params = make(Params, len(names))
	}
	for key := range *params {
		delete(*params, key)
	}

	for i := 1; i < len(names); i += 1 {
		if names[i] == "" {
			continue
		}
		start, end := matchIndices[i*2], matchIndices[i*2+1]
		if start < 0 {
			(*params)[names[i]] = ""
			continue
		}
		(*params)[names[i]] = path[start:end]
	}

	return true
}

// String returns the pattern as it was written.
func (p *Pattern) String() string {
	return p.str
}

func parseSegment(rawSegment string) (segment, error) {
	seg := segment{}

	body := rawSegment
	switch rawSegment[0] {
	case ':':
		seg.kind = paramSegment
		body = rawSegment[1:]
	case '*':
		seg.kind = wildcardSegment
		body = rawSegment[1:]
	case '(':
		seg.kind = wildcardSegment
	default:
		seg.kind = staticSegment
	}

	if body != "" && !strings.HasSuffix(body, ")") {
		switch body[len(body)-1] {
		case '?':
			seg.repeat = repeatOptional
		case '+':
			seg.repeat = repeatOneOrMore
		case '*':
			seg.repeat = repeatZeroOrMore
		}
		if seg.repeat != repeatOnce {
			body = body[:len(body)-1]
		}
	}

	if openIndex := strings.IndexByte(body, '('); openIndex != -1 {
		if !strings.HasSuffix(body, ")") {
			return seg, errors.New("unterminated sub expression in segment " + rawSegment)
		}
		if strings.Count(body, "(") > 1 {
			return seg, errors.New("pattern segments cannot contain multiple sub expressions")
		}
		if seg.kind == staticSegment {
			return seg, errors.New("static segments cannot contain sub expressions")
		}
		seg.expr = body[openIndex+1 : len(body)-1]
		body = body[:openIndex]
	}

	switch seg.kind {
	case paramSegment:
		if body == "" {
			return seg, errors.New("dynamic segments must have a name")
		}
		seg.name = body
	case staticSegment:
		seg.expr = regexp.QuoteMeta(body)
	}

	if seg.expr == "" {
		seg.expr = "[^/]+"
	}

	return seg, nil
}

func compileSegments(segments []segment) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	for _, seg := range segments {
		expr := seg.expr
		if seg.kind == paramSegment {
			switch seg.repeat {
			case repeatOnce:
				b.WriteString("/(?P<" + seg.name + ">" + expr + ")")
			case repeatOptional:
				b.WriteString("(?:/(?P<" + seg.name + ">" + expr + "))?")
			case repeatOneOrMore:
				b.WriteString("/(?P<" + seg.name + ">(?:" + expr + ")(?:/(?:" + expr + "))*)")
			case repeatZeroOrMore:
				b.WriteString("(?:/(?P<" + seg.name + ">(?:" + expr + ")(?:/(?:" + expr + "))*))?")
			}
			continue
		}

		switch seg.repeat {
		case repeatOnce:
			b.WriteString("/(?:" + expr + ")")
		case repeatOptional:
			b.WriteString("(?:/(?:" + expr + "))?")
		case repeatOneOrMore:
			b.WriteString("/(?:" + expr + ")(?:/(?:" + expr + "))*")
		case repeatZeroOrMore:
			b.WriteString("(?:/(?:" + expr + ")(?:/(?:" + expr + "))*)?")
		}
	}

	b.WriteString("/?$")

	return regexp.Compile(b.String())
}
