package skos

import (
	"fmt"
	"strconv"
	"strings"
)

// triple is one parsed N-Triples statement.
type triple struct {
	subject   string
	predicate string
	object    object
}

// object is a triple object: either an IRI or a literal with an optional
// language tag.
type object struct {
	value string
	isIRI bool
	lang  string
}

// parseLine parses a single N-Triples statement. Blank lines, comments
// and statements involving blank nodes report ok=false; malformed
// statements report an error. SKOS exports identify concepts by IRI, so
// blank nodes carry nothing the loader needs.
func parseLine(line string) (triple, bool, error) {
	p := &lineParser{rest: strings.TrimSpace(strings.TrimSuffix(line, "\r"))}
	if p.rest == "" || strings.HasPrefix(p.rest, "#") {
		return triple{}, false, nil
	}

	if strings.HasPrefix(p.rest, "_:") {
		return triple{}, false, nil
	}
	subj, err := p.readIRI()
	if err != nil {
		return triple{}, false, fmt.Errorf("subject: %w", err)
	}

	p.skipSpace()
	pred, err := p.readIRI()
	if err != nil {
		return triple{}, false, fmt.Errorf("predicate: %w", err)
	}

	p.skipSpace()
	if strings.HasPrefix(p.rest, "_:") {
		return triple{}, false, nil
	}
	obj, err := p.readObject()
	if err != nil {
		return triple{}, false, fmt.Errorf("object: %w", err)
	}

	p.skipSpace()
	if !strings.HasPrefix(p.rest, ".") {
		return triple{}, false, fmt.Errorf("missing terminating dot")
	}

	return triple{subject: subj, predicate: pred, object: obj}, true, nil
}

type lineParser struct {
	rest string
}

func (p *lineParser) skipSpace() {
	p.rest = strings.TrimLeft(p.rest, " \t")
}

func (p *lineParser) readIRI() (string, error) {
	if !strings.HasPrefix(p.rest, "<") {
		return "", fmt.Errorf("expected IRI, got %q", truncateFor(p.rest))
	}
	end := strings.IndexByte(p.rest, '>')
	if end < 0 {
		return "", fmt.Errorf("unterminated IRI")
	}
	iri := p.rest[1:end]
	p.rest = p.rest[end+1:]
	return iri, nil
}

func (p *lineParser) readObject() (object, error) {
	if strings.HasPrefix(p.rest, "<") {
		iri, err := p.readIRI()
		if err != nil {
			return object{}, err
		}
		return object{value: iri, isIRI: true}, nil
	}
	if strings.HasPrefix(p.rest, "\"") {
		return p.readLiteral()
	}
	return object{}, fmt.Errorf("expected IRI or literal, got %q", truncateFor(p.rest))
}

func (p *lineParser) readLiteral() (object, error) {
	// Find the closing quote, honouring backslash escapes.
	var b strings.Builder
	i := 1
	closed := false
	for i < len(p.rest) {
		c := p.rest[i]
		if c == '"' {
			closed = true
			i++
			break
		}
		if c != '\\' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(p.rest) {
			return object{}, fmt.Errorf("dangling escape")
		}
		esc := p.rest[i+1]
		switch esc {
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case '"', '\\', '\'':
			b.WriteByte(esc)
			i += 2
		case 'u', 'U':
			width := 4
			if esc == 'U' {
				width = 8
			}
			if i+2+width > len(p.rest) {
				return object{}, fmt.Errorf("short unicode escape")
			}
			code, err := strconv.ParseUint(p.rest[i+2:i+2+width], 16, 32)
			if err != nil {
				return object{}, fmt.Errorf("bad unicode escape: %w", err)
			}
			b.WriteRune(rune(code))
			i += 2 + width
		default:
			return object{}, fmt.Errorf("unknown escape \\%c", esc)
		}
	}
	if !closed {
		return object{}, fmt.Errorf("unterminated literal")
	}
	p.rest = p.rest[i:]

	obj := object{value: b.String()}

	// Optional language tag or datatype.
	if strings.HasPrefix(p.rest, "@") {
		end := strings.IndexAny(p.rest, " \t.")
		if end < 0 {
			end = len(p.rest)
		}
		obj.lang = p.rest[1:end]
		p.rest = p.rest[end:]
	} else if strings.HasPrefix(p.rest, "^^") {
		p.rest = p.rest[2:]
		if _, err := p.readIRI(); err != nil {
			return object{}, fmt.Errorf("datatype: %w", err)
		}
	}
	return obj, nil
}

func truncateFor(s string) string {
	if len(s) > 20 {
		return s[:20] + "..."
	}
	return s
}
