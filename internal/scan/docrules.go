// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scan

import (
	"fmt"
	"strings"

	"github.com/pdiddy/texplain/internal/document"
	"github.com/pdiddy/texplain/internal/rule"
	"github.com/pdiddy/texplain/pkg/types"
)

// DocRuleError reports a malformed document-local rule. Unlike scan
// warnings this is fatal: an author who writes rules expects them to run,
// and extracting without them would silently check the wrong text.
type DocRuleError struct {
	Location types.Location
	Err      error
}

func (e *DocRuleError) Error() string {
	return fmt.Sprintf("%s, line %d: %v", e.Location.File, e.Location.Line, e.Err)
}

func (e *DocRuleError) Unwrap() error { return e.Err }

// scanDocumentRules collects "% Rule(...)" comment lines. The syntax is
//
//	% Rule(r'pattern', r'replacement', iterative=True, phase='setup')
//
// with the replacement defaulting to empty, both keyword arguments optional,
// and either quote character accepted. A comment that starts like a rule but
// does not parse aborts the scan.
func (s *Scanner) scanDocumentRules(b *document.Buffer, text string, rep *Report) error {
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		body, ok := ruleComment(line)
		if ok {
			loc := b.Locate(offset)
			spec, err := parseRuleArgs(body)
			if err != nil {
				return &DocRuleError{Location: loc, Err: err}
			}
			spec.Flags = defaultGuards
			spec.Provenance = types.ProvenanceDocument
			spec.Location = loc
			rep.DocumentRules = append(rep.DocumentRules, spec)
		}
		offset += len([]rune(line))
	}
	return nil
}

// ruleComment strips comment leaders and reports whether the line is a rule
// declaration, returning the text from "Rule(" on.
func ruleComment(line string) (string, bool) {
	t := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(t, "%") {
		return "", false
	}
	// Uncomment exactly one marker: a doubled "%%" leaves a comment,
	// which disables the rule.
	t = strings.TrimLeft(t[1:], " \t")
	if !strings.HasPrefix(t, "Rule(") {
		return "", false
	}
	return t, true
}

// ParseRule parses one bare "Rule(...)" declaration, as found in local rule
// files. The declaration syntax is the same as for document rules; phase and
// provenance are left for the caller to assign.
func ParseRule(decl string) (rule.Spec, error) {
	decl = strings.TrimLeft(decl, " \t")
	if !strings.HasPrefix(decl, "Rule(") {
		return rule.Spec{}, fmt.Errorf("expected Rule(...), got %q", decl)
	}
	return parseRuleArgs(decl)
}

// parseRuleArgs parses the argument list of one rule declaration.
func parseRuleArgs(decl string) (rule.Spec, error) {
	spec := rule.Spec{Phase: types.PhaseMain}
	p := &argParser{src: strings.TrimSuffix(decl, "\n"), pos: len("Rule(")}

	positional := 0
	for {
		p.skipSpace()
		if p.eof() {
			return spec, fmt.Errorf("unterminated rule declaration")
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		switch {
		case p.peek() == '\'' || p.peek() == '"' || strings.HasPrefix(p.rest(), "r'") || strings.HasPrefix(p.rest(), `r"`):
			s, err := p.stringLit()
			if err != nil {
				return spec, err
			}
			switch positional {
			case 0:
				spec.Pattern = s
			case 1:
				spec.Replace = s
			default:
				return spec, fmt.Errorf("too many positional arguments")
			}
			positional++
		case strings.HasPrefix(p.rest(), "iterative="):
			p.pos += len("iterative=")
			v, err := p.boolLit()
			if err != nil {
				return spec, err
			}
			spec.Iterative = v
		case strings.HasPrefix(p.rest(), "phase="):
			p.pos += len("phase=")
			s, err := p.stringLit()
			if err != nil {
				return spec, err
			}
			phase, err := types.ParsePhase(s)
			if err != nil {
				return spec, err
			}
			spec.Phase = phase
		default:
			return spec, fmt.Errorf("unexpected argument at %q", p.rest())
		}

		p.skipSpace()
		if !p.eof() && p.peek() == ',' {
			p.pos++
		}
	}

	p.skipSpace()
	if !p.eof() {
		return spec, fmt.Errorf("trailing text %q after rule declaration", p.rest())
	}
	if positional == 0 {
		return spec, fmt.Errorf("rule declaration needs at least a pattern")
	}
	return spec, nil
}

type argParser struct {
	src string
	pos int
}

func (p *argParser) eof() bool    { return p.pos >= len(p.src) }
func (p *argParser) peek() byte   { return p.src[p.pos] }
func (p *argParser) rest() string { return p.src[p.pos:] }

func (p *argParser) skipSpace() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

// stringLit reads a single- or double-quoted literal, with an optional raw
// prefix. Raw and plain literals are taken verbatim; the pattern and
// replacement languages do their own escape handling.
func (p *argParser) stringLit() (string, error) {
	if !p.eof() && p.peek() == 'r' {
		p.pos++
	}
	if p.eof() || (p.peek() != '\'' && p.peek() != '"') {
		return "", fmt.Errorf("expected a quoted string at %q", p.rest())
	}
	quote := p.peek()
	p.pos++
	end := strings.IndexByte(p.src[p.pos:], quote)
	if end < 0 {
		return "", fmt.Errorf("unterminated string literal")
	}
	s := p.src[p.pos : p.pos+end]
	p.pos += end + 1
	return s, nil
}

func (p *argParser) boolLit() (bool, error) {
	switch {
	case strings.HasPrefix(p.rest(), "True"):
		p.pos += len("True")
		return true, nil
	case strings.HasPrefix(p.rest(), "False"):
		p.pos += len("False")
		return false, nil
	}
	return false, fmt.Errorf("expected True or False at %q", p.rest())
}
