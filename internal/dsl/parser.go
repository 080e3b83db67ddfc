package dsl

import (
	"encoding/json"
	"fmt"
	"strings"

	sqlflowerrors "github.com/sqlflow/sqlflow/pkg/errors"
)

// Parse lexes and parses pipeline source into a Pipeline AST.
func Parse(src string) (*Pipeline, error) {
	p := &parser{src: src, toks: newLexer(src).tokens()}
	steps, err := p.parseStatements(func(kw string) bool { return false })
	if err != nil {
		return nil, err
	}
	return &Pipeline{Steps: steps}, nil
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekUpper() string {
	return strings.ToUpper(p.toks[p.pos].text)
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectSymbol(sym string) error {
	t := p.next()
	if t.kind != tokSymbol || t.text != sym {
		return p.errf(t, "expected %q, got %q", sym, t.text)
	}
	return nil
}

func (p *parser) expectKeyword(kw string) error {
	t := p.next()
	if !strings.EqualFold(t.text, kw) {
		return p.errf(t, "expected %q, got %q", kw, t.text)
	}
	return nil
}

func (p *parser) errf(t token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return sqlflowerrors.NewCompilationError(fmt.Sprintf("line %d", t.line), fmt.Errorf("%s", msg))
}

// parseStatements parses statements until EOF or stopKeyword matches the
// upcoming token (used by conditional parsing to stop at ELSE/END).
func (p *parser) parseStatements(stop func(kw string) bool) ([]Step, error) {
	var steps []Step
	for p.peek().kind != tokEOF {
		if stop(p.peekUpper()) {
			break
		}
		step, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (p *parser) parseStatement() (Step, error) {
	kw := p.peekUpper()
	switch kw {
	case "SOURCE":
		return p.parseSourceDef()
	case "LOAD":
		return p.parseLoad()
	case "CREATE":
		return p.parseTransform()
	case "EXPORT":
		return p.parseExport()
	case "SET":
		return p.parseSet()
	case "INCLUDE":
		return p.parseInclude()
	case "IF":
		return p.parseConditional()
	default:
		return nil, p.errf(p.peek(), "unexpected statement keyword %q", p.peek().text)
	}
}

func (p *parser) parseSourceDef() (Step, error) {
	line := p.peek().line
	if err := p.expectKeyword("SOURCE"); err != nil {
		return nil, err
	}
	name := p.next().text

	s := &SourceDefinition{base: base{Line: line}, Name: name}

	switch p.peekUpper() {
	case "TYPE":
		p.next()
		s.ConnectorType = p.next().text
		if err := p.expectKeyword("PARAMS"); err != nil {
			return nil, err
		}
		params, err := p.parseJSONObject()
		if err != nil {
			return nil, err
		}
		s.Params = params
	case "FROM":
		p.next()
		s.IsFromProfile = true
		s.ProfileConnectorNm = unquote(p.next().text)
		if p.peekUpper() == "OPTIONS" {
			p.next()
			opts, err := p.parseJSONObject()
			if err != nil {
				return nil, err
			}
			s.Options = opts
		}
	default:
		return nil, p.errf(p.peek(), "SOURCE requires TYPE or FROM, got %q", p.peek().text)
	}

	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) parseLoad() (Step, error) {
	line := p.peek().line
	if err := p.expectKeyword("LOAD"); err != nil {
		return nil, err
	}
	table := p.next().text
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	source := p.next().text

	l := &Load{base: base{Line: line}, TableName: table, SourceName: source}

	if p.peekUpper() == "MODE" {
		p.next()
		mode := strings.ToUpper(p.next().text)
		if mode != "REPLACE" && mode != "APPEND" && mode != "UPSERT" {
			return nil, p.errf(p.peek(), "invalid LOAD mode %q", mode)
		}
		l.Mode = mode
		if p.peekUpper() == "KEY" {
			p.next()
			keys, err := p.parseIdentList()
			if err != nil {
				return nil, err
			}
			l.UpsertKeys = keys
		}
	}

	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return l, nil
}

func (p *parser) parseIdentList() ([]string, error) {
	var keys []string
	if p.peek().kind == tokSymbol && p.peek().text == "(" {
		p.next()
		for {
			keys = append(keys, p.next().text)
			if p.peek().kind == tokSymbol && p.peek().text == "," {
				p.next()
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return keys, nil
	}
	// Bare identifier list separated by commas without parens.
	for {
		keys = append(keys, p.next().text)
		if p.peek().kind == tokSymbol && p.peek().text == "," {
			p.next()
			continue
		}
		break
	}
	return keys, nil
}

func (p *parser) parseTransform() (Step, error) {
	line := p.peek().line
	if err := p.expectKeyword("CREATE"); err != nil {
		return nil, err
	}
	isReplace := false
	if p.peekUpper() == "OR" {
		p.next()
		if err := p.expectKeyword("REPLACE"); err != nil {
			return nil, err
		}
		isReplace = true
	}
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table := p.next().text

	s := &SQLBlock{base: base{Line: line}, TableName: table, IsReplace: isReplace}

	if p.peekUpper() == "MODE" {
		p.next()
		if err := p.parseModeClause(s); err != nil {
			return nil, err
		}
	}

	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	sql, err := p.parseSelectBodyUntil(";")
	if err != nil {
		return nil, err
	}
	s.SQLQuery = sql
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) parseModeClause(s *SQLBlock) error {
	mode := strings.ToUpper(p.next().text)
	switch mode {
	case "REPLACE", "APPEND":
		s.Mode = mode
	case "MERGE":
		s.Mode = mode
		if err := p.expectKeyword("KEY"); err != nil {
			return err
		}
		keys, err := p.parseIdentList()
		if err != nil {
			return err
		}
		s.MergeKeys = keys
	case "INCREMENTAL":
		s.Mode = mode
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		s.TimeColumn = p.next().text
		if p.peekUpper() == "LOOKBACK" {
			p.next()
			s.Lookback = p.next().text
		}
	default:
		return p.errf(p.peek(), "invalid MODE clause %q", mode)
	}
	return nil
}

func (p *parser) parseExport() (Step, error) {
	line := p.peek().line
	if err := p.expectKeyword("EXPORT"); err != nil {
		return nil, err
	}
	sql, err := p.parseSelectBodyUntil("TO")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TO"); err != nil {
		return nil, err
	}
	dest := unquote(p.next().text)
	if err := p.expectKeyword("TYPE"); err != nil {
		return nil, err
	}
	connType := p.next().text
	if err := p.expectKeyword("OPTIONS"); err != nil {
		return nil, err
	}
	opts, err := p.parseJSONObject()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return &Export{base: base{Line: line}, SQLQuery: sql, DestinationURI: dest, ConnectorType: connType, Options: opts}, nil
}

func (p *parser) parseSet() (Step, error) {
	line := p.peek().line
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	name := p.next().text
	if err := p.expectSymbol("="); err != nil {
		return nil, err
	}
	valTok := p.next()
	var value string
	switch valTok.kind {
	case tokString:
		value = unquote(valTok.text)
	default:
		value = valTok.text
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return &Set{base: base{Line: line}, VariableName: name, VariableValue: value}, nil
}

func (p *parser) parseInclude() (Step, error) {
	line := p.peek().line
	if err := p.expectKeyword("INCLUDE"); err != nil {
		return nil, err
	}
	path := unquote(p.next().text)
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	alias := p.next().text
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return &Include{base: base{Line: line}, FilePath: path, Alias: alias}, nil
}

func (p *parser) parseConditional() (Step, error) {
	line := p.peek().line
	if err := p.expectKeyword("IF"); err != nil {
		return nil, err
	}
	cond, err := p.parseExprUntil("THEN")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("THEN"); err != nil {
		return nil, err
	}
	stop := func(kw string) bool { return kw == "ELSE" || kw == "END" }
	body, err := p.parseStatements(stop)
	if err != nil {
		return nil, err
	}

	block := &ConditionalBlock{base: base{Line: line}, Branches: []Branch{{Condition: cond, Steps: body}}}

	for p.peekUpper() == "ELSE" {
		p.next()
		if p.peekUpper() == "IF" {
			p.next()
			elifCond, err := p.parseExprUntil("THEN")
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("THEN"); err != nil {
				return nil, err
			}
			elifBody, err := p.parseStatements(stop)
			if err != nil {
				return nil, err
			}
			block.Branches = append(block.Branches, Branch{Condition: elifCond, Steps: elifBody})
			continue
		}
		elseBody, err := p.parseStatements(func(kw string) bool { return kw == "END" })
		if err != nil {
			return nil, err
		}
		block.ElseBranch = elseBody
		block.HasElse = true
		break
	}

	if err := p.expectKeyword("END"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("IF"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return block, nil
}

// parseExprUntil reconstructs the raw source text of a condition expression
// (so the variable resolver can substitute it token-for-token later) by
// slicing source bytes from the current token up to the one before
// stopKeyword.
func (p *parser) parseExprUntil(stopKeyword string) (string, error) {
	startTok := p.peek()
	startOffset := startTok.start
	for p.peek().kind != tokEOF && !strings.EqualFold(p.peek().text, stopKeyword) {
		p.next()
	}
	if p.peek().kind == tokEOF {
		return "", p.errf(p.peek(), "expected %q before end of input", stopKeyword)
	}
	endOffset := p.peek().start
	return strings.TrimSpace(p.src[startOffset:endOffset]), nil
}

// parseSelectBodyUntil reconstructs raw SQL text up to (not including) the
// next bare ";" or "TO" keyword at the top nesting level, skipping over
// parenthesized sub-expressions and string literals (which the lexer has
// already isolated as single tokens).
func (p *parser) parseSelectBodyUntil(stop string) (string, error) {
	startOffset := p.peek().start
	depth := 0
	for {
		t := p.peek()
		if t.kind == tokEOF {
			return "", p.errf(t, "unterminated SELECT body, expected %q", stop)
		}
		if depth == 0 {
			if stop == ";" && t.kind == tokSymbol && t.text == ";" {
				break
			}
			if stop == "TO" && strings.EqualFold(t.text, "TO") {
				break
			}
		}
		if t.kind == tokSymbol && t.text == "(" {
			depth++
		}
		if t.kind == tokSymbol && t.text == ")" {
			depth--
		}
		p.next()
	}
	endOffset := p.peek().start
	return strings.TrimSpace(p.src[startOffset:endOffset]), nil
}

// parseJSONObject consumes the raw {...} token and decodes it as JSON,
// tolerating ${...} variable tokens embedded in string positions (they are
// left as literal text; the planner later substitutes them inside the
// decoded string values, without parsing the JSON again).
func (p *parser) parseJSONObject() (map[string]any, error) {
	t := p.next()
	if t.kind != tokJSON {
		return nil, p.errf(t, "expected a JSON object, got %q", t.text)
	}
	raw := preprocessJSONVariables(t.text)
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, p.errf(t, "invalid JSON object: %v", err)
	}
	return m, nil
}

// preprocessJSONVariables is a no-op placeholder hook: ${...} tokens are
// valid inside JSON string values as-is (they are ordinary characters from
// json.Unmarshal's point of view), so no rewriting is required before
// decoding. It is called only by parseJSONObject; the planner does not
// call it.
func preprocessJSONVariables(raw string) string {
	return raw
}
