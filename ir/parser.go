package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ParseError is a syntax error at a source position.
type ParseError struct {
	File string
	Pos  Position
	Msg  string
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s:%s: %s", e.File, e.Pos, e.Msg)
}

// ErrorList is the set of errors reported by one parse.
type ErrorList []*ParseError

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// ---------------------------------------------------------------------------
// Parser: recursive descent over the statement grammar
//
//	extern crate NAME;
//	extern NAME;
//	[pub] PATH = INSTPATH [$$];
//	inst INSTPATH = IMPLPATH[INSTPATH*];
//	impl IMPLPATH = LIT [LIT [-> LIT]];
// ---------------------------------------------------------------------------

// Parser parses IR source into a Program.
type Parser struct {
	lexer     *Lexer
	file      string
	curToken  Token
	peekToken Token
	errors    ErrorList
}

// NewParser creates a new parser. file is used only in error messages.
func NewParser(file, input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		file:  file,
	}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses one crate. The crate name is recorded on the result; it is
// not checked against the paths the source declares.
func Parse(crate, file, input string) (*Program, error) {
	p := NewParser(file, input)
	prog := p.ParseProgram()
	prog.Crate = crate
	if len(p.errors) > 0 {
		return nil, p.errors
	}
	return prog, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken)
	return false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, &ParseError{
		File: p.file,
		Pos:  p.curToken.Pos,
		Msg:  fmt.Sprintf(format, args...),
	})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() ErrorList {
	return p.errors
}

// synchronize skips to just past the next semicolon.
func (p *Parser) synchronize() {
	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenSemicolon) {
		p.nextToken()
	}
	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseProgram parses statements until EOF. Statements that fail to parse
// are skipped and reported through Errors.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	for !p.curTokenIs(TokenEOF) {
		before := len(p.errors)
		p.parseStatement(prog)
		if len(p.errors) > before {
			p.synchronize()
		}
	}
	return prog
}

func (p *Parser) parseStatement(prog *Program) {
	switch p.curToken.Type {
	case TokenExtern:
		p.nextToken()
		if p.curTokenIs(TokenCrate) {
			p.nextToken()
			name, ok := p.parseName()
			if ok && p.expect(TokenSemicolon) {
				prog.ExternCrates = append(prog.ExternCrates, name)
			}
			return
		}
		name, ok := p.parseName()
		if ok && p.expect(TokenSemicolon) {
			prog.Externs = append(prog.Externs, name)
		}
	case TokenInst:
		p.nextToken()
		if inst, ok := p.parseInstanceDecl(); ok {
			prog.Instances = append(prog.Instances, inst)
		}
	case TokenImpl:
		p.nextToken()
		if impl, ok := p.parseImplementation(); ok {
			prog.Implementations = append(prog.Implementations, impl)
		}
	case TokenPub, TokenIdent:
		if def, ok := p.parseDefinition(); ok {
			prog.Definitions = append(prog.Definitions, def)
		}
	default:
		p.errorf("unexpected %s at start of statement", p.curToken)
	}
}

func (p *Parser) parseDefinition() (Definition, bool) {
	var def Definition
	if p.curTokenIs(TokenPub) {
		def.Public = true
		p.nextToken()
	}
	path, ok := p.parsePath()
	if !ok {
		return def, false
	}
	// A bare name reads back as an extern.
	if len(path) < 2 {
		p.errorf("definition %s must be crate-qualified", path)
		return def, false
	}
	if !p.expect(TokenAssign) {
		return def, false
	}
	def.Path = path
	if def.Inst, ok = p.parseInstancePath(); !ok {
		return def, false
	}
	if p.curTokenIs(TokenNullCall) {
		def.NeedsInit = true
		p.nextToken()
	}
	return def, p.expect(TokenSemicolon)
}

func (p *Parser) parseInstanceDecl() (Instance, bool) {
	var inst Instance
	var ok bool
	if inst.Path, ok = p.parseInstancePath(); !ok || !p.expect(TokenAssign) {
		return inst, false
	}
	if inst.Impl, ok = p.parseImplPath(); !ok || !p.expect(TokenLBracket) {
		return inst, false
	}
	for !p.curTokenIs(TokenRBracket) {
		if p.curTokenIs(TokenEOF) {
			p.errorf("unterminated capture list")
			return inst, false
		}
		c, ok := p.parseInstancePath()
		if !ok {
			return inst, false
		}
		inst.Captures = append(inst.Captures, c)
	}
	p.nextToken()
	return inst, p.expect(TokenSemicolon)
}

func (p *Parser) parseImplementation() (Implementation, bool) {
	var impl Implementation
	var ok bool
	if impl.Path, ok = p.parseImplPath(); !ok || !p.expect(TokenAssign) {
		return impl, false
	}
	first, ok := p.parseLiteral()
	if !ok {
		return impl, false
	}
	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
		impl.Body = BodyReturn
		impl.Value = first
		return impl, true
	}
	second, ok := p.parseLiteral()
	if !ok {
		return impl, false
	}
	impl.Fn, impl.Arg = first, second
	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
		impl.Body = BodyTailCall
		return impl, true
	}
	if !p.expect(TokenArrow) {
		return impl, false
	}
	if impl.Next, ok = p.parseLiteral(); !ok {
		return impl, false
	}
	impl.Body = BodyContinueCall
	return impl, p.expect(TokenSemicolon)
}

// ---------------------------------------------------------------------------
// Names, paths and literals
// ---------------------------------------------------------------------------

func (p *Parser) parseName() (string, bool) {
	if !p.curTokenIs(TokenIdent) {
		p.errorf("expected name, got %s", p.curToken)
		return "", false
	}
	name := p.curToken.Literal
	p.nextToken()
	return name, true
}

func (p *Parser) parseNumber() (int, bool) {
	if !p.curTokenIs(TokenIdent) {
		p.errorf("expected number, got %s", p.curToken)
		return 0, false
	}
	n, err := strconv.Atoi(p.curToken.Literal)
	if err != nil || n < 0 {
		p.errorf("invalid number %q", p.curToken.Literal)
		return 0, false
	}
	p.nextToken()
	return n, true
}

// parsePath parses NAME (:: NAME)*.
func (p *Parser) parsePath() (Path, bool) {
	name, ok := p.parseName()
	if !ok {
		return nil, false
	}
	path := Path{name}
	for p.curTokenIs(TokenPathSep) {
		p.nextToken()
		if name, ok = p.parseName(); !ok {
			return nil, false
		}
		path = append(path, name)
	}
	return path, true
}

func (p *Parser) parseInstancePath() (InstancePath, bool) {
	path, ok := p.parsePath()
	if !ok || !p.expect(TokenInstSep) {
		return InstancePath{}, false
	}
	id, ok := p.parseNumber()
	return InstancePath{Path: path, ID: id}, ok
}

func (p *Parser) parseImplPath() (ImplPath, bool) {
	path, ok := p.parsePath()
	if !ok {
		return ImplPath{}, false
	}
	return p.parseImplSuffix(path)
}

func (p *Parser) parseImplSuffix(path Path) (ImplPath, bool) {
	if !p.expect(TokenImplSep) {
		return ImplPath{}, false
	}
	lambda, ok := p.parseNumber()
	if !ok || !p.expect(TokenImplSep) {
		return ImplPath{}, false
	}
	cont, ok := p.parseNumber()
	return ImplPath{Path: path, Lambda: lambda, Cont: cont}, ok
}

// parseLiteral parses one body operand. A bare name is an extern; a
// multi-component path is a definition unless followed by % or !.
func (p *Parser) parseLiteral() (*Literal, bool) {
	if p.curTokenIs(TokenCapture) {
		p.nextToken()
		id, ok := p.parseNumber()
		return Capture(id), ok
	}

	path, ok := p.parsePath()
	if !ok {
		return nil, false
	}
	switch p.curToken.Type {
	case TokenInstSep:
		p.nextToken()
		id, ok := p.parseNumber()
		return Static(InstancePath{Path: path, ID: id}), ok
	case TokenImplSep:
		impl, ok := p.parseImplSuffix(path)
		if !ok {
			return nil, false
		}
		caps, ok := p.parseCaptureList()
		return Construct(impl, caps...), ok
	}
	if len(path) == 1 {
		return Extern(path[0]), true
	}
	return Global(path), true
}

// parseCaptureList parses [ ($N | INSTPATH)* ].
func (p *Parser) parseCaptureList() ([]CaptureRef, bool) {
	if !p.expect(TokenLBracket) {
		return nil, false
	}
	var caps []CaptureRef
	for !p.curTokenIs(TokenRBracket) {
		switch p.curToken.Type {
		case TokenCapture:
			p.nextToken()
			id, ok := p.parseNumber()
			if !ok {
				return nil, false
			}
			caps = append(caps, CaptureRef{ID: id})
		case TokenIdent:
			inst, ok := p.parseInstancePath()
			if !ok {
				return nil, false
			}
			caps = append(caps, CaptureRef{Inst: &inst})
		default:
			p.errorf("expected capture or instance, got %s", p.curToken)
			return nil, false
		}
	}
	p.nextToken()
	return caps, true
}
