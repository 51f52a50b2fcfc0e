package ir

// ---------------------------------------------------------------------------
// Lexer: tokenizer for the IR text syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes IR source. The syntax is pure ASCII, so the lexer works
// on bytes.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current character, 0 at EOF
	line    int
	col     int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
	} else {
		l.ch = l.input[l.readPos]
		l.pos = l.readPos
	}
	l.readPos++
	l.col++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func isIdentChar(ch byte) bool {
	return ch == '_' ||
		('a' <= ch && ch <= 'z') ||
		('A' <= ch && ch <= 'Z') ||
		('0' <= ch && ch <= '9')
}

// IsIdent reports whether s is a valid path component.
func IsIdent(s string) bool {
	if s == "" || IsKeyword(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()
	single := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}
	}

	switch {
	case l.pos >= len(l.input):
		return Token{Type: TokenEOF, Pos: pos}
	case l.ch == '=':
		return single(TokenAssign)
	case l.ch == ';':
		return single(TokenSemicolon)
	case l.ch == '!':
		return single(TokenImplSep)
	case l.ch == '%':
		return single(TokenInstSep)
	case l.ch == '[':
		return single(TokenLBracket)
	case l.ch == ']':
		return single(TokenRBracket)
	case l.ch == '-' && l.peekChar() == '>':
		l.readChar()
		l.readChar()
		return Token{Type: TokenArrow, Literal: "->", Pos: pos}
	case l.ch == ':' && l.peekChar() == ':':
		l.readChar()
		l.readChar()
		return Token{Type: TokenPathSep, Literal: "::", Pos: pos}
	case l.ch == '$':
		if l.peekChar() == '$' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenNullCall, Literal: "$$", Pos: pos}
		}
		return single(TokenCapture)
	case isIdentChar(l.ch):
		start := l.pos
		for isIdentChar(l.ch) && l.pos < len(l.input) {
			l.readChar()
		}
		word := l.input[start:l.pos]
		if kw, ok := keywords[word]; ok {
			return Token{Type: kw, Literal: word, Pos: pos}
		}
		return Token{Type: TokenIdent, Literal: word, Pos: pos}
	}

	return single(TokenError)
}

// Tokenize returns all tokens up to and including EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}
