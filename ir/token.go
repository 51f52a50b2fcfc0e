package ir

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the IR lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError

	TokenIdent // foo, 0, 1st

	TokenAssign    // =
	TokenSemicolon // ;
	TokenArrow     // ->
	TokenPathSep   // ::
	TokenImplSep   // !
	TokenInstSep   // %
	TokenNullCall  // $$
	TokenCapture   // $
	TokenLBracket  // [
	TokenRBracket  // ]

	TokenPub
	TokenExtern
	TokenCrate
	TokenInst
	TokenImpl
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenError:     "ERROR",
	TokenIdent:     "IDENT",
	TokenAssign:    "=",
	TokenSemicolon: ";",
	TokenArrow:     "->",
	TokenPathSep:   "::",
	TokenImplSep:   "!",
	TokenInstSep:   "%",
	TokenNullCall:  "$$",
	TokenCapture:   "$",
	TokenLBracket:  "[",
	TokenRBracket:  "]",
	TokenPub:       "pub",
	TokenExtern:    "extern",
	TokenCrate:     "crate",
	TokenInst:      "inst",
	TokenImpl:      "impl",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"pub":    TokenPub,
	"extern": TokenExtern,
	"crate":  TokenCrate,
	"inst":   TokenInst,
	"impl":   TokenImpl,
}

// IsKeyword reports whether s is reserved and cannot be a path component.
func IsKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}

// Position is a location in the source text.
type Position struct {
	Offset int
	Line   int // 1-based
	Column int // 1-based
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) String() string {
	if t.Literal == "" {
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}
