package sql

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

type Token struct {
	Type  TokenType
	Value string
}

type TokenType int

const (
	Word TokenType = iota
	String
	Equals
	Comma
	ParenOpen
	ParenClose
	EOF
)

func (t TokenType) String() string {
	switch t {
	case Word:
		return "Word"
	case String:
		return "String"
	case Equals:
		return "Equals"
	case Comma:
		return "Comma"
	case ParenOpen:
		return "ParenOpen"
	case ParenClose:
		return "ParenClose"
	case EOF:
		return "EOF"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// commandLexer splits a command line. Order matters: quoted strings must be
// tried before bare words.
var commandLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Equals", Pattern: `=`},
	{Name: "Comma", Pattern: `,`},
	{Name: "ParenOpen", Pattern: `\(`},
	{Name: "ParenClose", Pattern: `\)`},
	{Name: "Word", Pattern: `[^\s=,()"']+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var tokenTypes = func() map[lexer.TokenType]TokenType {
	symbols := commandLexer.Symbols()
	return map[lexer.TokenType]TokenType{
		symbols["String"]:     String,
		symbols["Equals"]:     Equals,
		symbols["Comma"]:      Comma,
		symbols["ParenOpen"]:  ParenOpen,
		symbols["ParenClose"]: ParenClose,
		symbols["Word"]:       Word,
		lexer.EOF:             EOF,
	}
}()

// Tokenize splits input into tokens, dropping whitespace. The returned
// slice always ends with an EOF token.
func Tokenize(input string) ([]Token, error) {
	lex, err := commandLexer.LexString("", input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v (check that quotes are paired)", ErrSyntax, err)
	}

	tokens := make([]Token, 0, len(raw))
	for _, token := range raw {
		tokenType, known := tokenTypes[token.Type]
		if !known {
			continue // whitespace
		}

		value := token.Value
		if tokenType == String {
			value = unquote(value)
		}
		tokens = append(tokens, Token{Type: tokenType, Value: value})
	}

	return tokens, nil
}

// unquote strips the surrounding quotes and resolves backslash escapes.
func unquote(quoted string) string {
	inner := quoted[1 : len(quoted)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}

	var builder strings.Builder
	escaped := false
	for _, r := range inner {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		builder.WriteRune(r)
	}
	return builder.String()
}

// Lexer walks a pre-tokenized command line.
type Lexer struct {
	tokens []Token
	pos    int
	err    error
}

// NewLexer tokenizes input. A tokenizing error is reported by Err and the
// lexer then yields only EOF.
func NewLexer(input string) *Lexer {
	tokens, err := Tokenize(input)
	if err != nil {
		return &Lexer{tokens: []Token{{Type: EOF}}, err: err}
	}
	return &Lexer{tokens: tokens}
}

func (lexer *Lexer) Err() error {
	return lexer.err
}

func (lexer *Lexer) NextToken() Token {
	token := lexer.PeekToken()
	if lexer.pos < len(lexer.tokens)-1 {
		lexer.pos++
	}
	return token
}

func (lexer *Lexer) PeekToken() Token {
	if lexer.pos >= len(lexer.tokens) {
		return Token{Type: EOF}
	}
	return lexer.tokens[lexer.pos]
}

// Remaining returns the tokens not yet consumed, EOF included.
func (lexer *Lexer) Remaining() []Token {
	if lexer.pos >= len(lexer.tokens) {
		return []Token{{Type: EOF}}
	}
	return lexer.tokens[lexer.pos:]
}

// isKeyword reports whether token is the bare word keyword, ignoring case.
func isKeyword(token Token, keyword string) bool {
	return token.Type == Word && strings.EqualFold(token.Value, keyword)
}

func isValue(token Token) bool {
	return token.Type == Word || token.Type == String
}
