package datum

import "fmt"

// Reader parses a token stream into Datum trees, one top-level datum at a
// time, by recursive descent over nested parens, vectors, and the four
// reader abbreviations.
type Reader struct {
	lexer *Lexer
	tok   Token
	have  bool
}

func NewReader(input string, trace ...bool) *Reader {
	return &Reader{lexer: NewLexer(input, trace...)}
}

func (r *Reader) next() (Token, error) {
	if r.have {
		r.have = false
		return r.tok, nil
	}
	return r.lexer.NextToken()
}

func (r *Reader) peekTok() (Token, error) {
	if !r.have {
		t, err := r.lexer.NextToken()
		if err != nil {
			return Token{}, err
		}
		r.tok = t
		r.have = true
	}
	return r.tok, nil
}

// ReadAll reads every top-level datum in the input.
func (r *Reader) ReadAll() ([]*Datum, error) {
	var data []*Datum
	for {
		d, err := r.Read()
		if err != nil {
			return nil, err
		}
		if d == nil {
			return data, nil
		}
		data = append(data, d)
	}
}

// Read reads one top-level datum, or returns (nil, nil) at end of input.
func (r *Reader) Read() (*Datum, error) {
	tok, err := r.next()
	if err != nil {
		return nil, err
	}
	return r.readFrom(tok)
}

func (r *Reader) readFrom(tok Token) (*Datum, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, nil
	case TokenNumber:
		n, err := parseNumber(tok.Value)
		if err != nil {
			return nil, fmt.Errorf("malformed number %q at line %d", tok.Value, tok.Line)
		}
		return Number(n), nil
	case TokenString:
		return String(tok.Value), nil
	case TokenBool:
		return Bool(tok.Value == "t"), nil
	case TokenChar:
		return Char(charFromToken(tok.Value)), nil
	case TokenSymbol:
		return Symbol(tok.Value), nil
	case TokenLParen:
		return r.readList()
	case TokenVectorOpen:
		return r.readVector()
	case TokenQuote:
		return r.readAbbreviation(AbbrevQuote, tok)
	case TokenQuasiquote:
		return r.readAbbreviation(AbbrevQuasiquote, tok)
	case TokenUnquote:
		return r.readAbbreviation(AbbrevUnquote, tok)
	case TokenUnquoteSplicing:
		return r.readAbbreviation(AbbrevUnquoteSplicing, tok)
	case TokenRParen:
		return nil, fmt.Errorf("unexpected %q at line %d, column %d", ")", tok.Line, tok.Column)
	case TokenDot:
		return nil, fmt.Errorf("unexpected %q at line %d, column %d", ".", tok.Line, tok.Column)
	default:
		return nil, fmt.Errorf("unrecognized token at line %d, column %d", tok.Line, tok.Column)
	}
}

func charFromToken(s string) rune {
	if len(s) == 1 {
		return rune(s[0])
	}
	if r, ok := namedChars[s]; ok {
		return r
	}
	return rune(s[0])
}

func (r *Reader) readAbbreviation(kind AbbrevKind, tok Token) (*Datum, error) {
	child, err := r.Read()
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, fmt.Errorf("%s at line %d, column %d missing its datum", abbrevPrefixFor(kind), tok.Line, tok.Column)
	}
	return Abbreviation(kind, child), nil
}

func abbrevPrefixFor(kind AbbrevKind) string {
	switch kind {
	case AbbrevQuote:
		return "'"
	case AbbrevQuasiquote:
		return "`"
	case AbbrevUnquote:
		return ","
	case AbbrevUnquoteSplicing:
		return ",@"
	default:
		return "?"
	}
}

// readList parses the contents of a parenthesized form, including the
// dotted-tail `(a b . c)` shape, after the opening paren has already been
// consumed.
func (r *Reader) readList() (*Datum, error) {
	var elems []*Datum
	for {
		tok, err := r.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenRParen:
			return List(elems...), nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected end of input inside list starting at line %d", tok.Line)
		case TokenDot:
			tail, err := r.Read()
			if err != nil {
				return nil, err
			}
			if tail == nil {
				return nil, fmt.Errorf("missing datum after . at line %d", tok.Line)
			}
			closeTok, err := r.next()
			if err != nil {
				return nil, err
			}
			if closeTok.Type != TokenRParen {
				return nil, fmt.Errorf("expected ) after dotted tail at line %d", closeTok.Line)
			}
			return ImproperList(tail, elems...), nil
		default:
			d, err := r.readFrom(tok)
			if err != nil {
				return nil, err
			}
			elems = append(elems, d)
		}
	}
}

func (r *Reader) readVector() (*Datum, error) {
	var elems []*Datum
	for {
		tok, err := r.next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenRParen:
			return Vector(elems), nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected end of input inside vector starting at line %d", tok.Line)
		default:
			d, err := r.readFrom(tok)
			if err != nil {
				return nil, err
			}
			elems = append(elems, d)
		}
	}
}
