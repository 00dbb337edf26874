package validator

import "strings"

type tokenKind int

const (
	tokenWord   tokenKind = iota // unquoted identifier or keyword
	tokenQuoted                  // "quoted identifier", quotes stripped
	tokenNumber
	tokenSymbol
)

type token struct {
	text string
	kind tokenKind
}

// normalize strips comments and blanks string literal contents so that
// quoted text cannot masquerade as keywords or identifiers.
func normalize(stmt string) string {
	var b strings.Builder
	runes := []rune(stmt)

	for i := 0; i < len(runes); i++ {
		switch {
		case runes[i] == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			b.WriteRune(' ')
		case runes[i] == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++ // lands on '/', loop increment moves past it
			b.WriteRune(' ')
		case runes[i] == '\'':
			// Blank the literal, honoring doubled-quote escapes.
			i++
			for i < len(runes) {
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						i += 2
						continue
					}
					break
				}
				i++
			}
			b.WriteString("''")
		default:
			b.WriteRune(runes[i])
		}
	}

	return b.String()
}

// tokenize splits normalized SQL into the tokens the validator cares
// about. Operators other than the structural ones are dropped.
func tokenize(stmt string) []token {
	var tokens []token
	runes := []rune(stmt)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case isWordStart(r):
			start := i
			for i+1 < len(runes) && isWordPart(runes[i+1]) {
				i++
			}
			tokens = append(tokens, token{string(runes[start : i+1]), tokenWord})
		case r >= '0' && r <= '9':
			start := i
			for i+1 < len(runes) && (isWordPart(runes[i+1]) || runes[i+1] == '.') {
				i++
			}
			tokens = append(tokens, token{string(runes[start : i+1]), tokenNumber})
		case r == '"':
			start := i + 1
			for i+1 < len(runes) && runes[i+1] != '"' {
				i++
			}
			tokens = append(tokens, token{string(runes[start : i+1]), tokenQuoted})
			i++ // closing quote
		case r == '(' || r == ')' || r == '.' || r == ',' || r == ';' || r == '*':
			tokens = append(tokens, token{string(r), tokenSymbol})
		}
	}

	return tokens
}

func isWordStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isWordPart(r rune) bool {
	return isWordStart(r) || r == '$' || (r >= '0' && r <= '9')
}
