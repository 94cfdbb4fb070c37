package lexer

// TokenType 表示token的类型
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	WORD // 普通单词
	VAR  // $NAME，整个单词以 $ 开头

	// 操作符，只有独立成词时才识别
	PIPE         // |
	REDIRECT_OUT // >
	REDIRECT_IN  // <
	AMPERSAND    // &
)

// 操作符字面量
const (
	OpPipe        = "|"
	OpRedirectOut = ">"
	OpRedirectIn  = "<"
	OpBackground  = "&"
)

// Token 表示一个词法单元
type Token struct {
	Type    TokenType
	Literal string // VAR 类型只保存变量名，不含 $
	Column  int
}

// String 返回token的字符串表示
func (t TokenType) String() string {
	switch t {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case WORD:
		return "WORD"
	case VAR:
		return "VAR"
	case PIPE:
		return "PIPE"
	case REDIRECT_OUT:
		return "REDIRECT_OUT"
	case REDIRECT_IN:
		return "REDIRECT_IN"
	case AMPERSAND:
		return "AMPERSAND"
	default:
		return "UNKNOWN"
	}
}

// 操作符映射
var operators = map[string]TokenType{
	OpPipe:        PIPE,
	OpRedirectOut: REDIRECT_OUT,
	OpRedirectIn:  REDIRECT_IN,
	OpBackground:  AMPERSAND,
}

// LookupOperator 检查单词是否为操作符
// 参数展开之后的值同样按字面比较，因此 $X 展开为 "|" 时也会被当作管道
func LookupOperator(word string) TokenType {
	if tok, ok := operators[word]; ok {
		return tok
	}
	return WORD
}
