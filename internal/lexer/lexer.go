// Package lexer 提供词法分析功能，将一行输入分解为参数向量
package lexer

import (
	"unicode/utf8"

	"minish/internal/environ"
)

const (
	// MaxLineLen 一行输入的最大字节数（含结束符）
	MaxLineLen = 1024
	// MaxArgs 参数向量的容量，最后一个位置留给结束标记
	MaxArgs = 128
)

// Lexer 词法分析器
// 只按空格、制表符、回车、换行分词，不处理引号和转义
type Lexer struct {
	input        string
	position     int  // 当前位置
	readPosition int  // 读取位置
	ch           byte // 当前字符
	column       int  // 当前列号
}

// New 创建新的词法分析器
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar 读取下一个字符
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// atEOF 是否已读完输入
func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

// NextToken 读取下一个token
func (l *Lexer) NextToken() Token {
	l.skipDelimiters()

	tok := Token{Column: l.column}
	if l.atEOF() {
		tok.Type = EOF
		return tok
	}

	word := l.readWord()
	switch {
	case word[0] == '$':
		tok.Type = VAR
		tok.Literal = word[1:]
	default:
		tok.Type = LookupOperator(word)
		tok.Literal = word
	}
	return tok
}

// readWord 读取到下一个分隔符为止
func (l *Lexer) readWord() string {
	start := l.position
	for !l.atEOF() && !isDelimiter(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// skipDelimiters 跳过分隔符
func (l *Lexer) skipDelimiters() {
	for !l.atEOF() && isDelimiter(l.ch) {
		l.readChar()
	}
}

// isDelimiter 判断是否为分隔符
func isDelimiter(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

// Tokenize 把一行输入分解为参数向量，并就地展开 $NAME
//
// 超过 MaxLineLen-1 字节的部分被丢弃（不拆开多字节字符），超过 MaxArgs-1 个的参数
// 也被丢弃，都不视为错误。未设置的变量展开为空字符串。
func Tokenize(line string, env environ.Getter) []string {
	line = truncateLine(line)

	l := New(line)
	var args []string
	for len(args) < MaxArgs-1 {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
		if tok.Type == VAR {
			args = append(args, environ.Getenv(env, tok.Literal))
			continue
		}
		args = append(args, tok.Literal)
	}
	return args
}

// truncateLine 截断到 MaxLineLen-1 字节以内，截断点落在字符中间时向前退到字符边界
func truncateLine(line string) string {
	if len(line) <= MaxLineLen-1 {
		return line
	}
	cut := MaxLineLen - 1
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut]
}
