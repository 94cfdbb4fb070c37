package parser

import (
	"fmt"
)

// ParseError 表示解析错误，只中止当前这一行
type ParseError struct {
	Type     ErrorType
	Message  string
	Token    string // 出错位置的参数
	Position int    // 参数序号，从1开始
	Expected string // 期望的内容
}

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSyntax       ErrorType = iota // 语法错误
	ErrorTypeMissingToken                  // 缺少 token
	ErrorTypeEmptyCommand                  // 没有可执行的命令
)

// Error 实现 error 接口
func (e *ParseError) Error() string {
	msg := "语法错误: " + e.Message
	if e.Position > 0 {
		msg = fmt.Sprintf("语法错误: 第%d个参数: %s", e.Position, e.Message)
	}
	if e.Expected != "" {
		msg += "，期望 " + e.Expected
	}
	if e.Token != "" {
		msg += "，得到 " + e.Token
	}
	return msg
}

// newParseError 创建解析错误，i 是参数下标
func newParseError(errType ErrorType, message string, args []string, i int, expected string) *ParseError {
	err := &ParseError{
		Type:     errType,
		Message:  message,
		Position: i + 1,
		Expected: expected,
	}
	if i >= 0 && i < len(args) {
		err.Token = args[i]
	}
	return err
}
