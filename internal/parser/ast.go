package parser

import (
	"strings"

	"minish/internal/lexer"
)

// Kind 命令种类
type Kind int

const (
	KindExternal Kind = iota // 外部程序
	KindBuiltin              // 内置命令
	KindPipeline             // 两级管道
)

func (k Kind) String() string {
	switch k {
	case KindExternal:
		return "external"
	case KindBuiltin:
		return "builtin"
	case KindPipeline:
		return "pipeline"
	default:
		return "unknown"
	}
}

// Command 一行输入的解析结果，Parse 返回之后不再修改
type Command struct {
	Kind Kind
	// Args 程序名和参数。外部命令已截去重定向部分；管道时是第一级
	Args      []string
	Redirects []*Redirect
	// Background 行尾带有 &，只对外部命令生效
	Background bool
	// Pipe 管道的第二级
	Pipe *Command
}

// Name 返回命令名
func (c *Command) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// Redirect 查找指定类型的重定向
func (c *Command) Redirect(typ RedirectType) (*Redirect, bool) {
	for _, r := range c.Redirects {
		if r.Type == typ {
			return r, true
		}
	}
	return nil, false
}

func (c *Command) String() string {
	var out strings.Builder
	out.WriteString(strings.Join(c.Args, " "))
	for _, r := range c.Redirects {
		out.WriteString(" ")
		out.WriteString(r.String())
	}
	if c.Pipe != nil {
		out.WriteString(" | ")
		out.WriteString(c.Pipe.String())
	}
	if c.Background {
		out.WriteString(" &")
	}
	return out.String()
}

// Redirect 重定向
type Redirect struct {
	Type   RedirectType
	FD     int // 0=stdin, 1=stdout
	Target string
}

func (r *Redirect) String() string {
	return r.Type.Operator() + " " + r.Target
}

// RedirectType 重定向类型
type RedirectType int

const (
	REDIRECT_INPUT RedirectType = iota
	REDIRECT_OUTPUT
)

// Operator 返回重定向操作符
func (t RedirectType) Operator() string {
	if t == REDIRECT_INPUT {
		return lexer.OpRedirectIn
	}
	return lexer.OpRedirectOut
}
