// Package parser 把参数向量分类为内置命令、管道或外部命令
package parser

import (
	"minish/internal/builtin"
	"minish/internal/lexer"
)

// Parse 按以下顺序分类参数向量：
//  1. 最后一个参数为 & 时设置后台标记并去掉它
//  2. 内置命令，其余参数原样传入
//  3. 第一个 | 把命令分成两级管道
//  4. 其他都是外部命令，识别第一个 > 和第一个 <
//
// 空参数向量返回 nil, nil。
func Parse(args []string) (*Command, error) {
	if len(args) == 0 {
		return nil, nil
	}

	cmd := &Command{}
	if last := len(args) - 1; args[last] == lexer.OpBackground {
		cmd.Background = true
		args = args[:last]
		if len(args) == 0 {
			return nil, newParseError(ErrorTypeEmptyCommand, "后台标记前没有命令", []string{lexer.OpBackground}, 0, "命令")
		}
	}

	if builtin.IsBuiltin(args[0]) {
		cmd.Kind = KindBuiltin
		cmd.Args = args
		return cmd, nil
	}

	if i := indexOf(args, lexer.OpPipe); i >= 0 {
		return parsePipeline(cmd, args, i)
	}

	return parseExternal(cmd, args)
}

// parsePipeline 在下标 split 处切分管道，第二级中的 | 和重定向符号都按字面传递
func parsePipeline(cmd *Command, args []string, split int) (*Command, error) {
	if split == 0 {
		return nil, newParseError(ErrorTypeMissingToken, "管道前缺少命令", args, split, "命令")
	}
	if split == len(args)-1 {
		return nil, newParseError(ErrorTypeMissingToken, "管道后缺少命令", args, split, "命令")
	}

	cmd.Kind = KindPipeline
	cmd.Args = args[:split]
	cmd.Pipe = &Command{
		Kind: KindExternal,
		Args: args[split+1:],
	}
	return cmd, nil
}

// parseExternal 识别重定向，程序参数截止到第一个被识别的操作符
func parseExternal(cmd *Command, args []string) (*Command, error) {
	cut := len(args)
	for i := 0; i < len(args); i++ {
		var typ RedirectType
		switch lexer.LookupOperator(args[i]) {
		case lexer.REDIRECT_OUT:
			typ = REDIRECT_OUTPUT
		case lexer.REDIRECT_IN:
			typ = REDIRECT_INPUT
		default:
			continue
		}
		if _, seen := cmd.Redirect(typ); seen {
			continue
		}
		if i+1 >= len(args) {
			return nil, newParseError(ErrorTypeMissingToken, "重定向缺少文件名", args, i, "文件名")
		}

		fd := 1
		if typ == REDIRECT_INPUT {
			fd = 0
		}
		cmd.Redirects = append(cmd.Redirects, &Redirect{Type: typ, FD: fd, Target: args[i+1]})
		if i < cut {
			cut = i
		}
		// 跳过文件名
		i++
	}

	if cut == 0 {
		return nil, newParseError(ErrorTypeEmptyCommand, "重定向前没有命令", args, 0, "命令")
	}

	cmd.Kind = KindExternal
	cmd.Args = args[:cut]
	return cmd, nil
}

func indexOf(args []string, word string) int {
	for i, arg := range args {
		if arg == word {
			return i
		}
	}
	return -1
}
