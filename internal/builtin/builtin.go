// Package builtin 实现在解释器进程内直接执行的内置命令
//
// 内置命令不创建子进程，也不处理重定向、管道和后台标记。
package builtin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"minish/internal/environ"
)

// ErrExit 由 exit 返回，调用方据此结束读取循环
var ErrExit = errors.New("exit")

// Context 内置命令的执行上下文
type Context struct {
	Env    environ.Env
	Stdout io.Writer
	Stderr io.Writer
}

// BuiltinFunc 内置命令函数类型，args 不包含命令名
type BuiltinFunc func(ctx *Context, args []string) error

var builtins map[string]BuiltinFunc

func init() {
	builtins = map[string]BuiltinFunc{
		"exit":   exit,
		"cd":     cd,
		"pwd":    pwd,
		"echo":   echo,
		"env":    env,
		"setenv": setenv,
	}
}

// Lookup 按名称查找内置命令
func Lookup(name string) (BuiltinFunc, bool) {
	fn, ok := builtins[name]
	return fn, ok
}

// IsBuiltin 判断是否为内置命令
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// Names 返回排序后的内置命令名称
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// exit 结束读取循环
func exit(ctx *Context, args []string) error {
	return ErrExit
}

// cd 改变目录
// 没有参数时切换到 HOME，HOME 未设置则什么也不做
func cd(ctx *Context, args []string) error {
	var dir string
	if len(args) == 0 {
		home, ok := ctx.Env.Lookup("HOME")
		if !ok {
			return nil
		}
		dir = home
	} else {
		dir = args[0]
	}

	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("cd: %w", err)
	}

	// 更新PWD环境变量
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cd: %w", err)
	}
	return ctx.Env.Set("PWD", wd)
}

// pwd 打印当前工作目录
func pwd(ctx *Context, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("pwd: %w", err)
	}
	_, err = fmt.Fprintln(ctx.Stdout, dir)
	return err
}

// echo 用空格连接参数并打印
func echo(ctx *Context, args []string) error {
	_, err := fmt.Fprintln(ctx.Stdout, strings.Join(args, " "))
	return err
}

// env 没有参数时打印全部变量，否则打印指定变量的值
func env(ctx *Context, args []string) error {
	if len(args) > 0 {
		if value, ok := ctx.Env.Lookup(args[0]); ok {
			_, err := fmt.Fprintln(ctx.Stdout, value)
			return err
		}
		return nil
	}

	for _, v := range ctx.Env.All() {
		if _, err := fmt.Fprintln(ctx.Stdout, v.String()); err != nil {
			return err
		}
	}
	return nil
}

// setenv NAME=VALUE，在第一个 = 处分割并覆盖已有值
// 缺少 = 或名称为空时静默忽略
func setenv(ctx *Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	name, value, ok := strings.Cut(args[0], "=")
	if !ok || name == "" {
		return nil
	}
	if err := ctx.Env.Set(name, value); err != nil {
		return fmt.Errorf("setenv: %w", err)
	}
	return nil
}
