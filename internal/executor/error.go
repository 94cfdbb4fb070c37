package executor

import (
	"errors"
	"fmt"
	"strings"
)

// ExecutionErrorType 执行器错误类型
type ExecutionErrorType int

const (
	ExecutionErrorTypeCommandNotFound ExecutionErrorType = iota // 命令未找到
	ExecutionErrorTypeStartFailed                                // 进程创建失败
	ExecutionErrorTypeRedirectError                              // 重定向错误
	ExecutionErrorTypePipeError                                  // 管道错误
	ExecutionErrorTypeTimeout                                    // 超过执行时间上限
	ExecutionErrorTypeInterrupted                                // 命令被中断
)

// ExecutionError 表示执行器错误
type ExecutionError struct {
	Type        ExecutionErrorType
	Message     string
	Command     string   // 命令名
	Args        []string // 命令参数
	exitCode    int      // 退出码（如果可用）
	OriginalErr error    // 原始错误（如果可用）
}

// Error 实现 error 接口
func (e *ExecutionError) Error() string {
	var msg string
	switch e.Type {
	case ExecutionErrorTypeCommandNotFound:
		msg = fmt.Sprintf("命令未找到: %s", e.Command)
	case ExecutionErrorTypeStartFailed:
		msg = fmt.Sprintf("无法启动命令: %s", e.Command)
	case ExecutionErrorTypeRedirectError:
		msg = "重定向错误"
	case ExecutionErrorTypePipeError:
		msg = "管道错误"
	case ExecutionErrorTypeTimeout:
		msg = fmt.Sprintf("命令超时被终止: %s", e.Command)
	case ExecutionErrorTypeInterrupted:
		msg = "命令被中断"
	default:
		msg = e.Message
	}

	// 重定向和管道错误附带说明和完整命令
	if e.Type == ExecutionErrorTypeRedirectError || e.Type == ExecutionErrorTypePipeError {
		if e.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, e.Message)
		}
		if e.Command != "" {
			cmdStr := e.Command
			if len(e.Args) > 0 {
				cmdStr += " " + strings.Join(e.Args, " ")
			}
			msg = fmt.Sprintf("%s: %s", msg, cmdStr)
		}
	}

	// 添加原始错误信息
	if e.OriginalErr != nil && e.Type != ExecutionErrorTypeCommandNotFound {
		msg = fmt.Sprintf("%s: %v", msg, e.OriginalErr)
	}

	return msg
}

// Unwrap 返回原始错误
func (e *ExecutionError) Unwrap() error {
	return e.OriginalErr
}

// ExitCode 返回退出码
func (e *ExecutionError) ExitCode() int {
	if e.exitCode != 0 {
		return e.exitCode
	}
	// 根据错误类型返回默认退出码
	switch e.Type {
	case ExecutionErrorTypeCommandNotFound:
		return 127 // bash 中命令未找到的退出码
	case ExecutionErrorTypeStartFailed:
		return 126
	case ExecutionErrorTypeTimeout:
		return 137 // 128 + SIGKILL
	case ExecutionErrorTypeInterrupted:
		return 130 // bash 中被中断的退出码
	default:
		return 1
	}
}

// Notified 报告错误是否已经以其他方式告知用户，调用方不必再打印
func (e *ExecutionError) Notified() bool {
	return e.Type == ExecutionErrorTypeTimeout || e.Type == ExecutionErrorTypeInterrupted
}

// String 返回错误的字符串表示
func (e *ExecutionError) String() string {
	return e.Error()
}

// IsType 判断 err 链中是否有指定类型的执行器错误
func IsType(err error, errType ExecutionErrorType) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr) && execErr.Type == errType
}

// newExecutionError 创建新的执行器错误
func newExecutionError(errType ExecutionErrorType, message string, command string, args []string, originalErr error) *ExecutionError {
	return &ExecutionError{
		Type:        errType,
		Message:     message,
		Command:     command,
		Args:        args,
		OriginalErr: originalErr,
	}
}
