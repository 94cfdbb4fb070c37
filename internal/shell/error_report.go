package shell

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"minish/internal/executor"
)

// ErrorReporter 错误报告器
type ErrorReporter struct {
	w      io.Writer
	prefix *color.Color

	scriptPath string // 脚本文件路径（如果是在执行脚本）
	lineNum    int    // 当前行号
}

// NewErrorReporter 创建新的错误报告器
// mode 为 auto、always 或 never，auto 时只在终端上使用颜色
func NewErrorReporter(w io.Writer, mode string) *ErrorReporter {
	prefix := color.New(color.FgRed, color.Bold)
	switch mode {
	case "always":
		prefix.EnableColor()
	case "never":
		prefix.DisableColor()
	default:
		if isTerminal(w) {
			prefix.EnableColor()
		} else {
			prefix.DisableColor()
		}
	}
	return &ErrorReporter{w: w, prefix: prefix}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SetScript 设置正在执行的脚本，空路径表示交互或 -c 模式
func (er *ErrorReporter) SetScript(path string) {
	er.scriptPath = path
	er.lineNum = 0
}

// SetLineNum 设置当前行号
func (er *ErrorReporter) SetLineNum(lineNum int) {
	er.lineNum = lineNum
}

// ReportError 报告错误，格式为 minish: [脚本: 第N行: ]消息
func (er *ErrorReporter) ReportError(err error) {
	if err == nil {
		return
	}

	// errors.Join 的每个错误单独一行
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			er.ReportError(e)
		}
		return
	}

	// 超时和中断已经在发生时提示过
	var execErr *executor.ExecutionError
	if errors.As(err, &execErr) && execErr.Notified() {
		return
	}

	location := ""
	if er.scriptPath != "" {
		if er.lineNum > 0 {
			location = fmt.Sprintf("%s: 第%d行: ", er.scriptPath, er.lineNum)
		} else {
			location = er.scriptPath + ": "
		}
	}

	fmt.Fprintf(er.w, "%s %s%v\n", er.prefix.Sprint("minish:"), location, err)
}
