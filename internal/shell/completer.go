package shell

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"minish/internal/builtin"
	"minish/internal/environ"
	"minish/internal/lexer"
)

// Completer 实现readline的自动补全接口
// 返回的候选项是前缀之后需要补上的部分
type Completer struct {
	env environ.Env
}

// NewCompleter 创建新的补全器
func NewCompleter(env environ.Env) *Completer {
	return &Completer{env: env}
}

// Do 执行自动补全
func (c *Completer) Do(line []rune, pos int) (newLine [][]rune, length int) {
	lineStr := string(line[:pos])
	parts := strings.Fields(lineStr)

	// 光标前是空白时开始一个新单词
	current := ""
	if len(parts) > 0 && !strings.HasSuffix(lineStr, " ") && !strings.HasSuffix(lineStr, "\t") {
		current = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}

	switch {
	case strings.HasPrefix(current, "$"):
		return c.completeVariables(current)
	case len(parts) == 0 || parts[len(parts)-1] == lexer.OpPipe:
		return c.completeCommands(current)
	default:
		return c.completeFiles(current)
	}
}

// completeCommands 补全内置命令和 PATH 中的程序
func (c *Completer) completeCommands(prefix string) ([][]rune, int) {
	if strings.Contains(prefix, "/") {
		return c.completeFiles(prefix)
	}

	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, name := range builtin.Names() {
		add(name)
	}

	pathEnv, _ := c.env.Lookup("PATH")
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			add(entry.Name())
		}
	}

	sort.Strings(names)
	return suffixes(names, prefix, " "), runeLen(prefix)
}

// completeVariables 补全环境变量
func (c *Completer) completeVariables(prefix string) ([][]rune, int) {
	varName := strings.TrimPrefix(prefix, "$")

	var names []string
	for _, v := range c.env.All() {
		if strings.HasPrefix(v.Name, varName) {
			names = append(names, v.Name)
		}
	}

	sort.Strings(names)
	return suffixes(names, varName, " "), runeLen(varName)
}

// completeFiles 补全文件名，目录以 / 结尾
func (c *Completer) completeFiles(prefix string) ([][]rune, int) {
	dir, pattern := ".", prefix
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		dir, pattern = prefix[:i+1], prefix[i+1:]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, runeLen(pattern)
	}

	var matches [][]rune
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, pattern) {
			continue
		}
		// 以 . 开头的文件只在明确输入 . 时补全
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(pattern, ".") {
			continue
		}
		suffix := name[len(pattern):]
		if entry.IsDir() {
			suffix += "/"
		} else {
			suffix += " "
		}
		matches = append(matches, []rune(suffix))
	}
	return matches, runeLen(pattern)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func suffixes(names []string, prefix, terminator string) [][]rune {
	out := make([][]rune, 0, len(names))
	for _, name := range names {
		out = append(out, []rune(name[len(prefix):]+terminator))
	}
	return out
}
