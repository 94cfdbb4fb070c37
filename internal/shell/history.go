package shell

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// History 命令历史管理器
type History struct {
	fs       afero.Fs
	path     string // 为空时不读写文件
	commands []string
	maxSize  int
}

// NewHistory 创建新的历史管理器
func NewHistory(fsys afero.Fs, path string, maxSize int) *History {
	return &History{
		fs:       fsys,
		path:     path,
		commands: make([]string, 0, maxSize),
		maxSize:  maxSize,
	}
}

// Add 添加命令到历史
func (h *History) Add(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" || h.maxSize == 0 {
		return
	}

	// 避免重复添加相同的命令
	if len(h.commands) > 0 && h.commands[len(h.commands)-1] == cmd {
		return
	}

	h.commands = append(h.commands, cmd)
	if len(h.commands) > h.maxSize {
		h.commands = h.commands[len(h.commands)-h.maxSize:]
	}
}

// GetAll 获取所有历史命令
func (h *History) GetAll() []string {
	return h.commands
}

// Size 获取历史记录数量
func (h *History) Size() int {
	return len(h.commands)
}

// Load 从文件加载历史记录，只保留最近的 maxSize 条
func (h *History) Load() error {
	if h.path == "" {
		return nil
	}

	data, err := afero.ReadFile(h.fs, h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // 文件不存在不算错误
		}
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		h.Add(line)
	}
	return nil
}

// Save 保存历史记录到文件
func (h *History) Save() error {
	if h.path == "" || h.maxSize == 0 {
		return nil
	}

	if err := h.fs.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return err
	}

	content := strings.Join(h.commands, "\n")
	if content != "" {
		content += "\n"
	}
	return afero.WriteFile(h.fs, h.path, []byte(content), 0600)
}
