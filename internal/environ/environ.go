// Package environ 提供解释器的环境变量存储
//
// 解释器只通过 Env 接口读写环境变量，进程环境和测试用的内存环境都实现该接口。
package environ

import (
	"os"
	"sync"
)

// Var 一个环境变量条目
type Var struct {
	Name  string
	Value string
}

// String 返回 NAME=VALUE 形式
func (v Var) String() string {
	return v.Name + "=" + v.Value
}

// Getter 只读查询接口，词法分析器展开 $NAME 时使用
type Getter interface {
	// Lookup 查询变量，未设置时 ok 为 false
	Lookup(name string) (value string, ok bool)
}

// Env 环境变量存储
type Env interface {
	Getter

	// Set 设置变量，已存在时覆盖
	Set(name, value string) error

	// All 按存储顺序返回所有条目
	All() []Var
}

// Environ 把环境转换为 exec.Cmd 使用的 NAME=VALUE 列表
func Environ(env Env) []string {
	all := env.All()
	out := make([]string, 0, len(all))
	for _, v := range all {
		out = append(out, v.String())
	}
	return out
}

// Getenv 查询变量，未设置时返回空字符串
func Getenv(env Getter, name string) string {
	value, _ := env.Lookup(name)
	return value
}

// splitEnv 分割 NAME=VALUE 字符串
func splitEnv(entry string) (string, string) {
	for i := 0; i < len(entry); i++ {
		if entry[i] == '=' {
			return entry[:i], entry[i+1:]
		}
	}
	return entry, ""
}

// Process 基于真实进程环境的实现，子进程会继承这里设置的值
type Process struct{}

var _ Env = (*Process)(nil)

// NewProcess 创建进程环境
func NewProcess() *Process {
	return &Process{}
}

// Lookup 实现 Env.Lookup
func (p *Process) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// Set 实现 Env.Set
func (p *Process) Set(name, value string) error {
	return os.Setenv(name, value)
}

// All 实现 Env.All，顺序与 os.Environ 一致
func (p *Process) All() []Var {
	entries := os.Environ()
	out := make([]Var, 0, len(entries))
	for _, entry := range entries {
		name, value := splitEnv(entry)
		out = append(out, Var{Name: name, Value: value})
	}
	return out
}

// Map 内存中的环境，保持插入顺序
type Map struct {
	rw    sync.RWMutex
	keys  []string
	value map[string]string
}

var _ Env = (*Map)(nil)

// NewMap 创建空的内存环境
func NewMap() *Map {
	return &Map{value: make(map[string]string)}
}

// NewMapFromList 从 NAME=VALUE 列表创建内存环境
func NewMapFromList(entries []string) *Map {
	m := NewMap()
	for _, entry := range entries {
		name, value := splitEnv(entry)
		// Map.Set 不会返回错误
		_ = m.Set(name, value)
	}
	return m
}

// Lookup 实现 Env.Lookup
func (m *Map) Lookup(name string) (string, bool) {
	m.rw.RLock()
	defer m.rw.RUnlock()

	value, ok := m.value[name]
	return value, ok
}

// Set 实现 Env.Set
func (m *Map) Set(name, value string) error {
	m.rw.Lock()
	defer m.rw.Unlock()

	if _, ok := m.value[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.value[name] = value
	return nil
}

// All 实现 Env.All
func (m *Map) All() []Var {
	m.rw.RLock()
	defer m.rw.RUnlock()

	out := make([]Var, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, Var{Name: k, Value: m.value[k]})
	}
	return out
}
