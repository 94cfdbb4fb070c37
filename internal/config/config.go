// Package config 读取和校验解释器的配置文件
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

// FileName 用户主目录下配置文件的名称
const FileName = ".minish.yaml"

//go:embed default.yaml
var defaultConfigData []byte

// Configuration 解释器配置
type Configuration struct {
	PromptMarker string    `json:"prompt_marker" validate:"required"`
	HistoryFile  string    `json:"history_file"`
	HistoryLimit int       `json:"history_limit" validate:"gte=0,lte=100000"`
	Color        string    `json:"color" validate:"oneof=auto always never"`
	Log          LogConfig `json:"log"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level" validate:"oneof=debug info warn warning error"`
	Format string `json:"format" validate:"oneof=text json"`
	Output string `json:"output" validate:"required"`
}

// Validate 检查配置的基本语义错误
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate.Struct(c)
}

// Default 返回内置的默认配置
func Default() *Configuration {
	var out Configuration
	// 内置配置在运行时不可能解析失败
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	out.HistoryFile = ExpandHome(out.HistoryFile)
	return &out
}

// DefaultPath 返回默认的配置文件路径，无法确定主目录时返回空字符串
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, FileName)
}

// ExpandHome 把开头的 ~/ 替换为用户主目录
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
