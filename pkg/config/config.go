package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultArtifact    = "out/BurnMintTokenPool.sol/BurnMintTokenPool.json"
	DefaultFoundryTOML = "foundry.toml"
	DefaultOutput      = "tmp/BurnMintTokenPool.standard.cleaned.json"

	// CompilationTargetKey 只有 forge 接受，solc --standard-json 会拒绝
	CompilationTargetKey = "compilationTarget"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config 定义 standard-json 重建所需的全部路径与选项
// 相对路径均以 Root 为基准
type Config struct {
	Root          string   `yaml:"root"`
	Artifact      string   `yaml:"artifact"`
	FoundryTOML   string   `yaml:"foundry_toml"`
	Output        string   `yaml:"output"`
	StripSettings []string `yaml:"strip_settings"`
	StrictHashes  bool     `yaml:"strict_hashes"`
}

// Default 返回默认配置，不带参数运行时使用
func Default() *Config {
	return &Config{
		Artifact:      DefaultArtifact,
		FoundryTOML:   DefaultFoundryTOML,
		Output:        DefaultOutput,
		StripSettings: []string{CompilationTargetKey},
	}
}

// Validate 检查必填字段
func (c *Config) Validate() error {
	switch {
	case c.Root == "":
		return fmt.Errorf("%w: root is empty", ErrInvalidConfig)
	case c.Artifact == "":
		return fmt.Errorf("%w: artifact path is empty", ErrInvalidConfig)
	case c.FoundryTOML == "":
		return fmt.Errorf("%w: foundry_toml path is empty", ErrInvalidConfig)
	case c.Output == "":
		return fmt.Errorf("%w: output path is empty", ErrInvalidConfig)
	}
	return nil
}

// Resolve 将相对路径解析到项目根目录下
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

func (c *Config) ArtifactPath() string    { return c.Resolve(c.Artifact) }
func (c *Config) FoundryTOMLPath() string { return c.Resolve(c.FoundryTOML) }
func (c *Config) OutputPath() string      { return c.Resolve(c.Output) }

// DetectRoot 从 startDir 向上查找包含 foundry.toml 的目录
// 找不到时返回 startDir 的绝对路径
func DetectRoot(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	start, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve start directory: %w", err)
	}
	dir := start
	for {
		candidate := filepath.Join(dir, DefaultFoundryTOML)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return start, nil
}
