package standardjson

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"foundryverify/pkg/artifact"
	"foundryverify/pkg/config"
	"foundryverify/pkg/remappings"

	"github.com/ethereum/go-ethereum/log"
)

// Builder 依次执行 加载产物 -> 收集源文件 -> 解析 remappings -> 展开别名 -> 清理设置 -> 写出
type Builder struct {
	cfg    *config.Config
	fsys   fs.FS
	logger log.Logger
}

// NewBuilder 创建构建器，源文件默认从 cfg.Root 读取
func NewBuilder(cfg *config.Config, logger log.Logger) *Builder {
	if logger == nil {
		logger = log.Root()
	}
	return &Builder{
		cfg:    cfg,
		fsys:   os.DirFS(cfg.Root),
		logger: logger,
	}
}

// WithSourceFS 替换读取源文件使用的文件系统
func (b *Builder) WithSourceFS(fsys fs.FS) *Builder {
	b.fsys = fsys
	return b
}

// Build 生成 standard-json 文档但不写盘
func (b *Builder) Build(ctx context.Context) (*Input, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	md, err := artifact.LoadMetadata(b.cfg.ArtifactPath())
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	b.logger.Info("Loaded artifact metadata", "artifact", b.cfg.ArtifactPath(),
		"language", md.Language, "compiler", md.Compiler.Version, "sources", len(md.Sources))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sources, err := artifact.CollectSources(b.fsys, md, artifact.CollectOptions{
		StrictHashes: b.cfg.StrictHashes,
		Root:         b.cfg.Root,
		Logger:       b.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("collect sources: %w", err)
	}

	rules, err := remappings.ParseFile(b.cfg.FoundryTOMLPath())
	if err != nil {
		return nil, fmt.Errorf("parse remappings: %w", err)
	}
	for _, rule := range rules {
		b.logger.Debug("Loaded remapping", "rule", rule.String())
	}

	expanded := remappings.Expand(sources, rules)
	b.logger.Info("Expanded remapping aliases", "remappings", len(rules),
		"sources", len(sources), "aliases", len(expanded)-len(sources))

	settings, err := SanitizeSettings(md.Settings, b.cfg.StripSettings...)
	if err != nil {
		return nil, fmt.Errorf("sanitize settings: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return Assemble(md.Language, expanded, settings), nil
}

// Run 生成并写出文档，返回输出文件的绝对路径
func (b *Builder) Run(ctx context.Context) (string, error) {
	in, err := b.Build(ctx)
	if err != nil {
		return "", err
	}

	out, err := filepath.Abs(b.cfg.OutputPath())
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	if err := WriteFile(out, in); err != nil {
		return "", fmt.Errorf("write standard json: %w", err)
	}
	b.logger.Debug("Wrote standard json", "path", out, "sources", len(in.Sources))
	return out, nil
}
