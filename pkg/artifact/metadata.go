package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"foundryverify/pkg/types"
)

var (
	ErrArtifactDecode  = errors.New("artifact decode failed")
	ErrInvalidMetadata = errors.New("invalid artifact metadata")
)

// Artifact 适配 Foundry out/<File>.sol/<Contract>.json 的最小结构
// metadata 可能是对象，也可能是 JSON 字符串；旧版本 forge 只输出 rawMetadata
type Artifact struct {
	Metadata    types.FlexibleJSON `json:"metadata"`
	RawMetadata string             `json:"rawMetadata"`
}

// Metadata 是 solc 输出的合约元数据中与 standard-json 相关的部分
type Metadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Language string                      `json:"language"`
	Sources  map[string]SourceDescriptor `json:"sources"`
	Settings map[string]interface{}      `json:"settings"`
}

// SourceDescriptor 元数据中单个源文件的描述
type SourceDescriptor struct {
	Keccak256 string   `json:"keccak256,omitempty"`
	License   string   `json:"license,omitempty"`
	URLs      []string `json:"urls,omitempty"`
	Content   string   `json:"content,omitempty"`
}

// UnmarshalJSON 只有对象形式才解析字段，其他形式视为空描述
// 收集源文件只依赖 sources 的键
func (d *SourceDescriptor) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*d = SourceDescriptor{}
		return nil
	}
	type plain SourceDescriptor
	var decoded plain
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return err
	}
	*d = SourceDescriptor(decoded)
	return nil
}

// LoadMetadata 从磁盘读取构建产物并返回其中的编译元数据
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact %s: %w", ErrArtifactDecode, path, err)
	}
	md, err := DecodeMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return md, nil
}

// DecodeMetadata 解析构建产物内容，metadata 的两种编码方式结果一致
func DecodeMetadata(data []byte) (*Metadata, error) {
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %w", ErrArtifactDecode, err)
	}

	payload := art.Metadata
	if payload.IsEmpty() && art.RawMetadata != "" {
		payload = types.NewFlexibleJSON([]byte(art.RawMetadata))
	}
	if payload.IsEmpty() {
		return nil, fmt.Errorf("%w: artifact has no metadata", ErrInvalidMetadata)
	}

	var md Metadata
	if err := payload.Decode(&md); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %w", ErrArtifactDecode, err)
	}
	if err := md.validate(); err != nil {
		return nil, err
	}
	return &md, nil
}

func (m *Metadata) validate() error {
	if m.Language == "" {
		return fmt.Errorf("%w: missing language", ErrInvalidMetadata)
	}
	if m.Sources == nil {
		return fmt.Errorf("%w: missing sources", ErrInvalidMetadata)
	}
	if m.Settings == nil {
		return fmt.Errorf("%w: missing settings", ErrInvalidMetadata)
	}
	return nil
}
