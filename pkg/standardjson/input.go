package standardjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source standard-json 中单个源文件条目
type Source struct {
	Content string `json:"content"`
}

// Input solc --standard-json 的输入文档
type Input struct {
	Language string                 `json:"language"`
	Sources  map[string]Source      `json:"sources"`
	Settings map[string]interface{} `json:"settings"`
}

// Assemble 组装最终文档，源文件内容包装为 {"content": ...}
func Assemble(language string, sources map[string]string, settings map[string]interface{}) *Input {
	in := &Input{
		Language: language,
		Sources:  make(map[string]Source, len(sources)),
		Settings: settings,
	}
	for p, content := range sources {
		in.Sources[p] = Source{Content: content}
	}
	if in.Settings == nil {
		in.Settings = map[string]interface{}{}
	}
	return in
}

// Encode 以两个空格缩进输出，键按字典序排列，不转义 HTML 与非 ASCII 字符
func (in *Input) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(in)
}

// WriteFile 写入文档，必要时创建父目录
// 先写临时文件再 rename，失败时不会留下半截输出
func WriteFile(path string, in *Input) error {
	var buf bytes.Buffer
	if err := in.Encode(&buf); err != nil {
		return fmt.Errorf("encode standard json: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
