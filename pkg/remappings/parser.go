package remappings

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

var ErrMalformedRemappings = errors.New("malformed remappings")

// 只取第一个 remappings 块，条目内部不支持嵌套方括号
var blockPattern = regexp.MustCompile(`(?s)remappings\s*=\s*\[(.*?)\]`)

// Remapping 表示一条 import 别名规则 alias=target
type Remapping struct {
	Alias  string
	Target string
}

// String 返回 foundry 格式的规则文本
func (r Remapping) String() string {
	return r.Alias + "=" + r.Target
}

// ParseFile 读取配置文件并解析 remappings
func ParseFile(path string) ([]Remapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	rules, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Parse 从配置文本中提取 remappings 数组，按文件顺序返回
// 容忍 # 注释和末尾逗号；没有 remappings 块时返回空结果
func Parse(configText string) ([]Remapping, error) {
	match := blockPattern.FindStringSubmatch(configText)
	if match == nil {
		return nil, nil
	}

	var entries []string
	for _, line := range strings.Split(match[1], "\n") {
		line, _, _ = strings.Cut(line, "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSuffix(line, ",")
		entries = append(entries, line)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	items, err := decodeLiteral("[" + strings.Join(entries, ",") + "]")
	if err != nil {
		return nil, err
	}

	rules := make([]Remapping, 0, len(items))
	for _, item := range items {
		alias, target, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("%w: entry %q has no '='", ErrMalformedRemappings, item)
		}
		rules = append(rules, Remapping{Alias: alias, Target: target})
	}
	return rules, nil
}

// decodeLiteral 将清理后的列表字面量按 TOML 字符串数组解码
func decodeLiteral(literal string) ([]string, error) {
	var doc struct {
		Remappings []string `toml:"remappings"`
	}
	if _, err := toml.Decode("remappings = "+literal, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRemappings, err)
	}
	return doc.Remappings, nil
}
