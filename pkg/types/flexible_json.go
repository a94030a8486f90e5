package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FlexibleJSON 是一个可以从两种 JSON 形式解析的 JSON 值
// 支持的格式:
// - 直接嵌套的 JSON 值: {"language": "Solidity"}
// - 二次编码的 JSON 字符串: "{\"language\":\"Solidity\"}"
//
// Foundry 与 Hardhat 对 metadata 字段的输出方式不同，统一在这里处理。
type FlexibleJSON struct {
	raw json.RawMessage
}

// NewFlexibleJSON 创建一个新的 FlexibleJSON
func NewFlexibleJSON(raw []byte) FlexibleJSON {
	return FlexibleJSON{raw: append(json.RawMessage(nil), raw...)}
}

// Raw 返回解包后的原始 JSON
func (f FlexibleJSON) Raw() json.RawMessage {
	return f.raw
}

// IsEmpty 检查值是否缺失或为 null
func (f FlexibleJSON) IsEmpty() bool {
	trimmed := bytes.TrimSpace(f.raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// UnmarshalJSON 实现 json.Unmarshaler 接口
// 字符串形式会再解码一次，并要求内容本身是合法 JSON
func (f *FlexibleJSON) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		f.raw = append(json.RawMessage(nil), trimmed...)
		return nil
	}

	var str string
	if err := json.Unmarshal(trimmed, &str); err != nil {
		return fmt.Errorf("invalid JSON string: %w", err)
	}
	inner := bytes.TrimSpace([]byte(str))
	if !json.Valid(inner) {
		return errors.New("string does not contain valid JSON")
	}
	f.raw = inner
	return nil
}

// MarshalJSON 实现 json.Marshaler 接口
// 总是输出嵌套形式，不再二次编码
func (f FlexibleJSON) MarshalJSON() ([]byte, error) {
	if f.IsEmpty() {
		return []byte("null"), nil
	}
	return f.raw, nil
}

// Decode 将值解码到 v，数字保留为 json.Number 以免丢失精度
func (f FlexibleJSON) Decode(v interface{}) error {
	if f.IsEmpty() {
		return errors.New("empty JSON value")
	}
	dec := json.NewDecoder(bytes.NewReader(f.raw))
	dec.UseNumber()
	return dec.Decode(v)
}
