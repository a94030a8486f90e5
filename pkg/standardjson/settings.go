package standardjson

import (
	"bytes"
	"encoding/json"
	"fmt"

	"foundryverify/pkg/config"
)

// SanitizeSettings 深拷贝编译设置并删除 solc --standard-json 不接受的键
// compilationTarget 总是删除，keys 为额外需要删除的键；键不存在时不报错
func SanitizeSettings(settings map[string]interface{}, keys ...string) (map[string]interface{}, error) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var copied map[string]interface{}
	if err := dec.Decode(&copied); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if copied == nil {
		copied = map[string]interface{}{}
	}

	delete(copied, config.CompilationTargetKey)
	for _, key := range keys {
		delete(copied, key)
	}
	return copied, nil
}
