package remappings

import (
	"sort"
	"strings"
)

// Expand 为匹配 target 前缀的源文件追加别名路径，内容与原文件相同
// 规则按顺序应用，已存在的键不会被覆盖；只扫描原始 sources，不修改入参
func Expand(sources map[string]string, rules []Remapping) map[string]string {
	expanded := make(map[string]string, len(sources))
	paths := make([]string, 0, len(sources))
	for p, content := range sources {
		expanded[p] = content
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, rule := range rules {
		for _, p := range paths {
			if !strings.HasPrefix(p, rule.Target) {
				continue
			}
			candidate := rule.Alias + p[len(rule.Target):]
			if _, exists := expanded[candidate]; exists {
				continue
			}
			expanded[candidate] = sources[p]
		}
	}
	return expanded
}
