package tools

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

var kindAliases = map[string]Kind{
	"run":        KindSimulate,
	"sim":        KindSimulate,
	"simulate":   KindSimulate,
	"simulation": KindSimulate,
	"lint":       KindLint,
	"check":      KindLint,
	"synth":      KindSynthesize,
	"synthesis":  KindSynthesize,
	"synthesize": KindSynthesize,
}

// ParseKind 解析用户输入的工具名：先精确匹配别名，再做模糊匹配（取得分最高者）。
func ParseKind(input string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return "", fmt.Errorf("empty tool kind")
	}
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}
	names := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		names = append(names, string(k))
	}
	matches := fuzzy.Find(key, names)
	if len(matches) == 0 {
		return "", fmt.Errorf("unknown tool kind: %s", input)
	}
	return Kind(matches[0].Str), nil
}
