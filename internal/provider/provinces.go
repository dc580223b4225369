package provider

import "strings"

// ProvinceTable 省份名称 -> 行政区划代码。
// 启动时从配置灌一次，之后只读；没有任何运行期修改入口。
type ProvinceTable struct {
	codes map[string]string
}

// NewProvinceTable 拷贝入参构建只读表。
func NewProvinceTable(codes map[string]string) *ProvinceTable {
	cp := make(map[string]string, len(codes))
	for name, code := range codes {
		cp[strings.TrimSpace(name)] = strings.TrimSpace(code)
	}
	return &ProvinceTable{codes: cp}
}

// Code 按省份名查代码。兼容带"省/市/自治区"后缀的写法。
func (t *ProvinceTable) Code(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if code, ok := t.codes[name]; ok {
		return code, true
	}
	for _, suffix := range []string{"省", "市", "自治区", "壮族自治区", "回族自治区", "维吾尔自治区"} {
		if trimmed := strings.TrimSuffix(name, suffix); trimmed != name {
			if code, ok := t.codes[trimmed]; ok {
				return code, true
			}
		}
	}
	return "", false
}
