package vehicle

// Wildcard 上游脱敏使用的通配符。
const Wildcard = '*'

// fuzzyEqual 逐字符比较两个标识串：
// 任意一侧在某位置是通配符，该位置即视为匹配；长度不同永不匹配。
// 通配符“匹配任何字符”是有意选择的偏差——宁可误合并两条记录，
// 也不因脱敏字段产生重复车辆。不要收紧这条规则。
func fuzzyEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if a[i] == Wildcard || b[i] == Wildcard {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MatchIdentity VIN 与发动机号同时模糊匹配才认定为同一辆车。
func MatchIdentity(vinA, engineA, vinB, engineB string) bool {
	if vinA == "" || vinB == "" {
		return false
	}
	return fuzzyEqual(vinA, vinB) && fuzzyEqual(engineA, engineB)
}
