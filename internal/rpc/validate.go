package rpc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Check 对单个位置参数做形状校验。
// 返回空串表示通过，否则返回人类可读的违规描述。
// callerUID 用于 CallerUID 检查（参数必须等于调用方身份）。
type Check func(name string, v interface{}, callerUID string) string

// ArgCheck 一个位置参数声明的检查。
type ArgCheck struct {
	Name  string
	Check Check
}

// Validate 执行 call 声明的全部检查，返回所有违规信息。
// 只要返回非空，调用必须被整体拒绝：检查先于任何副作用。
func Validate(args []interface{}, checks []ArgCheck, callerUID string) []string {
	var violations []string
	for i, ac := range checks {
		var v interface{}
		if i < len(args) {
			v = args[i]
		}
		if msg := ac.Check(ac.Name, v, callerUID); msg != "" {
			violations = append(violations, msg)
		}
	}
	return violations
}

// NonEmptyString 非空字符串。
func NonEmptyString(name string, v interface{}, _ string) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fmt.Sprintf("%s must be a non-empty string", name)
	}
	return ""
}

// UUID 合法的唯一标识。信箱 token 带毫秒前缀，取最后 36 位校验。
func UUID(name string, v interface{}, _ string) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return fmt.Sprintf("%s must be a well-formed id", name)
	}
	candidate := s
	if len(candidate) > 36 {
		candidate = candidate[len(candidate)-36:]
	}
	if _, err := uuid.Parse(candidate); err != nil {
		return fmt.Sprintf("%s must be a well-formed id", name)
	}
	return ""
}

// Bool 布尔。
func Bool(name string, v interface{}, _ string) string {
	if _, ok := v.(bool); !ok {
		return fmt.Sprintf("%s must be a boolean", name)
	}
	return ""
}

// Number 数值。JSON 解码后可能是 float64 或 json.Number。
func Number(name string, v interface{}, _ string) string {
	switch n := v.(type) {
	case float64:
		return ""
	case json.Number:
		if _, err := n.Float64(); err != nil {
			return fmt.Sprintf("%s must be a number", name)
		}
		return ""
	default:
		return fmt.Sprintf("%s must be a number", name)
	}
}

// Date YYYY-MM-DD 格式日期。
func Date(name string, v interface{}, _ string) string {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%s must be a date string", name)
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", name)
	}
	return ""
}

// NonEmptyArray 非空数组。
func NonEmptyArray(name string, v interface{}, _ string) string {
	arr, ok := v.([]interface{})
	if !ok || len(arr) == 0 {
		return fmt.Sprintf("%s must be a non-empty array", name)
	}
	return ""
}

// NonEmptyObject 非空对象。
func NonEmptyObject(name string, v interface{}, _ string) string {
	obj, ok := v.(map[string]interface{})
	if !ok || len(obj) == 0 {
		return fmt.Sprintf("%s must be a non-empty object", name)
	}
	return ""
}

// CallerUID 参数必须等于调用方自己的身份。
func CallerUID(name string, v interface{}, callerUID string) string {
	s, ok := v.(string)
	if !ok || s == "" || s != callerUID {
		return fmt.Sprintf("%s must match the caller identity", name)
	}
	return ""
}

// Optional 包装：参数缺省（nil）时跳过检查。
func Optional(check Check) Check {
	return func(name string, v interface{}, callerUID string) string {
		if v == nil {
			return ""
		}
		return check(name, v, callerUID)
	}
}
