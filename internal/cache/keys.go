package cache

import "fmt"

// 缓存 key 命名空间。与历史数据兼容，不要改名。
const (
	KeyVehicleEntities      = "vehicle-entities"       // hash: vehicle id -> JSON 聚合实体
	KeyVehicleModelEntities = "vehicle-model-entities" // hash: model code -> JSON 车型
	KeyVehicleVinCodes      = "vehicle-vin-codes"      // hash: VIN -> JSON 车型 code 列表
	KeyVehicleLicenseVin    = "vehicle-license-vin"    // hash: 车牌 -> VIN
	KeyVehicleList          = "vehicle"                // list: 全量 vehicle id（分页用）
	KeyWorkQueue            = "vehicle-profile-queue"  // list: responder -> worker 工作队列
)

// KeyOwnerVehicleList 按车主分页的 vehicle id 列表。
func KeyOwnerVehicleList(uid string) string {
	return fmt.Sprintf("vehicle-%s", uid)
}

// KeyZtResponseCode 第三方车牌接口回执 token，TTL 3 天。
func KeyZtResponseCode(license string) string {
	return fmt.Sprintf("zt-response-code:%s", license)
}

// reservedVehicleKeys 以 vehicle- 开头但不属于分页列表的 key，
// 全量 refresh 清理时必须跳过。工作队列也在这个命名空间里：
// 清掉它等于销毁其他在途请求的消息。
var reservedVehicleKeys = map[string]struct{}{
	KeyVehicleEntities:      {},
	KeyVehicleModelEntities: {},
	KeyVehicleVinCodes:      {},
	KeyVehicleLicenseVin:    {},
	KeyWorkQueue:            {},
}

// IsOwnerListKey 判断 key 是否为 vehicle-<uid> 分页列表。
func IsOwnerListKey(key string) bool {
	if len(key) <= len("vehicle-") || key[:len("vehicle-")] != "vehicle-" {
		return false
	}
	_, reserved := reservedVehicleKeys[key]
	return !reserved
}
