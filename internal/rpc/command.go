package rpc

// 调用方域。每个命令声明允许哪些域调用。
const (
	DomainMobile = "mobile"
	DomainAdmin  = "admin"
)

// Command 命令元数据：名称、允许的调用域、逐参数检查、是否异步。
// 异步命令由 responder 追加 token 后投递给 worker；
// 同步命令由 responder 直接从缓存应答。
type Command struct {
	Name    string
	Domains []string
	Args    []ArgCheck
	Async   bool
}

// Allowed 判断调用方域集合是否有权调用该命令。
func (c Command) Allowed(domains []string) bool {
	for _, d := range domains {
		for _, allow := range c.Domains {
			if d == allow {
				return true
			}
		}
	}
	return false
}

// Request 入站调用 {cmd, args}。
type Request struct {
	Cmd  string        `json:"cmd"`
	Args []interface{} `json:"args"`
}

// Catalog 返回命令目录。responder 与 worker 共用，
// 保证校验规则与派发表只有一份。
func Catalog() map[string]Command {
	cmds := []Command{
		{
			Name:    "getVehicle",
			Domains: []string{DomainMobile, DomainAdmin},
			Args:    []ArgCheck{{"id", UUID}},
		},
		{
			Name:    "getVehicleList",
			Domains: []string{DomainMobile, DomainAdmin},
			Args: []ArgCheck{
				{"uid", Optional(NonEmptyString)},
				{"offset", Number},
				{"limit", Number},
			},
		},
		{
			Name:    "getVehicleModel",
			Domains: []string{DomainMobile, DomainAdmin},
			Args:    []ArgCheck{{"code", NonEmptyString}},
		},
		{
			Name:    "createVehicle",
			Domains: []string{DomainMobile, DomainAdmin},
			Args: []ArgCheck{
				{"uid", CallerUID},
				{"vehicle", NonEmptyObject},
			},
			Async: true,
		},
		{
			Name:    "updateVehicle",
			Domains: []string{DomainMobile, DomainAdmin},
			Args: []ArgCheck{
				{"id", UUID},
				{"patch", NonEmptyObject},
			},
			Async: true,
		},
		{
			Name:    "deleteVehicle",
			Domains: []string{DomainAdmin},
			Args:    []ArgCheck{{"id", UUID}},
			Async:   true,
		},
		{
			Name:    "setDrivers",
			Domains: []string{DomainMobile, DomainAdmin},
			Args: []ArgCheck{
				{"vehicleId", UUID},
				{"drivers", NonEmptyArray},
			},
			Async: true,
		},
		{
			Name:    "saveVehicleModel",
			Domains: []string{DomainAdmin},
			Args: []ArgCheck{
				{"source", NonEmptyString},
				{"record", NonEmptyObject},
			},
			Async: true,
		},
		{
			Name:    "refresh",
			Domains: []string{DomainAdmin},
			Args:    []ArgCheck{{"vehicleId", Optional(UUID)}},
			Async:   true,
		},
		{
			Name:    "getModelsByVin",
			Domains: []string{DomainMobile, DomainAdmin},
			Args:    []ArgCheck{{"vin", NonEmptyString}},
			Async:   true,
		},
		{
			Name:    "getVehicleByLicense",
			Domains: []string{DomainMobile, DomainAdmin},
			Args:    []ArgCheck{{"license", NonEmptyString}},
			Async:   true,
		},
		{
			Name:    "getCityCode",
			Domains: []string{DomainMobile, DomainAdmin},
			Args: []ArgCheck{
				{"province", NonEmptyString},
				{"city", NonEmptyString},
			},
			Async: true,
		},
	}

	out := make(map[string]Command, len(cmds))
	for _, c := range cmds {
		out[c.Name] = c
	}
	return out
}
