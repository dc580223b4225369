package vehicle

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// WithTx 返回绑定到事务连接的 Repo。
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

// Transaction 在单个数据库事务里执行 fn，fn 收到绑定事务的 Store。
func (r *Repo) Transaction(ctx context.Context, fn func(Store) error) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) CreateVehicle(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(v).Error
}

func (r *Repo) SaveVehicle(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(v).Error
}

// FindVehicleByID 只返回未删除的记录。
func (r *Repo) FindVehicleByID(ctx context.Context, id string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := db.Where("id = ? AND deleted = ?", id, false).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// DedupeCandidates 模糊去重的候选集：未删除且 VIN 非空的车辆。
// VIN 可能带通配符，等值查询会漏掉脱敏变体，所以拉全量到内存做逐位比较。
func (r *Repo) DedupeCandidates(ctx context.Context) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var vehicles []Vehicle
	if err := db.Where("deleted = ? AND vin <> ''", false).Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *Repo) CreatePerson(ctx context.Context, p *Person) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(p).Error
}

// SoftDeleteDrivers 把某车辆现有司机整体作废（换绑前调用）。
func (r *Repo) SoftDeleteDrivers(ctx context.Context, vehicleID string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Model(&Person{}).
		Where("vehicle_id = ? AND deleted = ?", vehicleID, false).
		Update("deleted", true).Error
}

// FindPersonsByIDs 批量取人员记录（owner 装配第二趟用）。
func (r *Repo) FindPersonsByIDs(ctx context.Context, ids []string) (map[string]Person, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	out := make(map[string]Person, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var persons []Person
	if err := db.Where("id IN ? AND deleted = ?", ids, false).Find(&persons).Error; err != nil {
		return nil, err
	}
	for _, p := range persons {
		out[p.ID] = p
	}
	return out, nil
}

// JoinRow 宽联接查询的一行：车辆标量字段 + 可空的司机字段。
// 无司机的车辆恰好一行，司机字段全空。
type JoinRow struct {
	VehicleID      string
	UID            string
	License        string
	EngineNo       string
	VIN            string
	RegisterDate   *time.Time
	InsuranceDate  *time.Time
	Transferred    bool
	FuelType       string
	AccidentStatus string
	OwnerID        string
	ModelCode      string
	ModelSource    string

	DriverID          *string
	DriverName        *string
	DriverIDCardNo    *string
	DriverPhone       *string
	DriverIDCardFront *string
	DriverIDCardBack  *string
	DriverIsPrimary   *bool
}

const joinQuery = `
SELECT v.id AS vehicle_id, v.uid, v.license, v.engine_no, v.vin,
       v.register_date, v.insurance_date, v.transferred, v.fuel_type,
       v.accident_status, v.owner_id, v.model_code, v.model_source,
       p.id AS driver_id, p.name AS driver_name, p.id_card_no AS driver_id_card_no,
       p.phone AS driver_phone, p.id_card_front AS driver_id_card_front,
       p.id_card_back AS driver_id_card_back, p.is_primary AS driver_is_primary
FROM vehicles v
LEFT JOIN persons p ON p.vehicle_id = v.id AND p.deleted = 0
WHERE v.deleted = 0`

// AggregateRows 聚合重建的宽联接。id 为空时取全量。
// 按 vehicle_id 排序保证同一车辆的行连续，司机按创建顺序。
func (r *Repo) AggregateRows(ctx context.Context, vehicleID string) ([]JoinRow, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var rows []JoinRow
	q := joinQuery
	args := []interface{}{}
	if vehicleID != "" {
		q += " AND v.id = ?"
		args = append(args, vehicleID)
	}
	q += " ORDER BY v.id, p.created_at"
	if err := db.Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
