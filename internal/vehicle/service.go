package vehicle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/common/logger"
	"github.com/SmartLinkDrive/vehicle-profile/internal/vehiclemodel"
)

// Store 服务层需要的车辆/人员持久化操作。*Repo 是生产实现。
type Store interface {
	CreateVehicle(ctx context.Context, v *Vehicle) error
	SaveVehicle(ctx context.Context, v *Vehicle) error
	FindVehicleByID(ctx context.Context, id string) (*Vehicle, error)
	DedupeCandidates(ctx context.Context) ([]Vehicle, error)
	CreatePerson(ctx context.Context, p *Person) error
	SoftDeleteDrivers(ctx context.Context, vehicleID string) error
	FindPersonsByIDs(ctx context.Context, ids []string) (map[string]Person, error)
	AggregateRows(ctx context.Context, vehicleID string) ([]JoinRow, error)
	Transaction(ctx context.Context, fn func(Store) error) error
}

// ModelStore 服务层需要的车型持久化操作。vehiclemodel.Repo 是生产实现。
type ModelStore interface {
	Upsert(ctx context.Context, m *vehiclemodel.Model) error
	FindByCodes(ctx context.Context, codes []string) (map[string]vehiclemodel.Model, error)
	ListAll(ctx context.Context) ([]vehiclemodel.Model, error)
}

// Service 车辆档案的核心用例：事务写库 + 缓存投影同步。
type Service struct {
	store  Store
	models ModelStore
	proj   *Projector
	log    logger.Logger
}

func NewService(db *gorm.DB, c *cache.Cache, log logger.Logger) *Service {
	return newService(NewRepo(db), vehiclemodel.NewRepo(db), NewProjector(c), log)
}

func newService(store Store, models ModelStore, proj *Projector, log logger.Logger) *Service {
	return &Service{
		store:  store,
		models: models,
		proj:   proj,
		log:    log,
	}
}

// PersonInput 人员入参（车主 / 司机共用）。
type PersonInput struct {
	Name        string `json:"name"`
	IDCardNo    string `json:"idCardNo"`
	Phone       string `json:"phone"`
	IDCardFront string `json:"idCardFront"`
	IDCardBack  string `json:"idCardBack"`
	IsPrimary   bool   `json:"isPrimary"`
}

// CreateInput createVehicle 的入参。
type CreateInput struct {
	License        string              `json:"license"`
	EngineNo       string              `json:"engineNo"`
	VIN            string              `json:"vin"`
	RegisterDate   string              `json:"registerDate"`
	InsuranceDate  string              `json:"insuranceDate"`
	Transferred    bool                `json:"transferred"`
	FuelType       string              `json:"fuelType"`
	AccidentStatus string              `json:"accidentStatus"`
	ModelCode      string              `json:"modelCode"`
	ModelSource    vehiclemodel.Source `json:"modelSource"`
	Owner          PersonInput         `json:"owner"`
	Drivers        []PersonInput       `json:"drivers"`
}

// UpdateInput updateVehicle 的补丁；零值字段不动。
type UpdateInput struct {
	License        string `json:"license"`
	EngineNo       string `json:"engineNo"`
	RegisterDate   string `json:"registerDate"`
	InsuranceDate  string `json:"insuranceDate"`
	Transferred    *bool  `json:"transferred"`
	FuelType       string `json:"fuelType"`
	AccidentStatus string `json:"accidentStatus"`
	ModelCode      string `json:"modelCode"`
	ModelSource    string `json:"modelSource"`
}

// Create 建档。VIN+发动机号模糊命中已有记录时返回既有 id 并回填缺失字段，
// 不插入新行；否则在一个事务里依次写入车主、车辆、司机。
// created=false 表示命中去重。
func (s *Service) Create(ctx context.Context, uid string, in CreateInput) (id string, created bool, err error) {
	candidates, err := s.store.DedupeCandidates(ctx)
	if err != nil {
		return "", false, fmt.Errorf("load dedupe candidates: %w", err)
	}
	for i := range candidates {
		existing := &candidates[i]
		if !MatchIdentity(in.VIN, in.EngineNo, existing.VIN, existing.EngineNo) {
			continue
		}
		// 同一辆车重复提交：回填新提交里有、旧记录里缺的字段
		if backfill(existing, in) {
			if err := s.store.SaveVehicle(ctx, existing); err != nil {
				return "", false, fmt.Errorf("backfill vehicle %s: %w", existing.ID, err)
			}
		}
		if err := s.syncOne(ctx, existing.ID); err != nil {
			return "", false, err
		}
		return existing.ID, false, nil
	}

	v := &Vehicle{
		ID:             uuid.NewString(),
		UID:            uid,
		License:        strings.TrimSpace(in.License),
		EngineNo:       strings.TrimSpace(in.EngineNo),
		VIN:            strings.TrimSpace(in.VIN),
		RegisterDate:   parseDate(in.RegisterDate),
		InsuranceDate:  parseDate(in.InsuranceDate),
		Transferred:    in.Transferred,
		FuelType:       strings.TrimSpace(in.FuelType),
		AccidentStatus: strings.TrimSpace(in.AccidentStatus),
		ModelCode:      strings.TrimSpace(in.ModelCode),
		ModelSource:    in.ModelSource,
	}

	// 车主、车辆、司机必须同生共死：任何一步失败整体回滚
	err = s.store.Transaction(ctx, func(txRepo Store) error {
		owner := personFromInput(in.Owner, "")
		if err := txRepo.CreatePerson(ctx, owner); err != nil {
			return fmt.Errorf("create owner: %w", err)
		}
		v.OwnerID = owner.ID

		if err := txRepo.CreateVehicle(ctx, v); err != nil {
			return fmt.Errorf("create vehicle: %w", err)
		}

		// 顺序插入，首错即停
		for i, d := range in.Drivers {
			driver := personFromInput(d, v.ID)
			if err := txRepo.CreatePerson(ctx, driver); err != nil {
				return fmt.Errorf("create driver %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}

	if err := s.syncOne(ctx, v.ID); err != nil {
		return "", false, err
	}
	return v.ID, true, nil
}

func personFromInput(in PersonInput, vehicleID string) *Person {
	return &Person{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		IDCardNo:    strings.TrimSpace(in.IDCardNo),
		Phone:       strings.TrimSpace(in.Phone),
		IDCardFront: in.IDCardFront,
		IDCardBack:  in.IDCardBack,
		VehicleID:   vehicleID,
		IsPrimary:   in.IsPrimary,
	}
}

// backfill 把新提交里有、旧记录里缺的可选字段补到旧记录上。
func backfill(existing *Vehicle, in CreateInput) bool {
	changed := false
	if existing.RegisterDate == nil {
		if d := parseDate(in.RegisterDate); d != nil {
			existing.RegisterDate = d
			changed = true
		}
	}
	if existing.InsuranceDate == nil {
		if d := parseDate(in.InsuranceDate); d != nil {
			existing.InsuranceDate = d
			changed = true
		}
	}
	if existing.License == "" && strings.TrimSpace(in.License) != "" {
		existing.License = strings.TrimSpace(in.License)
		changed = true
	}
	if existing.FuelType == "" && strings.TrimSpace(in.FuelType) != "" {
		existing.FuelType = strings.TrimSpace(in.FuelType)
		changed = true
	}
	if existing.AccidentStatus == "" && strings.TrimSpace(in.AccidentStatus) != "" {
		existing.AccidentStatus = strings.TrimSpace(in.AccidentStatus)
		changed = true
	}
	if existing.ModelCode == "" && strings.TrimSpace(in.ModelCode) != "" {
		existing.ModelCode = strings.TrimSpace(in.ModelCode)
		existing.ModelSource = in.ModelSource
		changed = true
	}
	return changed
}

// Update 按补丁更新并重新投影；id 不存在返回 gorm.ErrRecordNotFound。
func (s *Service) Update(ctx context.Context, id string, patch UpdateInput) error {
	v, err := s.store.FindVehicleByID(ctx, id)
	if err != nil {
		return err
	}

	if patch.License != "" {
		v.License = strings.TrimSpace(patch.License)
	}
	if patch.EngineNo != "" {
		v.EngineNo = strings.TrimSpace(patch.EngineNo)
	}
	if d := parseDate(patch.RegisterDate); d != nil {
		v.RegisterDate = d
	}
	if d := parseDate(patch.InsuranceDate); d != nil {
		v.InsuranceDate = d
	}
	if patch.Transferred != nil {
		v.Transferred = *patch.Transferred
	}
	if patch.FuelType != "" {
		v.FuelType = strings.TrimSpace(patch.FuelType)
	}
	if patch.AccidentStatus != "" {
		v.AccidentStatus = strings.TrimSpace(patch.AccidentStatus)
	}
	if patch.ModelCode != "" {
		v.ModelCode = strings.TrimSpace(patch.ModelCode)
		if src, err := vehiclemodel.ParseSource(patch.ModelSource); err == nil {
			v.ModelSource = src
		}
	}

	if err := s.store.SaveVehicle(ctx, v); err != nil {
		return fmt.Errorf("save vehicle %s: %w", id, err)
	}
	return s.syncOne(ctx, id)
}

// Delete 软删除并从投影摘除；id 不存在返回 gorm.ErrRecordNotFound。
func (s *Service) Delete(ctx context.Context, id string) error {
	v, err := s.store.FindVehicleByID(ctx, id)
	if err != nil {
		return err
	}
	v.Deleted = true
	if err := s.store.SaveVehicle(ctx, v); err != nil {
		return fmt.Errorf("soft delete vehicle %s: %w", id, err)
	}
	return s.proj.RemoveVehicle(ctx, id, v.UID)
}

// SetDrivers 整体换绑司机：作废旧司机 + 顺序插入新司机，单事务。
func (s *Service) SetDrivers(ctx context.Context, vehicleID string, drivers []PersonInput) error {
	if _, err := s.store.FindVehicleByID(ctx, vehicleID); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(txRepo Store) error {
		if err := txRepo.SoftDeleteDrivers(ctx, vehicleID); err != nil {
			return fmt.Errorf("retire old drivers: %w", err)
		}
		for i, d := range drivers {
			if err := txRepo.CreatePerson(ctx, personFromInput(d, vehicleID)); err != nil {
				return fmt.Errorf("create driver %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.syncOne(ctx, vehicleID)
}

// SaveModel 统一形状车型入库 + 投影。
func (s *Service) SaveModel(ctx context.Context, m vehiclemodel.Model) error {
	if err := s.models.Upsert(ctx, &m); err != nil {
		return fmt.Errorf("upsert model %s/%s: %w", m.Code, m.Source, err)
	}
	return s.proj.ProjectModel(ctx, m)
}

// Refresh 重建缓存投影。
// vehicleID 为空：先清空整个投影再全量重建（避免已删除记录复活）；
// 指定 id：只重建该车辆，其余缓存不动。
func (s *Service) Refresh(ctx context.Context, vehicleID string) error {
	if vehicleID != "" {
		return s.syncOne(ctx, vehicleID)
	}

	if err := s.proj.Clear(ctx); err != nil {
		return fmt.Errorf("clear projection: %w", err)
	}

	models, err := s.models.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range models {
		if err := s.proj.ProjectModel(ctx, m); err != nil {
			return fmt.Errorf("project model %s: %w", m.Code, err)
		}
	}

	aggs, err := s.buildAggregates(ctx, "")
	if err != nil {
		return err
	}
	for _, agg := range aggs {
		if err := s.proj.ProjectVehicle(ctx, agg); err != nil {
			return fmt.Errorf("project vehicle %s: %w", agg.ID, err)
		}
		if err := s.proj.IndexVehicle(ctx, agg.ID, agg.UID); err != nil {
			return fmt.Errorf("index vehicle %s: %w", agg.ID, err)
		}
	}
	return nil
}

// syncOne 重建单辆车的投影。
func (s *Service) syncOne(ctx context.Context, vehicleID string) error {
	aggs, err := s.buildAggregates(ctx, vehicleID)
	if err != nil {
		return err
	}
	if len(aggs) == 0 {
		// 关系库里已经没有这辆车，确保缓存同步摘除
		return s.proj.RemoveVehicle(ctx, vehicleID, "")
	}
	agg := aggs[0]
	if err := s.proj.ProjectVehicle(ctx, agg); err != nil {
		return fmt.Errorf("project vehicle %s: %w", agg.ID, err)
	}
	return s.proj.IndexVehicle(ctx, agg.ID, agg.UID)
}

func (s *Service) buildAggregates(ctx context.Context, vehicleID string) ([]Aggregate, error) {
	rows, err := s.store.AggregateRows(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("aggregate rows: %w", err)
	}
	owners, err := s.store.FindPersonsByIDs(ctx, OwnerIDs(rows))
	if err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}
	models, err := s.models.FindByCodes(ctx, ModelCodes(rows))
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	return BuildAggregates(rows, owners, models), nil
}
