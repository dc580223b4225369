package vehicle

import (
	"context"
	"fmt"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/vehiclemodel"
)

// BuildAggregates 把有序的宽联接行装配成聚合实体。
//
// 行按 vehicle_id 连续分组：首行灌入标量字段和车型子对象，
// 后续行把非空司机追加到有序列表（无司机的车辆得到空列表，不是 null）。
// owner 在第二趟用 owners 按 owner_id 装配到 owner 字段。
func BuildAggregates(rows []JoinRow, owners map[string]Person, models map[string]vehiclemodel.Model) []Aggregate {
	var out []Aggregate
	var cur *Aggregate

	for i := range rows {
		row := rows[i]
		if cur == nil || cur.ID != row.VehicleID {
			out = append(out, Aggregate{
				ID:             row.VehicleID,
				UID:            row.UID,
				License:        row.License,
				EngineNo:       row.EngineNo,
				VIN:            row.VIN,
				RegisterDate:   formatDate(row.RegisterDate),
				InsuranceDate:  formatDate(row.InsuranceDate),
				Transferred:    row.Transferred,
				FuelType:       row.FuelType,
				AccidentStatus: row.AccidentStatus,
				Drivers:        []PersonView{},
			})
			cur = &out[len(out)-1]

			if m, ok := models[row.ModelCode]; ok {
				model := m
				cur.Model = &model
			}
			if p, ok := owners[row.OwnerID]; ok {
				owner := personView(p)
				cur.Owner = &owner
			}
		}

		if row.DriverID == nil || *row.DriverID == "" {
			continue
		}
		cur.Drivers = append(cur.Drivers, PersonView{
			ID:          deref(row.DriverID),
			Name:        deref(row.DriverName),
			IDCardNo:    deref(row.DriverIDCardNo),
			Phone:       deref(row.DriverPhone),
			IDCardFront: deref(row.DriverIDCardFront),
			IDCardBack:  deref(row.DriverIDCardBack),
			IsPrimary:   row.DriverIsPrimary != nil && *row.DriverIsPrimary,
		})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OwnerIDs 行集中出现的全部 owner_id（去重）。
func OwnerIDs(rows []JoinRow) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range rows {
		if row.OwnerID == "" {
			continue
		}
		if _, ok := seen[row.OwnerID]; ok {
			continue
		}
		seen[row.OwnerID] = struct{}{}
		out = append(out, row.OwnerID)
	}
	return out
}

// ModelCodes 行集中出现的全部车型 code（去重）。
func ModelCodes(rows []JoinRow) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range rows {
		if row.ModelCode == "" {
			continue
		}
		if _, ok := seen[row.ModelCode]; ok {
			continue
		}
		seen[row.ModelCode] = struct{}{}
		out = append(out, row.ModelCode)
	}
	return out
}

// Projector 把聚合实体写进共享缓存，并维护分页索引列表。
// 缓存只是可重建的投影，关系库才是事实来源。
type Projector struct {
	cache *cache.Cache
}

func NewProjector(c *cache.Cache) *Projector {
	return &Projector{cache: c}
}

// ProjectVehicle 写入单个聚合实体。
func (p *Projector) ProjectVehicle(ctx context.Context, agg Aggregate) error {
	return p.cache.HSetJSON(ctx, cache.KeyVehicleEntities, agg.ID, agg)
}

// IndexVehicle 把 id 加入全量列表与按 uid 的列表（幂等：先删后加）。
func (p *Projector) IndexVehicle(ctx context.Context, id, uid string) error {
	if err := p.cache.LRem(ctx, cache.KeyVehicleList, id); err != nil {
		return err
	}
	if err := p.cache.RPush(ctx, cache.KeyVehicleList, id); err != nil {
		return err
	}
	if uid == "" {
		return nil
	}
	ownerKey := cache.KeyOwnerVehicleList(uid)
	if err := p.cache.LRem(ctx, ownerKey, id); err != nil {
		return err
	}
	return p.cache.RPush(ctx, ownerKey, id)
}

// RemoveVehicle 把 id 从实体 hash 与两个列表中摘除。
func (p *Projector) RemoveVehicle(ctx context.Context, id, uid string) error {
	if err := p.cache.HDel(ctx, cache.KeyVehicleEntities, id); err != nil {
		return err
	}
	if err := p.cache.LRem(ctx, cache.KeyVehicleList, id); err != nil {
		return err
	}
	if uid == "" {
		return nil
	}
	return p.cache.LRem(ctx, cache.KeyOwnerVehicleList(uid), id)
}

// ProjectModel 写入车型投影。
func (p *Projector) ProjectModel(ctx context.Context, m vehiclemodel.Model) error {
	return p.cache.HSetJSON(ctx, cache.KeyVehicleModelEntities, m.Code, m)
}

// Clear 清空整个投影：实体 hash、车型 hash、全量列表、全部 vehicle-<uid> 列表。
// 全量 refresh 必须先走这里，否则已删除车辆的旧缓存会复活。
func (p *Projector) Clear(ctx context.Context) error {
	keys, err := p.cache.ScanKeys(ctx, "vehicle-*")
	if err != nil {
		return fmt.Errorf("scan owner lists: %w", err)
	}
	toDelete := []string{cache.KeyVehicleEntities, cache.KeyVehicleModelEntities, cache.KeyVehicleList}
	for _, k := range keys {
		if cache.IsOwnerListKey(k) {
			toDelete = append(toDelete, k)
		}
	}
	return p.cache.Del(ctx, toDelete...)
}
