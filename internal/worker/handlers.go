package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/SmartLinkDrive/vehicle-profile/internal/cache"
	"github.com/SmartLinkDrive/vehicle-profile/internal/rpc"
	"github.com/SmartLinkDrive/vehicle-profile/internal/vehicle"
	"github.com/SmartLinkDrive/vehicle-profile/internal/vehiclemodel"
)

const ztResponseTTL = 72 * time.Hour

func (w *Worker) handleCreateVehicle(ctx context.Context, args []interface{}) rpc.Envelope {
	uid := argString(args, 0)
	var in vehicle.CreateInput
	if len(args) < 2 || decodeArg(args[1], &in) != nil {
		return rpc.Fail(rpc.CodeBadRequest, "malformed vehicle object")
	}
	id, created, err := w.vehicles.Create(ctx, uid, in)
	if err != nil {
		return mapError(err)
	}
	return rpc.OK(map[string]interface{}{"id": id, "created": created})
}

func (w *Worker) handleUpdateVehicle(ctx context.Context, args []interface{}) rpc.Envelope {
	id := argString(args, 0)
	var patch vehicle.UpdateInput
	if len(args) < 2 || decodeArg(args[1], &patch) != nil {
		return rpc.Fail(rpc.CodeBadRequest, "malformed patch object")
	}
	if err := w.vehicles.Update(ctx, id, patch); err != nil {
		return mapError(err)
	}
	return rpc.OK(map[string]interface{}{"id": id})
}

func (w *Worker) handleDeleteVehicle(ctx context.Context, args []interface{}) rpc.Envelope {
	id := argString(args, 0)
	if err := w.vehicles.Delete(ctx, id); err != nil {
		return mapError(err)
	}
	return rpc.OK(map[string]interface{}{"id": id})
}

func (w *Worker) handleSetDrivers(ctx context.Context, args []interface{}) rpc.Envelope {
	vehicleID := argString(args, 0)
	var drivers []vehicle.PersonInput
	if len(args) < 2 || decodeArg(args[1], &drivers) != nil {
		return rpc.Fail(rpc.CodeBadRequest, "malformed drivers array")
	}
	if err := w.vehicles.SetDrivers(ctx, vehicleID, drivers); err != nil {
		return mapError(err)
	}
	return rpc.OK(map[string]interface{}{"vehicleId": vehicleID, "count": len(drivers)})
}

// handleSaveVehicleModel 按来源走各自的映射函数收敛到统一形状，
// 不做字段探测式分支。
func (w *Worker) handleSaveVehicleModel(ctx context.Context, args []interface{}) rpc.Envelope {
	src, err := vehiclemodel.ParseSource(argString(args, 0))
	if err != nil {
		return rpc.Fail(rpc.CodeBadRequest, err.Error())
	}
	if len(args) < 2 {
		return rpc.Fail(rpc.CodeBadRequest, "missing model record")
	}

	var m vehiclemodel.Model
	switch src {
	case vehiclemodel.SourceVin:
		var r vehiclemodel.VinRecord
		if decodeArg(args[1], &r) != nil {
			return rpc.Fail(rpc.CodeBadRequest, "malformed vin record")
		}
		m = vehiclemodel.FromVinRecord(r)
	case vehiclemodel.SourceLicense:
		var r vehiclemodel.LicenseRecord
		if decodeArg(args[1], &r) != nil {
			return rpc.Fail(rpc.CodeBadRequest, "malformed license record")
		}
		m = vehiclemodel.FromLicenseRecord(r)
	case vehiclemodel.SourceManual:
		var r vehiclemodel.ManualInput
		if decodeArg(args[1], &r) != nil {
			return rpc.Fail(rpc.CodeBadRequest, "malformed manual record")
		}
		m = vehiclemodel.FromManualInput(r)
	}
	if m.Code == "" {
		return rpc.Fail(rpc.CodeBadRequest, "model record has no code")
	}

	if err := w.vehicles.SaveModel(ctx, m); err != nil {
		return mapError(err)
	}
	return rpc.OK(m)
}

func (w *Worker) handleRefresh(ctx context.Context, args []interface{}) rpc.Envelope {
	vehicleID := argString(args, 0)
	if err := w.vehicles.Refresh(ctx, vehicleID); err != nil {
		return mapError(err)
	}
	scope := "all"
	if vehicleID != "" {
		scope = vehicleID
	}
	return rpc.OK(map[string]interface{}{"refreshed": scope})
}

// handleModelsByVin 先查 vehicle-vin-codes 缓存，命中则从车型投影水合；
// 未命中调第三方，落库 + 双写缓存。
func (w *Worker) handleModelsByVin(ctx context.Context, args []interface{}) rpc.Envelope {
	vin := argString(args, 0)
	if vin == "" {
		return rpc.Fail(rpc.CodeBadRequest, "vin is empty")
	}

	var codes []string
	hit, err := w.cache.HGetJSON(ctx, cache.KeyVehicleVinCodes, vin, &codes)
	if err != nil {
		return mapError(err)
	}
	if hit {
		models := make([]vehiclemodel.Model, 0, len(codes))
		for _, code := range codes {
			var m vehiclemodel.Model
			ok, err := w.cache.HGetJSON(ctx, cache.KeyVehicleModelEntities, code, &m)
			if err != nil {
				return mapError(err)
			}
			if ok {
				models = append(models, m)
			}
		}
		return rpc.OK(models)
	}

	records, err := w.provider.ModelsByVin(ctx, vin)
	if err != nil {
		return mapError(err)
	}

	models := make([]vehiclemodel.Model, 0, len(records))
	codes = codes[:0]
	for _, r := range records {
		m := vehiclemodel.FromVinRecord(r)
		if m.Code == "" {
			continue
		}
		if err := w.vehicles.SaveModel(ctx, m); err != nil {
			return mapError(err)
		}
		models = append(models, m)
		codes = append(codes, m.Code)
	}
	if err := w.cache.HSetJSON(ctx, cache.KeyVehicleVinCodes, vin, codes); err != nil {
		return mapError(err)
	}
	return rpc.OK(models)
}

// handleVehicleByLicense 车牌 -> VIN。上游回执 token 缓存 3 天。
func (w *Worker) handleVehicleByLicense(ctx context.Context, args []interface{}) rpc.Envelope {
	license := argString(args, 0)
	if license == "" {
		return rpc.Fail(rpc.CodeBadRequest, "license is empty")
	}

	if vin, ok, err := w.cache.HGetRaw(ctx, cache.KeyVehicleLicenseVin, license); err != nil {
		return mapError(err)
	} else if ok {
		return rpc.OK(map[string]interface{}{"license": license, "vin": vin})
	}

	lookup, err := w.provider.VehicleByLicense(ctx, license)
	if err != nil {
		return mapError(err)
	}

	if lookup.ResponseCode != "" {
		if err := w.cache.SetTTL(ctx, cache.KeyZtResponseCode(license), lookup.ResponseCode, ztResponseTTL); err != nil {
			return mapError(err)
		}
	}
	if lookup.VIN != "" {
		// VIN 以裸字符串入哈希，和历史数据保持位级兼容。
		if err := w.cache.HSetRaw(ctx, cache.KeyVehicleLicenseVin, license, lookup.VIN); err != nil {
			return mapError(err)
		}
	}
	if m := vehiclemodel.FromLicenseRecord(lookup.Model); m.Code != "" {
		if err := w.vehicles.SaveModel(ctx, m); err != nil {
			return mapError(err)
		}
	}
	return rpc.OK(map[string]interface{}{"license": license, "vin": lookup.VIN})
}

func (w *Worker) handleCityCode(ctx context.Context, args []interface{}) rpc.Envelope {
	province := argString(args, 0)
	city := argString(args, 1)

	provinceCode, ok := w.provinces.Code(province)
	if !ok {
		return rpc.Fail(rpc.CodeNotFound, fmt.Sprintf("unknown province: %s", province))
	}

	cityCode, err := w.provider.CityCode(ctx, provinceCode, city)
	if err != nil {
		return mapError(err)
	}
	return rpc.OK(map[string]interface{}{
		"provinceCode": provinceCode,
		"cityCode":     cityCode,
	})
}
