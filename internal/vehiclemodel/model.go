package vehiclemodel

import (
	"fmt"
	"strings"
	"time"
)

// Source 车型数据来源（provenance）。
// 同一 code 在不同来源下是不同记录；code+source 联合唯一。
type Source string

const (
	SourceVin     Source = "vin"     // VIN 查询接口
	SourceLicense Source = "license" // 车牌查询接口
	SourceManual  Source = "manual"  // 人工录入 / 其他
)

// ParseSource 校验来源枚举。
func ParseSource(s string) (Source, error) {
	switch Source(strings.TrimSpace(s)) {
	case SourceVin:
		return SourceVin, nil
	case SourceLicense:
		return SourceLicense, nil
	case SourceManual:
		return SourceManual, nil
	default:
		return "", fmt.Errorf("unknown model source: %q", s)
	}
}

// Model vehicle_models 表的 GORM 模型，同时也是缓存投影的 JSON 形状。
// 三种来源的原始记录字段不一，这里是收敛后的统一形状。
type Model struct {
	Code   string `gorm:"primaryKey;size:64" json:"code"`
	Source Source `gorm:"primaryKey;type:varchar(16)" json:"source"`

	Name          string  `gorm:"size:128" json:"name"`
	Brand         string  `gorm:"size:64" json:"brand"`
	Family        string  `gorm:"size:64" json:"family"`
	BodyType      string  `gorm:"size:32" json:"bodyType"`
	Engine        string  `gorm:"size:64" json:"engine"`
	Gearbox       string  `gorm:"size:64" json:"gearbox"`
	YearPattern   string  `gorm:"size:32" json:"yearPattern"`
	TrimLevel     string  `gorm:"size:64" json:"trimLevel"`
	PurchasePrice float64 `json:"purchasePrice"`
	SeatCount     int     `json:"seatCount"`
	EmissionStd   string  `gorm:"size:32" json:"emissionStd"`
	Displacement  string  `gorm:"size:16" json:"displacement"`
	DriveType     string  `gorm:"size:32" json:"driveType"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName 指定表名。
func (Model) TableName() string { return "vehicle_models" }

// VinRecord VIN 查询接口返回的原始记录。
type VinRecord struct {
	ModelCode      string  `json:"vehicleId"`
	FullName       string  `json:"vehicleName"`
	BrandName      string  `json:"brandName"`
	FamilyName     string  `json:"familyName"`
	BodyType       string  `json:"bodyType"`
	EngineDesc     string  `json:"engineDesc"`
	GearboxType    string  `json:"gearboxType"`
	YearPattern    string  `json:"yearPattern"`
	CfgLevel       string  `json:"cfgLevel"`
	PurchasePrice  float64 `json:"purchasePrice"`
	SeatNum        int     `json:"seatNum"`
	DischargeStd   string  `json:"dischargeStandard"`
	Displacement   string  `json:"displacement"`
	DriveMode      string  `json:"driveMode"`
}

// LicenseRecord 车牌查询接口返回的原始记录。
type LicenseRecord struct {
	Code        string  `json:"modelCode"`
	Title       string  `json:"modelName"`
	Brand       string  `json:"brand"`
	Series      string  `json:"series"`
	CarBody     string  `json:"carBody"`
	EngineModel string  `json:"engineModel"`
	Transmission string `json:"transmission"`
	MarketYear  string  `json:"marketYear"`
	Trim        string  `json:"trim"`
	GuidePrice  float64 `json:"guidePrice"`
	Seats       int     `json:"seats"`
	Emission    string  `json:"emission"`
	ExhaustVol  string  `json:"exhaustVolume"`
	DrivenType  string  `json:"drivenType"`
}

// ManualInput 人工录入的记录（字段名即统一形状）。
type ManualInput struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Brand         string  `json:"brand"`
	Family        string  `json:"family"`
	BodyType      string  `json:"bodyType"`
	Engine        string  `json:"engine"`
	Gearbox       string  `json:"gearbox"`
	YearPattern   string  `json:"yearPattern"`
	TrimLevel     string  `json:"trimLevel"`
	PurchasePrice float64 `json:"purchasePrice"`
	SeatCount     int     `json:"seatCount"`
	EmissionStd   string  `json:"emissionStd"`
	Displacement  string  `json:"displacement"`
	DriveType     string  `json:"driveType"`
}

// FromVinRecord VIN 来源记录 -> 统一形状。
func FromVinRecord(r VinRecord) Model {
	return Model{
		Code:          strings.TrimSpace(r.ModelCode),
		Source:        SourceVin,
		Name:          strings.TrimSpace(r.FullName),
		Brand:         strings.TrimSpace(r.BrandName),
		Family:        strings.TrimSpace(r.FamilyName),
		BodyType:      strings.TrimSpace(r.BodyType),
		Engine:        strings.TrimSpace(r.EngineDesc),
		Gearbox:       strings.TrimSpace(r.GearboxType),
		YearPattern:   strings.TrimSpace(r.YearPattern),
		TrimLevel:     strings.TrimSpace(r.CfgLevel),
		PurchasePrice: r.PurchasePrice,
		SeatCount:     r.SeatNum,
		EmissionStd:   strings.TrimSpace(r.DischargeStd),
		Displacement:  strings.TrimSpace(r.Displacement),
		DriveType:     strings.TrimSpace(r.DriveMode),
	}
}

// FromLicenseRecord 车牌来源记录 -> 统一形状。
func FromLicenseRecord(r LicenseRecord) Model {
	return Model{
		Code:          strings.TrimSpace(r.Code),
		Source:        SourceLicense,
		Name:          strings.TrimSpace(r.Title),
		Brand:         strings.TrimSpace(r.Brand),
		Family:        strings.TrimSpace(r.Series),
		BodyType:      strings.TrimSpace(r.CarBody),
		Engine:        strings.TrimSpace(r.EngineModel),
		Gearbox:       strings.TrimSpace(r.Transmission),
		YearPattern:   strings.TrimSpace(r.MarketYear),
		TrimLevel:     strings.TrimSpace(r.Trim),
		PurchasePrice: r.GuidePrice,
		SeatCount:     r.Seats,
		EmissionStd:   strings.TrimSpace(r.Emission),
		Displacement:  strings.TrimSpace(r.ExhaustVol),
		DriveType:     strings.TrimSpace(r.DrivenType),
	}
}

// FromManualInput 人工录入 -> 统一形状。
func FromManualInput(r ManualInput) Model {
	return Model{
		Code:          strings.TrimSpace(r.Code),
		Source:        SourceManual,
		Name:          strings.TrimSpace(r.Name),
		Brand:         strings.TrimSpace(r.Brand),
		Family:        strings.TrimSpace(r.Family),
		BodyType:      strings.TrimSpace(r.BodyType),
		Engine:        strings.TrimSpace(r.Engine),
		Gearbox:       strings.TrimSpace(r.Gearbox),
		YearPattern:   strings.TrimSpace(r.YearPattern),
		TrimLevel:     strings.TrimSpace(r.TrimLevel),
		PurchasePrice: r.PurchasePrice,
		SeatCount:     r.SeatCount,
		EmissionStd:   strings.TrimSpace(r.EmissionStd),
		Displacement:  strings.TrimSpace(r.Displacement),
		DriveType:     strings.TrimSpace(r.DriveType),
	}
}
