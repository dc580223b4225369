package vehicle

import (
	"time"

	"github.com/SmartLinkDrive/vehicle-profile/internal/vehiclemodel"
)

// Vehicle vehicles 表的 GORM 模型。
// license / engine_no / vin 允许包含通配符 '*'（上游脱敏产生）。
type Vehicle struct {
	ID       string `gorm:"primaryKey;size:36"`
	UID      string `gorm:"index;size:36"` // 提交人（分页列表 vehicle-<uid> 的 key）
	License  string `gorm:"size:32;index"`
	EngineNo string `gorm:"size:64"`
	VIN      string `gorm:"size:64;index"`

	RegisterDate   *time.Time
	InsuranceDate  *time.Time
	Transferred    bool   // 是否过户车
	FuelType       string `gorm:"size:16"`
	AccidentStatus string `gorm:"size:32"`

	OwnerID     string              `gorm:"index;size:36"` // 车主 persons.id
	ModelCode   string              `gorm:"size:64"`
	ModelSource vehiclemodel.Source `gorm:"type:varchar(16)"`

	Deleted   bool      `gorm:"index;not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Person persons 表的 GORM 模型。车主与司机共用：
// 司机的 vehicle_id 指向所属车辆，车主的 vehicle_id 为空。
type Person struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:64"`
	IDCardNo    string `gorm:"size:32;index"`
	Phone       string `gorm:"size:32"`
	IDCardFront string `gorm:"size:255"` // 证件照引用
	IDCardBack  string `gorm:"size:255"`
	VehicleID   string `gorm:"index;size:36"`
	IsPrimary   bool   // 主驾标记

	Deleted   bool      `gorm:"index;not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// PersonView 聚合实体里的人员子对象。
type PersonView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IDCardNo    string `json:"idCardNo"`
	Phone       string `json:"phone"`
	IDCardFront string `json:"idCardFront,omitempty"`
	IDCardBack  string `json:"idCardBack,omitempty"`
	IsPrimary   bool   `json:"isPrimary"`
}

// Aggregate 缓存里的去范式化聚合实体：
// 车辆标量字段 + owner + 有序 drivers + 车型子对象。
type Aggregate struct {
	ID             string              `json:"id"`
	UID            string              `json:"uid"`
	License        string              `json:"license"`
	EngineNo       string              `json:"engineNo"`
	VIN            string              `json:"vin"`
	RegisterDate   string              `json:"registerDate,omitempty"`
	InsuranceDate  string              `json:"insuranceDate,omitempty"`
	Transferred    bool                `json:"transferred"`
	FuelType       string              `json:"fuelType,omitempty"`
	AccidentStatus string              `json:"accidentStatus,omitempty"`
	Owner          *PersonView         `json:"owner,omitempty"`
	Drivers        []PersonView        `json:"drivers"`
	Model          *vehiclemodel.Model `json:"model,omitempty"`
}

func personView(p Person) PersonView {
	return PersonView{
		ID:          p.ID,
		Name:        p.Name,
		IDCardNo:    p.IDCardNo,
		Phone:       p.Phone,
		IDCardFront: p.IDCardFront,
		IDCardBack:  p.IDCardBack,
		IsPrimary:   p.IsPrimary,
	}
}

const dateLayout = "2006-01-02"

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
