package vehiclemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSource(t *testing.T) {
	for _, ok := range []string{"vin", "license", "manual", " vin "} {
		if _, err := ParseSource(ok); err != nil {
			t.Fatalf("ParseSource(%q): %v", ok, err)
		}
	}
	if _, err := ParseSource("crawler"); err == nil {
		t.Fatalf("expected unknown source error")
	}
}

func TestFromVinRecord(t *testing.T) {
	m := FromVinRecord(VinRecord{
		ModelCode:     "BMW3-2021",
		FullName:      "宝马3系 2021款",
		BrandName:     "宝马",
		FamilyName:    "3系",
		BodyType:      "轿车",
		EngineDesc:    "B48 2.0T",
		GearboxType:   "8AT",
		YearPattern:   "2021",
		CfgLevel:      "325Li",
		PurchasePrice: 319900,
		SeatNum:       5,
		DischargeStd:  "国六",
		Displacement:  "2.0",
		DriveMode:     "后驱",
	})
	assert.Equal(t, SourceVin, m.Source)
	assert.Equal(t, "BMW3-2021", m.Code)
	assert.Equal(t, "宝马", m.Brand)
	assert.Equal(t, "8AT", m.Gearbox)
	assert.Equal(t, 5, m.SeatCount)
}

func TestFromLicenseRecordConvergesToSameShape(t *testing.T) {
	m := FromLicenseRecord(LicenseRecord{
		Code:         "BMW3-2021",
		Title:        "宝马3系 2021款",
		Brand:        "宝马",
		Series:       "3系",
		Transmission: "8AT",
		Seats:        5,
	})
	assert.Equal(t, SourceLicense, m.Source)
	assert.Equal(t, "宝马3系 2021款", m.Name)
	assert.Equal(t, "3系", m.Family)
	assert.Equal(t, "8AT", m.Gearbox)
}

func TestFromManualInput(t *testing.T) {
	m := FromManualInput(ManualInput{Code: " M-1 ", Name: "手工车型", SeatCount: 7})
	assert.Equal(t, SourceManual, m.Source)
	assert.Equal(t, "M-1", m.Code)
	assert.Equal(t, 7, m.SeatCount)
}
