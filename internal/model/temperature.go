package model

// TemperatureRow is a single temperature measurement taken next to the camera.
type TemperatureRow struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Timestamp Timestamp `gorm:"column:timestamp"`
	TempDegC  float64   `gorm:"column:temp_deg_c"`
}

// TableName implements gorm's tabler interface.
func (TemperatureRow) TableName() string {
	return TemperaturesTable
}
