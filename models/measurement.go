package models

import "time"

const (
	// MeasurementTypeManual is used when a sender gives no type.
	MeasurementTypeManual = "manual"
	// DefaultDuration is stored when a sender gives no duration.
	DefaultDuration = "00:00"
)

// Measurement is one wearable telemetry record. Immutable once created; the
// owner may delete it.
type Measurement struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"not null;index:idx_measurements_user_created,priority:1"`
	Type      string    `json:"type" gorm:"size:64;not null;index"`
	HeartRate int       `json:"heartRate" gorm:"not null;default:0"`
	SpO2      int       `json:"spO2" gorm:"column:spo2;not null;default:0"`
	Stress    int       `json:"stress" gorm:"not null;default:0"`
	Steps     int       `json:"steps" gorm:"not null;default:0"`
	Calories  float64   `json:"calories" gorm:"not null;default:0"`
	Duration  string    `json:"duration" gorm:"size:16;not null;default:'00:00'"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index:idx_measurements_user_created,priority:2"`
}

// TableName specifies the table name for the Measurement model
func (Measurement) TableName() string {
	return "watch_measurements"
}
