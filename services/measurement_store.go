package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"healthwatch-server/models"
)

const (
	DefaultListLimit  = 50
	DefaultRangeLimit = 100
	MaxListLimit      = 500
)

// Stats periods.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

// MeasurementInput is a measurement as a sender submits it.
type MeasurementInput struct {
	Type      string  `json:"type"`
	HeartRate int     `json:"heartRate"`
	SpO2      int     `json:"spO2"`
	Stress    int     `json:"stress"`
	Steps     int     `json:"steps"`
	Calories  float64 `json:"calories"`
	Duration  string  `json:"duration"`
}

func (in MeasurementInput) validate() error {
	if in.HeartRate < 0 || in.SpO2 < 0 || in.Stress < 0 || in.Steps < 0 || in.Calories < 0 {
		return fmt.Errorf("%w: measurement values must not be negative", ErrValidation)
	}
	if in.SpO2 > 100 {
		return fmt.Errorf("%w: spO2 %d is above 100", ErrValidation, in.SpO2)
	}
	return nil
}

// NormalizeLimit clamps a requested page size to (0, MaxListLimit], using def
// for missing or non-positive values.
func NormalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// MeasurementStore persists wearable telemetry. The realtime relay and the
// REST handlers share it.
type MeasurementStore struct {
	db     *gorm.DB
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewMeasurementStore creates a store whose calendar days ("today", date
// ranges) are evaluated in loc.
func NewMeasurementStore(db *gorm.DB, loc *time.Location, logger *zap.Logger) *MeasurementStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MeasurementStore{db: db, loc: loc, logger: logger, now: time.Now}
}

// Create stores a measurement for userID. A blank type becomes "manual" and a
// blank duration "00:00".
func (s *MeasurementStore) Create(ctx context.Context, userID uint, in MeasurementInput) (*models.Measurement, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: measurement needs a user", ErrValidation)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	measurement := &models.Measurement{
		UserID:    userID,
		Type:      strings.TrimSpace(in.Type),
		HeartRate: in.HeartRate,
		SpO2:      in.SpO2,
		Stress:    in.Stress,
		Steps:     in.Steps,
		Calories:  in.Calories,
		Duration:  strings.TrimSpace(in.Duration),
		CreatedAt: s.now().UTC(),
	}
	if measurement.Type == "" {
		measurement.Type = models.MeasurementTypeManual
	}
	if measurement.Duration == "" {
		measurement.Duration = models.DefaultDuration
	}

	if err := s.db.WithContext(ctx).Create(measurement).Error; err != nil {
		return nil, persistenceError("create measurement", err)
	}
	s.logger.Debug("💾 Measurement stored",
		zap.Uint("user_id", userID),
		zap.Uint("measurement_id", measurement.ID),
		zap.String("type", measurement.Type))
	return measurement, nil
}

func (s *MeasurementStore) forUser(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
}

// Latest returns the user's newest measurement, or ErrNotFound.
func (s *MeasurementStore) Latest(ctx context.Context, userID uint) (*models.Measurement, error) {
	var measurement models.Measurement
	err := s.forUser(ctx, userID).First(&measurement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no measurements for user %d", ErrNotFound, userID)
	}
	if err != nil {
		return nil, persistenceError("load latest measurement", err)
	}
	return &measurement, nil
}

// List returns the user's newest measurements, limit clamped by NormalizeLimit.
func (s *MeasurementStore) List(ctx context.Context, userID uint, limit int) ([]models.Measurement, error) {
	var measurements []models.Measurement
	err := s.forUser(ctx, userID).Limit(NormalizeLimit(limit, DefaultListLimit)).Find(&measurements).Error
	if err != nil {
		return nil, persistenceError("list measurements", err)
	}
	return measurements, nil
}

func (s *MeasurementStore) ListByType(ctx context.Context, userID uint, measurementType string, limit int) ([]models.Measurement, error) {
	var measurements []models.Measurement
	err := s.forUser(ctx, userID).
		Where("type = ?", strings.TrimSpace(measurementType)).
		Limit(NormalizeLimit(limit, DefaultListLimit)).
		Find(&measurements).Error
	if err != nil {
		return nil, persistenceError("list measurements by type", err)
	}
	return measurements, nil
}

// ListByDateRange returns measurements created on calendar days startDate
// through endDate inclusive (YYYY-MM-DD, store location).
func (s *MeasurementStore) ListByDateRange(ctx context.Context, userID uint, startDate, endDate string, limit int) ([]models.Measurement, error) {
	start, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(startDate), s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: startDate %q is not YYYY-MM-DD", ErrValidation, startDate)
	}
	end, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(endDate), s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: endDate %q is not YYYY-MM-DD", ErrValidation, endDate)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: endDate is before startDate", ErrValidation)
	}

	var measurements []models.Measurement
	err = s.forUser(ctx, userID).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.AddDate(0, 0, 1).UTC()).
		Limit(NormalizeLimit(limit, DefaultRangeLimit)).
		Find(&measurements).Error
	if err != nil {
		return nil, persistenceError("list measurements by date range", err)
	}
	return measurements, nil
}

// Today returns every measurement created since local midnight.
func (s *MeasurementStore) Today(ctx context.Context, userID uint) ([]models.Measurement, error) {
	var measurements []models.Measurement
	err := s.forUser(ctx, userID).
		Where("created_at >= ?", s.startOfDay(s.now()).UTC()).
		Find(&measurements).Error
	if err != nil {
		return nil, persistenceError("list today's measurements", err)
	}
	return measurements, nil
}

// GetByID returns the measurement only when userID owns it.
func (s *MeasurementStore) GetByID(ctx context.Context, userID, id uint) (*models.Measurement, error) {
	var measurement models.Measurement
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&measurement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: measurement %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, persistenceError("load measurement", err)
	}
	return &measurement, nil
}

// Delete removes the measurement only when both id and owner match.
func (s *MeasurementStore) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Measurement{})
	if res.Error != nil {
		return persistenceError("delete measurement", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: measurement %d", ErrNotFound, id)
	}
	return nil
}

func (s *MeasurementStore) startOfDay(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

// MetricRange summarizes one vital. Averages include zero readings.
type MetricRange struct {
	Average int `json:"average"`
	Max     int `json:"max"`
	Min     int `json:"min"`
}

type ActivityTotals struct {
	TotalSteps    int     `json:"totalSteps"`
	TotalCalories float64 `json:"totalCalories"`
}

type StatsSummary struct {
	TotalRecords    int            `json:"totalRecords"`
	UniqueTypes     int            `json:"uniqueTypes"`
	HeartRate       MetricRange    `json:"heartRate"`
	SpO2            MetricRange    `json:"spO2"`
	Stress          MetricRange    `json:"stress"`
	Activity        ActivityTotals `json:"activity"`
	LastMeasurement *time.Time     `json:"lastMeasurement"`
}

type TypeStats struct {
	Type         string `json:"type"`
	Count        int    `json:"count"`
	AvgHeartRate int    `json:"avgHeartRate"`
	AvgSpO2      int    `json:"avgSpO2"`
	AvgStress    int    `json:"avgStress"`
}

type MeasurementStats struct {
	Period  string       `json:"period"`
	Summary StatsSummary `json:"summary"`
	ByType  []TypeStats  `json:"byType"`
}

// Stats aggregates the user's measurements over period (today, week = last 7
// days, month = last 30 days, all). An empty period means all.
func (s *MeasurementStore) Stats(ctx context.Context, userID uint, period string) (*MeasurementStats, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	if period == "" {
		period = PeriodAll
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	now := s.now()
	switch period {
	case PeriodToday:
		query = query.Where("created_at >= ?", s.startOfDay(now).UTC())
	case PeriodWeek:
		query = query.Where("created_at >= ?", now.AddDate(0, 0, -7).UTC())
	case PeriodMonth:
		query = query.Where("created_at >= ?", now.AddDate(0, 0, -30).UTC())
	case PeriodAll:
	default:
		return nil, fmt.Errorf("%w: unknown period %q", ErrValidation, period)
	}

	var measurements []models.Measurement
	if err := query.Find(&measurements).Error; err != nil {
		return nil, persistenceError("load measurements for stats", err)
	}
	return aggregateStats(period, measurements), nil
}

type vitalAccumulator struct {
	sum      int
	max, min int
	n        int
}

func (a *vitalAccumulator) add(v int) {
	if a.n == 0 || v > a.max {
		a.max = v
	}
	if a.n == 0 || v < a.min {
		a.min = v
	}
	a.sum += v
	a.n++
}

func (a *vitalAccumulator) average() int {
	if a.n == 0 {
		return 0
	}
	return int(math.Round(float64(a.sum) / float64(a.n)))
}

func (a *vitalAccumulator) summary() MetricRange {
	return MetricRange{Average: a.average(), Max: a.max, Min: a.min}
}

func aggregateStats(period string, measurements []models.Measurement) *MeasurementStats {
	var heart, spo2, stress vitalAccumulator
	stats := &MeasurementStats{Period: period, ByType: []TypeStats{}}

	type typeAcc struct{ heart, spo2, stress vitalAccumulator }
	byType := make(map[string]*typeAcc)

	for i := range measurements {
		m := &measurements[i]
		heart.add(m.HeartRate)
		spo2.add(m.SpO2)
		stress.add(m.Stress)
		stats.Summary.Activity.TotalSteps += m.Steps
		stats.Summary.Activity.TotalCalories += m.Calories

		created := m.CreatedAt
		if stats.Summary.LastMeasurement == nil || created.After(*stats.Summary.LastMeasurement) {
			stats.Summary.LastMeasurement = &created
		}

		acc, ok := byType[m.Type]
		if !ok {
			acc = &typeAcc{}
			byType[m.Type] = acc
		}
		acc.heart.add(m.HeartRate)
		acc.spo2.add(m.SpO2)
		acc.stress.add(m.Stress)
	}

	stats.Summary.TotalRecords = len(measurements)
	stats.Summary.UniqueTypes = len(byType)
	stats.Summary.HeartRate = heart.summary()
	stats.Summary.SpO2 = spo2.summary()
	stats.Summary.Stress = stress.summary()

	for t, acc := range byType {
		stats.ByType = append(stats.ByType, TypeStats{
			Type:         t,
			Count:        acc.heart.n,
			AvgHeartRate: acc.heart.average(),
			AvgSpO2:      acc.spo2.average(),
			AvgStress:    acc.stress.average(),
		})
	}
	sort.Slice(stats.ByType, func(i, j int) bool {
		if stats.ByType[i].Count != stats.ByType[j].Count {
			return stats.ByType[i].Count > stats.ByType[j].Count
		}
		return stats.ByType[i].Type < stats.ByType[j].Type
	})
	return stats
}
