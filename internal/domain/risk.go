package domain

import "time"

// AlertKind enumerates the three risk detection algorithms.
type AlertKind string

const (
	AlertPriceChange          AlertKind = "price_change"
	AlertDirectionDisagreement AlertKind = "direction_disagreement"
	AlertAvailability         AlertKind = "availability"
)

// AlertSeverity bands the magnitude of a detected risk.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityElevated AlertSeverity = "elevated"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus is the operator workflow status of a RiskAlert.
type AlertStatus string

const (
	AlertStatusNew          AlertStatus = "new"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusPast         AlertStatus = "past"
)

// RiskAlert is one detected risk event.
type RiskAlert struct {
	ID                 int64
	EventID             int64
	BookmakerSlug       BookmakerSlug
	MarketID            string
	MarketName          string
	Line                *float64
	OutcomeName         *string
	Kind                AlertKind
	Severity            AlertSeverity
	ChangePercent       float64
	OldValue            *float64
	NewValue            *float64
	CompetitorDirection *string
	DetectedAt          time.Time
	AcknowledgedAt      *time.Time
	Status              AlertStatus
	EventKickoff        time.Time
}

// AlertThresholds are the configurable % bands used by risk.ClassifySeverity.
type AlertThresholds struct {
	Warning  float64
	Elevated float64
	Critical float64
}

// DefaultAlertThresholds are the stock severity bands.
var DefaultAlertThresholds = AlertThresholds{Warning: 7.0, Elevated: 10.0, Critical: 15.0}
