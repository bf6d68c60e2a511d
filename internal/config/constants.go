package config

// Risk thresholds on the SPI.
const (
	SPILowRisk    = 0.95
	SPIMediumRisk = 0.80
)

// Trend classification threshold: velocity average delta beyond +/-10%.
const TrendDelta = 0.10

// Utilization bucket edges.
const (
	UtilGreyBelow  = 0.50
	UtilGreenLow   = 0.70
	UtilGreenHigh  = 0.90
	UtilFullyUsed  = 1.00
)

// Time tracking limits, in hours per user per calendar day.
const (
	DailyWarningHours = 12.0
	DailyHardCapHours = 24.0
)

// Velocity moving average windows.
const (
	AvgShortWindow = 3
	AvgLongWindow  = 6
)

// Database/application settings.
const (
	AppName    = "sprintlens"
	DBFileName = "sprintlens.db"
)
