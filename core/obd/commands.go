package obd

// Class groups commands by how their readings are reported.
type Class int

const (
	// ClassMetric readings carry a single scalar value.
	ClassMetric Class = iota
	// ClassMonitor readings carry an on-board test result block.
	ClassMonitor
	// ClassDTC readings carry diagnostic trouble codes.
	ClassDTC
)

// CommandDTC requests the stored diagnostic trouble codes.
const CommandDTC = "GET_DTC"

// MetricCommands lists the mode 01 PIDs polled as scalar telemetry. The order
// matches the watch setup order on connect.
var MetricCommands = []string{
	"ENGINE_LOAD",
	"COOLANT_TEMP",
	"SHORT_FUEL_TRIM_1",
	"LONG_FUEL_TRIM_1",
	"SHORT_FUEL_TRIM_2",
	"LONG_FUEL_TRIM_2",
	"FUEL_PRESSURE",
	"INTAKE_PRESSURE",
	"RPM",
	"SPEED",
	"TIMING_ADVANCE",
	"INTAKE_TEMP",
	"MAF",
	"THROTTLE_POS",
	"O2_B1S1",
	"O2_B1S2",
	"O2_B1S3",
	"O2_B1S4",
	"O2_B2S1",
	"O2_B2S2",
	"O2_B2S3",
	"O2_B2S4",
	"RUN_TIME",
	"DISTANCE_W_MIL",
	"FUEL_RAIL_PRESSURE_VAC",
	"FUEL_RAIL_PRESSURE_DIRECT",
	"O2_S1_WR_VOLTAGE",
	"O2_S2_WR_VOLTAGE",
	"O2_S3_WR_VOLTAGE",
	"O2_S4_WR_VOLTAGE",
	"O2_S5_WR_VOLTAGE",
	"O2_S6_WR_VOLTAGE",
	"O2_S7_WR_VOLTAGE",
	"O2_S8_WR_VOLTAGE",
	"COMMANDED_EGR",
	"EGR_ERROR",
	"EVAPORATIVE_PURGE",
	"FUEL_LEVEL",
	"WARMUPS_SINCE_DTC_CLEAR",
	"DISTANCE_SINCE_DTC_CLEAR",
	"EVAP_VAPOR_PRESSURE",
	"BAROMETRIC_PRESSURE",
	"O2_S1_WR_CURRENT",
	"O2_S2_WR_CURRENT",
	"O2_S3_WR_CURRENT",
	"O2_S4_WR_CURRENT",
	"O2_S5_WR_CURRENT",
	"O2_S6_WR_CURRENT",
	"O2_S7_WR_CURRENT",
	"O2_S8_WR_CURRENT",
	"CATALYST_TEMP_B1S1",
	"CATALYST_TEMP_B2S1",
	"CATALYST_TEMP_B1S2",
	"CATALYST_TEMP_B2S2",
	"CONTROL_MODULE_VOLTAGE",
	"ABSOLUTE_LOAD",
	"COMMANDED_EQUIV_RATIO",
	"RELATIVE_THROTTLE_POS",
	"AMBIANT_AIR_TEMP",
	"THROTTLE_POS_B",
	"THROTTLE_POS_C",
	"ACCELERATOR_POS_D",
	"ACCELERATOR_POS_E",
	"ACCELERATOR_POS_F",
	"THROTTLE_ACTUATOR",
	"RUN_TIME_MIL",
	"TIME_SINCE_DTC_CLEARED",
	"MAX_MAF",
	"ETHANOL_PERCENT",
	"EVAP_VAPOR_PRESSURE_ABS",
	"EVAP_VAPOR_PRESSURE_ALT",
	"SHORT_O2_TRIM_B1",
	"LONG_O2_TRIM_B1",
	"SHORT_O2_TRIM_B2",
	"LONG_O2_TRIM_B2",
	"FUEL_RAIL_PRESSURE_ABS",
	"RELATIVE_ACCEL_POS",
	"HYBRID_BATTERY_REMAINING",
	"OIL_TEMP",
	"FUEL_INJECT_TIMING",
	"FUEL_RATE",
}

// MonitorCommands lists the on-board monitor results worth publishing. More
// exist but most adapters answer them slowly, so only the catalyst monitor is
// polled.
var MonitorCommands = []string{
	"MONITOR_CATALYST_B1",
}

var classIndex = buildClassIndex()

func buildClassIndex() map[string]Class {
	idx := make(map[string]Class, len(MetricCommands)+len(MonitorCommands)+1)
	for _, c := range MetricCommands {
		idx[c] = ClassMetric
	}
	for _, c := range MonitorCommands {
		idx[c] = ClassMonitor
	}
	idx[CommandDTC] = ClassDTC
	return idx
}

// Classify returns the reporting class of cmd and whether cmd is known.
func Classify(cmd string) (Class, bool) {
	c, ok := classIndex[cmd]
	return c, ok
}

// Known reports whether cmd names a command this gateway understands.
func Known(cmd string) bool {
	_, ok := classIndex[cmd]
	return ok
}
