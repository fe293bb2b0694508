package bus

// Topics builds every bus topic under a single namespace. Keeping the strings
// in one place means the router registrations, the publishers and the tests
// cannot drift apart.
type Topics struct {
	Namespace string
}

// NewTopics returns a Topics rooted at the given namespace.
func NewTopics(namespace string) Topics { return Topics{Namespace: namespace} }

// All returns the wildcard filter covering the whole namespace.
func (t Topics) All() string { return t.Namespace + "/#" }

func (t Topics) Health() string  { return t.Namespace + "/health" }
func (t Topics) Debug() string   { return t.Namespace + "/debug" }
func (t Topics) Message() string { return t.Namespace + "/message" }
func (t Topics) Pit() string     { return t.Namespace + "/pit" }
func (t Topics) Box() string     { return t.Namespace + "/box" }

// FlagPrefix is the prefix for race flag topics; the colour is the last
// segment, e.g. <ns>/flag/red.
func (t Topics) FlagPrefix() string { return t.Namespace + "/flag/" }

func (t Topics) OBDWatch() string   { return t.Namespace + "/obd2/watch" }
func (t Topics) OBDUnwatch() string { return t.Namespace + "/obd2/unwatch" }
func (t Topics) OBDQuery() string   { return t.Namespace + "/obd2/query" }

// Metric returns the topic for a named telemetry value, e.g. <ns>/RPM.
func (t Topics) Metric(name string) string { return t.Namespace + "/" + name }

// DTC returns the topic for a diagnostic trouble code, e.g. <ns>/DTC/P0301.
func (t Topics) DTC(code string) string { return t.Namespace + "/DTC/" + code }

func (t Topics) GPSPos() string       { return t.Namespace + "/gps/pos" }
func (t Topics) GPSLatitude() string  { return t.Namespace + "/gps/latitude" }
func (t Topics) GPSLongitude() string { return t.Namespace + "/gps/longitude" }
func (t Topics) GPSSpeed() string     { return t.Namespace + "/gps/speed" }
func (t Topics) GPSAltitude() string  { return t.Namespace + "/gps/altitude" }
func (t Topics) GPSTrack() string     { return t.Namespace + "/gps/track" }
