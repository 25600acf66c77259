package model

// Severity classifies a validation message.
type Severity string

// Severities. A fatal message makes the prepared series unusable.
const (
	SeverityWarning Severity = "warning"
	SeverityFatal   Severity = "fatal"
)

// MessageKind names the validation check that produced a message.
type MessageKind string

// Message kinds.
const (
	KindSchema           MessageKind = "schema"
	KindParse            MessageKind = "parse"
	KindOrder            MessageKind = "order"
	KindTemperatureRange MessageKind = "temperature_range"
	KindLeafDecrease     MessageKind = "leaf_decrease"
	KindMissingValue     MessageKind = "missing_value"
)

// Message is a human-readable validation finding.
type Message struct {
	Kind     MessageKind `json:"kind"`
	Severity Severity    `json:"severity"`
	Text     string      `json:"text"`
	// Rows holds 1-based data row numbers involved, when known.
	Rows []int `json:"rows,omitempty"`
	// Values holds offending raw cell values or column names.
	Values []string `json:"values,omitempty"`
}

// Fatal reports whether the message blocks estimation.
func (m Message) Fatal() bool { return m.Severity == SeverityFatal }

// HasFatal reports whether any message is fatal.
func HasFatal(msgs []Message) bool {
	for _, m := range msgs {
		if m.Fatal() {
			return true
		}
	}
	return false
}
