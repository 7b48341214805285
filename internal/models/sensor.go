package models

type Sensor struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

func (Sensor) TypeName() string { return "sensor" }

func (Sensor) RequiredValues() string {
	return ` Requires value "type": string`
}

func (s Sensor) Validate() error {
	if s.Type == "" {
		return invalid(s, "requires a type")
	}
	return nil
}

func (s Sensor) Public() any { return s }
