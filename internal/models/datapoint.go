package models

import (
	"bytes"
	"encoding/json"
)

// SessionSensorData is one reading. ID is the session-sensor link id and
// (ID, Datetime) identifies the datapoint.
type SessionSensorData struct {
	ID       int64           `json:"id"`
	Datetime string          `json:"datetime"`
	DataBlob json.RawMessage `json:"data_blob"`
}

func (SessionSensorData) TypeName() string { return "session sensor data" }

func (SessionSensorData) RequiredValues() string {
	return ` Requires values "id": integer, "datetime": string and "data_blob": object`
}

func (d SessionSensorData) Validate() error {
	if d.ID <= 0 {
		return invalid(d, "requires an id")
	}
	if d.Datetime == "" {
		return invalid(d, "requires a datetime")
	}
	blob := bytes.TrimSpace(d.DataBlob)
	if len(blob) == 0 || blob[0] != '{' || !json.Valid(blob) {
		return invalid(d, "requires data_blob to be an object")
	}
	return nil
}

func (d SessionSensorData) Public() any { return d }

// Batch is the body of POST /sessions-sensors-data/batch
type Batch struct {
	Datapoints []SessionSensorData `json:"datapoints"`
}

func (Batch) TypeName() string { return "session sensor data batch" }

func (Batch) RequiredValues() string {
	return ` Requires the values "datapoints": array [ { "id": integer, "datetime": string, "data_blob": object }, ... ]`
}

func (b Batch) Validate() error {
	if b.Datapoints == nil {
		return invalid(b, "requires datapoints")
	}
	for _, d := range b.Datapoints {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (b Batch) Public() any { return b }
