package models

// Session is one acquisition run owned by a user
type Session struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type PublicSession struct {
	SessionID int64  `json:"session_id"`
	Username  string `json:"username"`
}

func (Session) TypeName() string { return "session" }

func (Session) RequiredValues() string {
	return ` Requires value "username": string`
}

func (s Session) Validate() error {
	if s.Username == "" {
		return invalid(s, "requires a username")
	}
	return nil
}

func (s Session) Public() any {
	return PublicSession{SessionID: s.ID, Username: s.Username}
}

// SessionSensor links a sensor to a session. Datapoints hang off the link.
type SessionSensor struct {
	ID        int64 `json:"id"`
	SessionID int64 `json:"session_id"`
	SensorID  int64 `json:"sensor_id"`
}

func (SessionSensor) TypeName() string { return "session sensor" }

func (SessionSensor) RequiredValues() string {
	return ` Requires values "session_id": integer and "sensor_id": integer`
}

func (s SessionSensor) Validate() error {
	if s.SessionID <= 0 {
		return invalid(s, "requires a session_id")
	}
	if s.SensorID <= 0 {
		return invalid(s, "requires a sensor_id")
	}
	return nil
}

func (s SessionSensor) Public() any { return s }
