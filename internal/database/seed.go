package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Brownie44l1/pdaq-server/internal/models"
)

// Seed inserts demo users, sensors, sessions, links and one reading per link.
func Seed(ctx context.Context, db Database) error {
	for i := 1; i <= 4; i++ {
		user, err := db.InsertUser(ctx, models.User{
			Username:     fmt.Sprintf("user_%d", i),
			PasswordHash: fmt.Sprintf("pass_%d", i),
		})
		if err != nil {
			return err
		}
		sensor, err := db.InsertSensor(ctx, models.Sensor{Type: fmt.Sprintf("sensor_type_%d", i)})
		if err != nil {
			return err
		}
		session, err := db.InsertSession(ctx, models.Session{Username: user.Username})
		if err != nil {
			return err
		}
		link, err := db.InsertSessionSensor(ctx, models.SessionSensor{
			SessionID: session.ID,
			SensorID:  sensor.ID,
		})
		if err != nil {
			return err
		}
		_, err = db.InsertSessionSensorData(ctx, models.SessionSensorData{
			ID:       link.ID,
			Datetime: fmt.Sprintf("2025-01-0%dT00:00:00Z", i),
			DataBlob: json.RawMessage(fmt.Sprintf(`{"value":%d}`, i)),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
