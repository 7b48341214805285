// Package database defines the storage capability used by the router and
// its two backends: an in-memory mock and SQLite.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Brownie44l1/pdaq-server/internal/models"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid record")
	ErrUnauthorized = errors.New("unauthorized")
)

// SessionTTL is how long a login token stays valid. It matches the
// Max-Age of the session cookie.
const SessionTTL = time.Hour

// Database is the storage capability. Lookups that miss return ErrNotFound;
// writes that break a constraint return ErrInvalid.
type Database interface {
	// Authentication
	SessionUser(ctx context.Context, token string) (models.User, error)
	IsAdmin(ctx context.Context, user models.User) bool
	Login(ctx context.Context, user models.User) (string, error)
	Logout(ctx context.Context, token string) error
	RenewSession(ctx context.Context, token string) (string, error)

	// Users
	InsertUser(ctx context.Context, user models.User) (models.User, error)
	Users(ctx context.Context) ([]models.User, error)
	User(ctx context.Context, username string) (models.User, error)
	UpdateUser(ctx context.Context, username string, user models.User) (models.User, error)
	DeleteUser(ctx context.Context, username string) error

	// Sensors
	InsertSensor(ctx context.Context, sensor models.Sensor) (models.Sensor, error)
	Sensors(ctx context.Context) ([]models.Sensor, error)
	Sensor(ctx context.Context, id int64) (models.Sensor, error)
	UpdateSensor(ctx context.Context, id int64, sensor models.Sensor) (models.Sensor, error)
	DeleteSensor(ctx context.Context, id int64) error

	// Sessions
	InsertSession(ctx context.Context, session models.Session) (models.Session, error)
	Sessions(ctx context.Context) ([]models.Session, error)
	Session(ctx context.Context, id int64) (models.Session, error)
	UserSessions(ctx context.Context, username string) ([]models.Session, error)
	UpdateSession(ctx context.Context, id int64, session models.Session) (models.Session, error)
	DeleteSession(ctx context.Context, id int64) error

	// Session sensors
	InsertSessionSensor(ctx context.Context, link models.SessionSensor) (models.SessionSensor, error)
	SessionsSensors(ctx context.Context) ([]models.SessionSensor, error)
	SessionSensors(ctx context.Context, sessionID int64) ([]models.SessionSensor, error)
	SessionSensor(ctx context.Context, id int64) (models.SessionSensor, error)
	UpdateSessionSensor(ctx context.Context, id int64, link models.SessionSensor) (models.SessionSensor, error)
	DeleteSessionSensor(ctx context.Context, id int64) error

	// Session sensor data
	InsertSessionSensorData(ctx context.Context, d models.SessionSensorData) (models.SessionSensorData, error)
	BatchSessionSensorData(ctx context.Context, data []models.SessionSensorData) error
	SessionsSensorsData(ctx context.Context) ([]models.SessionSensorData, error)
	SessionSensorDataBySession(ctx context.Context, sessionID int64) ([]models.SessionSensorData, error)
	SessionSensorDataBySessionAfter(ctx context.Context, sessionID int64, after string) ([]models.SessionSensorData, error)
	SessionSensorData(ctx context.Context, linkID int64) ([]models.SessionSensorData, error)
	Datapoint(ctx context.Context, linkID int64, datetime string) (models.SessionSensorData, error)
	UpdateDatapoint(ctx context.Context, linkID int64, datetime string, d models.SessionSensorData) (models.SessionSensorData, error)
	DeleteDatapoint(ctx context.Context, linkID int64, datetime string) error

	Close() error
}

// Options selects and configures a backend
type Options struct {
	// URL is a SQLite path (":memory:" allowed). Empty selects the mock.
	URL    string
	Admins []string
	// Seed loads the demo fixtures after opening
	Seed bool
}

// Open returns the backend described by opts
func Open(ctx context.Context, opts Options) (Database, error) {
	var (
		db  Database
		err error
	)
	if opts.URL == "" {
		db = NewMock(opts.Admins...)
	} else {
		db, err = OpenSQLite(ctx, opts.URL, opts.Admins...)
		if err != nil {
			return nil, err
		}
	}

	if opts.Seed {
		if err := Seed(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	return db, nil
}

func adminSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func notFound(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, ErrNotFound)
}
