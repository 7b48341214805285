package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Brownie44l1/pdaq-server/internal/models"
)

// SQLite is a Database backed by a single SQLite connection
type SQLite struct {
	db     *sql.DB
	admins map[string]bool
	now    func() time.Time
}

// OpenSQLite opens path, enables WAL and foreign keys and applies the
// embedded migrations. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string, admins ...string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: pragmas are per-connection and ":memory:" is too.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode=WAL;`, `PRAGMA foreign_keys=ON;`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{
		db:     db,
		admins: adminSet(admins),
		now:    time.Now,
	}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// mapErr converts driver errors to the package sentinels
func mapErr(kind string, key any, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(kind, key)
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%s %v: %w: %v", kind, key, ErrInvalid, err)
	}
	return fmt.Errorf("%s %v: %w", kind, key, err)
}

// expectRow returns ErrNotFound when an UPDATE or DELETE matched nothing
func expectRow(res sql.Result, kind string, key any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, key)
	}
	return nil
}

/* Authentication */

func (s *SQLite) SessionUser(ctx context.Context, token string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.username, u.password_hash
		FROM auth_tokens t JOIN users u ON u.username = t.username
		WHERE t.token = ? AND t.expires_at > ?`,
		token, s.now().Unix(),
	).Scan(&u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUnauthorized
	}
	if err != nil {
		return models.User{}, mapErr("session", token, err)
	}
	return u, nil
}

func (s *SQLite) IsAdmin(ctx context.Context, user models.User) bool {
	return s.admins[user.Username]
}

func (s *SQLite) Login(ctx context.Context, user models.User) (string, error) {
	stored, err := s.User(ctx, user.Username)
	if err != nil || stored.PasswordHash != user.PasswordHash {
		return "", ErrUnauthorized
	}
	return s.issue(ctx, s.db, stored.Username)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLite) issue(ctx context.Context, ex execer, username string) (string, error) {
	token := uuid.NewString()
	_, err := ex.ExecContext(ctx,
		`INSERT INTO auth_tokens (token, username, expires_at) VALUES (?, ?, ?)`,
		token, username, s.now().Add(SessionTTL).Unix(),
	)
	if err != nil {
		return "", mapErr("session", username, err)
	}
	return token, nil
}

func (s *SQLite) Logout(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token = ?`, token)
	if err != nil {
		return mapErr("session", token, err)
	}
	if err := expectRow(res, "session", token); err != nil {
		return ErrUnauthorized
	}
	return nil
}

func (s *SQLite) RenewSession(ctx context.Context, token string) (string, error) {
	u, err := s.SessionUser(ctx, token)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token = ?`, token); err != nil {
		return "", mapErr("session", token, err)
	}
	next, err := s.issue(ctx, tx, u.Username)
	if err != nil {
		return "", err
	}
	return next, tx.Commit()
}

/* Users */

func (s *SQLite) InsertUser(ctx context.Context, user models.User) (models.User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		user.Username, user.PasswordHash,
	)
	if err != nil {
		return models.User{}, mapErr("user", user.Username, err)
	}
	return user, nil
}

func (s *SQLite) Users(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username, password_hash FROM users ORDER BY username`)
	if err != nil {
		return nil, mapErr("user", "*", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Username, &u.PasswordHash); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLite) User(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash FROM users WHERE username = ?`, username,
	).Scan(&u.Username, &u.PasswordHash)
	if err != nil {
		return models.User{}, mapErr("user", username, err)
	}
	return u, nil
}

// UpdateUser changes the password hash; the username is the key.
func (s *SQLite) UpdateUser(ctx context.Context, username string, user models.User) (models.User, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE username = ?`, user.PasswordHash, username,
	)
	if err != nil {
		return models.User{}, mapErr("user", username, err)
	}
	if err := expectRow(res, "user", username); err != nil {
		return models.User{}, err
	}
	return models.User{Username: username, PasswordHash: user.PasswordHash}, nil
}

func (s *SQLite) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return mapErr("user", username, err)
	}
	return expectRow(res, "user", username)
}

/* Sensors */

func (s *SQLite) InsertSensor(ctx context.Context, sensor models.Sensor) (models.Sensor, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO sensors (type) VALUES (?)`, sensor.Type)
	if err != nil {
		return models.Sensor{}, mapErr("sensor", sensor.Type, err)
	}
	sensor.ID, err = res.LastInsertId()
	return sensor, err
}

func (s *SQLite) Sensors(ctx context.Context) ([]models.Sensor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type FROM sensors ORDER BY id`)
	if err != nil {
		return nil, mapErr("sensor", "*", err)
	}
	defer rows.Close()

	out := []models.Sensor{}
	for rows.Next() {
		var sn models.Sensor
		if err := rows.Scan(&sn.ID, &sn.Type); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (s *SQLite) Sensor(ctx context.Context, id int64) (models.Sensor, error) {
	var sn models.Sensor
	err := s.db.QueryRowContext(ctx, `SELECT id, type FROM sensors WHERE id = ?`, id).Scan(&sn.ID, &sn.Type)
	if err != nil {
		return models.Sensor{}, mapErr("sensor", id, err)
	}
	return sn, nil
}

func (s *SQLite) UpdateSensor(ctx context.Context, id int64, sensor models.Sensor) (models.Sensor, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE sensors SET type = ? WHERE id = ?`, sensor.Type, id)
	if err != nil {
		return models.Sensor{}, mapErr("sensor", id, err)
	}
	if err := expectRow(res, "sensor", id); err != nil {
		return models.Sensor{}, err
	}
	sensor.ID = id
	return sensor, nil
}

func (s *SQLite) DeleteSensor(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sensors WHERE id = ?`, id)
	if err != nil {
		return mapErr("sensor", id, err)
	}
	return expectRow(res, "sensor", id)
}

/* Sessions */

func (s *SQLite) InsertSession(ctx context.Context, session models.Session) (models.Session, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO sessions (username) VALUES (?)`, session.Username)
	if err != nil {
		return models.Session{}, mapErr("session", session.Username, err)
	}
	session.ID, err = res.LastInsertId()
	return session, err
}

func (s *SQLite) querySessions(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr("session", "*", err)
	}
	defer rows.Close()

	out := []models.Session{}
	for rows.Next() {
		var sn models.Session
		if err := rows.Scan(&sn.ID, &sn.Username); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (s *SQLite) Sessions(ctx context.Context) ([]models.Session, error) {
	return s.querySessions(ctx, `SELECT id, username FROM sessions ORDER BY id`)
}

func (s *SQLite) UserSessions(ctx context.Context, username string) ([]models.Session, error) {
	return s.querySessions(ctx, `SELECT id, username FROM sessions WHERE username = ? ORDER BY id`, username)
}

func (s *SQLite) Session(ctx context.Context, id int64) (models.Session, error) {
	var sn models.Session
	err := s.db.QueryRowContext(ctx, `SELECT id, username FROM sessions WHERE id = ?`, id).Scan(&sn.ID, &sn.Username)
	if err != nil {
		return models.Session{}, mapErr("session", id, err)
	}
	return sn, nil
}

func (s *SQLite) UpdateSession(ctx context.Context, id int64, session models.Session) (models.Session, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET username = ? WHERE id = ?`, session.Username, id)
	if err != nil {
		return models.Session{}, mapErr("session", id, err)
	}
	if err := expectRow(res, "session", id); err != nil {
		return models.Session{}, err
	}
	session.ID = id
	return session, nil
}

func (s *SQLite) DeleteSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return mapErr("session", id, err)
	}
	return expectRow(res, "session", id)
}

/* Session sensors */

func (s *SQLite) InsertSessionSensor(ctx context.Context, link models.SessionSensor) (models.SessionSensor, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO session_sensors (session_id, sensor_id) VALUES (?, ?)`,
		link.SessionID, link.SensorID,
	)
	if err != nil {
		return models.SessionSensor{}, mapErr("session sensor", link.SessionID, err)
	}
	link.ID, err = res.LastInsertId()
	return link, err
}

func (s *SQLite) queryLinks(ctx context.Context, query string, args ...any) ([]models.SessionSensor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr("session sensor", "*", err)
	}
	defer rows.Close()

	out := []models.SessionSensor{}
	for rows.Next() {
		var l models.SessionSensor
		if err := rows.Scan(&l.ID, &l.SessionID, &l.SensorID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLite) SessionsSensors(ctx context.Context) ([]models.SessionSensor, error) {
	return s.queryLinks(ctx, `SELECT id, session_id, sensor_id FROM session_sensors ORDER BY id`)
}

func (s *SQLite) SessionSensors(ctx context.Context, sessionID int64) ([]models.SessionSensor, error) {
	return s.queryLinks(ctx,
		`SELECT id, session_id, sensor_id FROM session_sensors WHERE session_id = ? ORDER BY id`, sessionID)
}

func (s *SQLite) SessionSensor(ctx context.Context, id int64) (models.SessionSensor, error) {
	var l models.SessionSensor
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, sensor_id FROM session_sensors WHERE id = ?`, id,
	).Scan(&l.ID, &l.SessionID, &l.SensorID)
	if err != nil {
		return models.SessionSensor{}, mapErr("session sensor", id, err)
	}
	return l, nil
}

func (s *SQLite) UpdateSessionSensor(ctx context.Context, id int64, link models.SessionSensor) (models.SessionSensor, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE session_sensors SET session_id = ?, sensor_id = ? WHERE id = ?`,
		link.SessionID, link.SensorID, id,
	)
	if err != nil {
		return models.SessionSensor{}, mapErr("session sensor", id, err)
	}
	if err := expectRow(res, "session sensor", id); err != nil {
		return models.SessionSensor{}, err
	}
	link.ID = id
	return link, nil
}

func (s *SQLite) DeleteSessionSensor(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_sensors WHERE id = ?`, id)
	if err != nil {
		return mapErr("session sensor", id, err)
	}
	return expectRow(res, "session sensor", id)
}

/* Session sensor data */

const insertDatapoint = `INSERT INTO session_sensor_data (session_sensor_id, datetime, data_blob) VALUES (?, ?, ?)`

func (s *SQLite) InsertSessionSensorData(ctx context.Context, d models.SessionSensorData) (models.SessionSensorData, error) {
	_, err := s.db.ExecContext(ctx, insertDatapoint, d.ID, d.Datetime, string(d.DataBlob))
	if err != nil {
		return models.SessionSensorData{}, mapErr("datapoint", d.Datetime, err)
	}
	return d, nil
}

// BatchSessionSensorData inserts every datapoint in one transaction.
func (s *SQLite) BatchSessionSensorData(ctx context.Context, data []models.SessionSensorData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertDatapoint)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range data {
		if _, err := stmt.ExecContext(ctx, d.ID, d.Datetime, string(d.DataBlob)); err != nil {
			return mapErr("datapoint", d.Datetime, err)
		}
	}
	return tx.Commit()
}

const selectDatapoints = `
	SELECT d.session_sensor_id, d.datetime, d.data_blob
	FROM session_sensor_data d`

func (s *SQLite) queryData(ctx context.Context, query string, args ...any) ([]models.SessionSensorData, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr("datapoint", "*", err)
	}
	defer rows.Close()

	out := []models.SessionSensorData{}
	for rows.Next() {
		var (
			d    models.SessionSensorData
			blob string
		)
		if err := rows.Scan(&d.ID, &d.Datetime, &blob); err != nil {
			return nil, err
		}
		d.DataBlob = json.RawMessage(blob)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLite) SessionsSensorsData(ctx context.Context) ([]models.SessionSensorData, error) {
	return s.queryData(ctx, selectDatapoints+` ORDER BY d.session_sensor_id, d.datetime`)
}

func (s *SQLite) SessionSensorDataBySession(ctx context.Context, sessionID int64) ([]models.SessionSensorData, error) {
	return s.SessionSensorDataBySessionAfter(ctx, sessionID, "")
}

// SessionSensorDataBySessionAfter returns readings strictly later than after.
// Datetimes compare as strings.
func (s *SQLite) SessionSensorDataBySessionAfter(ctx context.Context, sessionID int64, after string) ([]models.SessionSensorData, error) {
	return s.queryData(ctx, selectDatapoints+`
		JOIN session_sensors ss ON ss.id = d.session_sensor_id
		WHERE ss.session_id = ? AND d.datetime > ?
		ORDER BY d.session_sensor_id, d.datetime`,
		sessionID, after,
	)
}

func (s *SQLite) SessionSensorData(ctx context.Context, linkID int64) ([]models.SessionSensorData, error) {
	return s.queryData(ctx, selectDatapoints+`
		WHERE d.session_sensor_id = ?
		ORDER BY d.datetime`,
		linkID,
	)
}

func (s *SQLite) Datapoint(ctx context.Context, linkID int64, datetime string) (models.SessionSensorData, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT data_blob FROM session_sensor_data WHERE session_sensor_id = ? AND datetime = ?`,
		linkID, datetime,
	).Scan(&blob)
	if err != nil {
		return models.SessionSensorData{}, mapErr("datapoint", datetime, err)
	}
	return models.SessionSensorData{ID: linkID, Datetime: datetime, DataBlob: json.RawMessage(blob)}, nil
}

// UpdateDatapoint replaces the data blob; the link id and datetime are the key.
func (s *SQLite) UpdateDatapoint(ctx context.Context, linkID int64, datetime string, d models.SessionSensorData) (models.SessionSensorData, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE session_sensor_data SET data_blob = ? WHERE session_sensor_id = ? AND datetime = ?`,
		string(d.DataBlob), linkID, datetime,
	)
	if err != nil {
		return models.SessionSensorData{}, mapErr("datapoint", datetime, err)
	}
	if err := expectRow(res, "datapoint", datetime); err != nil {
		return models.SessionSensorData{}, err
	}
	return models.SessionSensorData{ID: linkID, Datetime: datetime, DataBlob: d.DataBlob}, nil
}

func (s *SQLite) DeleteDatapoint(ctx context.Context, linkID int64, datetime string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_sensor_data WHERE session_sensor_id = ? AND datetime = ?`, linkID, datetime)
	if err != nil {
		return mapErr("datapoint", datetime, err)
	}
	return expectRow(res, "datapoint", datetime)
}
