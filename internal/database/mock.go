package database

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Brownie44l1/pdaq-server/internal/models"
)

type datapointKey struct {
	link     int64
	datetime string
}

type authToken struct {
	username  string
	expiresAt time.Time
}

// Mock is an in-memory Database. It enforces the same references and
// cascades as the SQLite schema.
type Mock struct {
	mu     sync.RWMutex
	admins map[string]bool
	now    func() time.Time

	users    map[string]models.User
	sensors  map[int64]models.Sensor
	sessions map[int64]models.Session
	links    map[int64]models.SessionSensor
	data     map[datapointKey]models.SessionSensorData
	tokens   map[string]authToken

	nextSensor  int64
	nextSession int64
	nextLink    int64
}

func NewMock(admins ...string) *Mock {
	return &Mock{
		admins:   adminSet(admins),
		now:      time.Now,
		users:    make(map[string]models.User),
		sensors:  make(map[int64]models.Sensor),
		sessions: make(map[int64]models.Session),
		links:    make(map[int64]models.SessionSensor),
		data:     make(map[datapointKey]models.SessionSensorData),
		tokens:   make(map[string]authToken),
	}
}

func (m *Mock) Close() error { return nil }

/* Authentication */

func (m *Mock) SessionUser(ctx context.Context, token string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionUserLocked(token)
}

func (m *Mock) sessionUserLocked(token string) (models.User, error) {
	t, ok := m.tokens[token]
	if !ok || !m.now().Before(t.expiresAt) {
		return models.User{}, ErrUnauthorized
	}
	u, ok := m.users[t.username]
	if !ok {
		return models.User{}, ErrUnauthorized
	}
	return u, nil
}

func (m *Mock) IsAdmin(ctx context.Context, user models.User) bool {
	return m.admins[user.Username]
}

func (m *Mock) Login(ctx context.Context, user models.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[user.Username]
	if !ok || stored.PasswordHash != user.PasswordHash {
		return "", ErrUnauthorized
	}
	return m.issueLocked(stored.Username), nil
}

func (m *Mock) issueLocked(username string) string {
	token := uuid.NewString()
	m.tokens[token] = authToken{username: username, expiresAt: m.now().Add(SessionTTL)}
	return token
}

func (m *Mock) Logout(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[token]; !ok {
		return ErrUnauthorized
	}
	delete(m.tokens, token)
	return nil
}

func (m *Mock) RenewSession(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.sessionUserLocked(token)
	if err != nil {
		return "", err
	}
	delete(m.tokens, token)
	return m.issueLocked(u.Username), nil
}

/* Users */

func (m *Mock) InsertUser(ctx context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.Username == "" {
		return models.User{}, ErrInvalid
	}
	if _, ok := m.users[user.Username]; ok {
		return models.User{}, ErrInvalid
	}
	m.users[user.Username] = user
	return user, nil
}

func (m *Mock) Users(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.users, func(a, b models.User) int {
		return cmp.Compare(a.Username, b.Username)
	}), nil
}

func (m *Mock) User(ctx context.Context, username string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return models.User{}, notFound("user", username)
	}
	return u, nil
}

// UpdateUser changes the password hash; the username is the key.
func (m *Mock) UpdateUser(ctx context.Context, username string, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[username]
	if !ok {
		return models.User{}, notFound("user", username)
	}
	stored.PasswordHash = user.PasswordHash
	m.users[username] = stored
	return stored, nil
}

func (m *Mock) DeleteUser(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		return notFound("user", username)
	}
	delete(m.users, username)
	for id, s := range m.sessions {
		if s.Username == username {
			m.deleteSessionLocked(id)
		}
	}
	for tok, t := range m.tokens {
		if t.username == username {
			delete(m.tokens, tok)
		}
	}
	return nil
}

/* Sensors */

func (m *Mock) InsertSensor(ctx context.Context, sensor models.Sensor) (models.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSensor++
	sensor.ID = m.nextSensor
	m.sensors[sensor.ID] = sensor
	return sensor, nil
}

func (m *Mock) Sensors(ctx context.Context) ([]models.Sensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.sensors, func(a, b models.Sensor) int { return cmp.Compare(a.ID, b.ID) }), nil
}

func (m *Mock) Sensor(ctx context.Context, id int64) (models.Sensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sensors[id]
	if !ok {
		return models.Sensor{}, notFound("sensor", id)
	}
	return s, nil
}

func (m *Mock) UpdateSensor(ctx context.Context, id int64, sensor models.Sensor) (models.Sensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sensors[id]; !ok {
		return models.Sensor{}, notFound("sensor", id)
	}
	sensor.ID = id
	m.sensors[id] = sensor
	return sensor, nil
}

func (m *Mock) DeleteSensor(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sensors[id]; !ok {
		return notFound("sensor", id)
	}
	delete(m.sensors, id)
	for linkID, l := range m.links {
		if l.SensorID == id {
			m.deleteLinkLocked(linkID)
		}
	}
	return nil
}

/* Sessions */

func (m *Mock) InsertSession(ctx context.Context, session models.Session) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[session.Username]; !ok {
		return models.Session{}, ErrInvalid
	}
	m.nextSession++
	session.ID = m.nextSession
	m.sessions[session.ID] = session
	return session, nil
}

func (m *Mock) Sessions(ctx context.Context) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.sessions, func(a, b models.Session) int { return cmp.Compare(a.ID, b.ID) }), nil
}

func (m *Mock) Session(ctx context.Context, id int64) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, notFound("session", id)
	}
	return s, nil
}

func (m *Mock) UserSessions(ctx context.Context, username string) ([]models.Session, error) {
	all, _ := m.Sessions(ctx)
	out := []models.Session{}
	for _, s := range all {
		if s.Username == username {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Mock) UpdateSession(ctx context.Context, id int64, session models.Session) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return models.Session{}, notFound("session", id)
	}
	if _, ok := m.users[session.Username]; !ok {
		return models.Session{}, ErrInvalid
	}
	session.ID = id
	m.sessions[id] = session
	return session, nil
}

func (m *Mock) DeleteSession(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return notFound("session", id)
	}
	m.deleteSessionLocked(id)
	return nil
}

func (m *Mock) deleteSessionLocked(id int64) {
	delete(m.sessions, id)
	for linkID, l := range m.links {
		if l.SessionID == id {
			m.deleteLinkLocked(linkID)
		}
	}
}

/* Session sensors */

func (m *Mock) checkLinkRefsLocked(link models.SessionSensor) error {
	if _, ok := m.sessions[link.SessionID]; !ok {
		return ErrInvalid
	}
	if _, ok := m.sensors[link.SensorID]; !ok {
		return ErrInvalid
	}
	return nil
}

func (m *Mock) InsertSessionSensor(ctx context.Context, link models.SessionSensor) (models.SessionSensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkLinkRefsLocked(link); err != nil {
		return models.SessionSensor{}, err
	}
	m.nextLink++
	link.ID = m.nextLink
	m.links[link.ID] = link
	return link, nil
}

func (m *Mock) SessionsSensors(ctx context.Context) ([]models.SessionSensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.links, func(a, b models.SessionSensor) int { return cmp.Compare(a.ID, b.ID) }), nil
}

func (m *Mock) SessionSensors(ctx context.Context, sessionID int64) ([]models.SessionSensor, error) {
	all, _ := m.SessionsSensors(ctx)
	out := []models.SessionSensor{}
	for _, l := range all {
		if l.SessionID == sessionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Mock) SessionSensor(ctx context.Context, id int64) (models.SessionSensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.links[id]
	if !ok {
		return models.SessionSensor{}, notFound("session sensor", id)
	}
	return l, nil
}

func (m *Mock) UpdateSessionSensor(ctx context.Context, id int64, link models.SessionSensor) (models.SessionSensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[id]; !ok {
		return models.SessionSensor{}, notFound("session sensor", id)
	}
	if err := m.checkLinkRefsLocked(link); err != nil {
		return models.SessionSensor{}, err
	}
	link.ID = id
	m.links[id] = link
	return link, nil
}

func (m *Mock) DeleteSessionSensor(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[id]; !ok {
		return notFound("session sensor", id)
	}
	m.deleteLinkLocked(id)
	return nil
}

func (m *Mock) deleteLinkLocked(id int64) {
	delete(m.links, id)
	for k := range m.data {
		if k.link == id {
			delete(m.data, k)
		}
	}
}

/* Session sensor data */

func (m *Mock) insertDatapointLocked(d models.SessionSensorData) (models.SessionSensorData, error) {
	if _, ok := m.links[d.ID]; !ok {
		return models.SessionSensorData{}, ErrInvalid
	}
	key := datapointKey{link: d.ID, datetime: d.Datetime}
	if _, ok := m.data[key]; ok {
		return models.SessionSensorData{}, ErrInvalid
	}
	d.DataBlob = bytes.Clone(d.DataBlob)
	m.data[key] = d
	return cloneDatapoint(d), nil
}

func (m *Mock) InsertSessionSensorData(ctx context.Context, d models.SessionSensorData) (models.SessionSensorData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertDatapointLocked(d)
}

// BatchSessionSensorData inserts every datapoint or none.
func (m *Mock) BatchSessionSensorData(ctx context.Context, data []models.SessionSensorData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := make([]datapointKey, 0, len(data))
	for _, d := range data {
		if _, err := m.insertDatapointLocked(d); err != nil {
			for _, k := range inserted {
				delete(m.data, k)
			}
			return err
		}
		inserted = append(inserted, datapointKey{link: d.ID, datetime: d.Datetime})
	}
	return nil
}

func (m *Mock) filterData(keep func(models.SessionSensorData) bool) []models.SessionSensorData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.SessionSensorData{}
	for _, d := range m.data {
		if keep(d) {
			out = append(out, cloneDatapoint(d))
		}
	}
	slices.SortFunc(out, func(a, b models.SessionSensorData) int {
		if c := cmp.Compare(a.ID, b.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.Datetime, b.Datetime)
	})
	return out
}

func (m *Mock) SessionsSensorsData(ctx context.Context) ([]models.SessionSensorData, error) {
	return m.filterData(func(models.SessionSensorData) bool { return true }), nil
}

func (m *Mock) SessionSensorDataBySession(ctx context.Context, sessionID int64) ([]models.SessionSensorData, error) {
	return m.SessionSensorDataBySessionAfter(ctx, sessionID, "")
}

// SessionSensorDataBySessionAfter returns readings strictly later than after.
// Datetimes compare as strings.
func (m *Mock) SessionSensorDataBySessionAfter(ctx context.Context, sessionID int64, after string) ([]models.SessionSensorData, error) {
	m.mu.RLock()
	links := make(map[int64]bool)
	for id, l := range m.links {
		if l.SessionID == sessionID {
			links[id] = true
		}
	}
	m.mu.RUnlock()

	return m.filterData(func(d models.SessionSensorData) bool {
		return links[d.ID] && d.Datetime > after
	}), nil
}

func (m *Mock) SessionSensorData(ctx context.Context, linkID int64) ([]models.SessionSensorData, error) {
	return m.filterData(func(d models.SessionSensorData) bool { return d.ID == linkID }), nil
}

func (m *Mock) Datapoint(ctx context.Context, linkID int64, datetime string) (models.SessionSensorData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.data[datapointKey{link: linkID, datetime: datetime}]
	if !ok {
		return models.SessionSensorData{}, notFound("datapoint", datetime)
	}
	return cloneDatapoint(d), nil
}

// UpdateDatapoint replaces the data blob; the link id and datetime are the key.
func (m *Mock) UpdateDatapoint(ctx context.Context, linkID int64, datetime string, d models.SessionSensorData) (models.SessionSensorData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := datapointKey{link: linkID, datetime: datetime}
	stored, ok := m.data[key]
	if !ok {
		return models.SessionSensorData{}, notFound("datapoint", datetime)
	}
	stored.DataBlob = bytes.Clone(d.DataBlob)
	m.data[key] = stored
	return cloneDatapoint(stored), nil
}

func (m *Mock) DeleteDatapoint(ctx context.Context, linkID int64, datetime string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := datapointKey{link: linkID, datetime: datetime}
	if _, ok := m.data[key]; !ok {
		return notFound("datapoint", datetime)
	}
	delete(m.data, key)
	return nil
}

func cloneDatapoint(d models.SessionSensorData) models.SessionSensorData {
	d.DataBlob = bytes.Clone(d.DataBlob)
	return d
}

func sortedValues[K comparable, V any](m map[K]V, cmpFn func(a, b V) int) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, cmpFn)
	return out
}
