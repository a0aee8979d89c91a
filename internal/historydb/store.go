package historydb

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbmodel "github.com/Corptech02/Multi-voice-bot-sub002/internal/db"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/watcher"
)

const (
	StatusInjected = "injected"
	StatusFailed   = "failed"
	StatusDryRun   = "dry_run"

	DefaultListLimit = 20
)

type Injection struct {
	ID        string    `json:"id"`
	WatcherID string    `json:"watcher_id"`
	Target    string    `json:"target"`
	Program   string    `json:"program"`
	Rule      string    `json:"rule"`
	Signature string    `json:"signature"`
	Response  string    `json:"response"`
	Region    []string  `json:"region"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	WatcherID string    `json:"watcher_id"`
	Target    string    `json:"target"`
	Program   string    `json:"program"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore uses the shared global DB. Caller must not close the db.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Record(in Injection) (Injection, error) {
	if s == nil || s.db == nil {
		return Injection{}, errors.New("history store is not initialized")
	}
	if strings.TrimSpace(in.Target) == "" {
		return Injection{}, errors.New("target is required")
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = s.now()
	}
	in.CreatedAt = in.CreatedAt.UTC()
	switch in.Status {
	case StatusInjected, StatusFailed, StatusDryRun:
	case "":
		in.Status = StatusInjected
	default:
		return Injection{}, errors.New("unknown injection status: " + in.Status)
	}
	row := dbmodel.Injection{
		ID:        in.ID,
		WatcherID: in.WatcherID,
		Target:    in.Target,
		Program:   in.Program,
		Rule:      in.Rule,
		Signature: in.Signature,
		Response:  in.Response,
		Region:    strings.Join(in.Region, "\n"),
		Status:    in.Status,
		Error:     in.Error,
		CreatedAt: in.CreatedAt.UnixMilli(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return Injection{}, err
	}
	return in, nil
}

// RecordEvent persists the watcher events that belong in the audit trail and
// ignores the rest. It reports whether a row was written.
func (s *Store) RecordEvent(ev watcher.Event) (bool, error) {
	switch ev.Kind {
	case watcher.EventWatcherStarted:
		err := s.sessionStarted(ev)
		return err == nil, err
	case watcher.EventWatcherStopped:
		err := s.sessionStopped(ev)
		return err == nil, err
	}

	status := ""
	switch ev.Kind {
	case watcher.EventPromptInjected:
		status = StatusInjected
	case watcher.EventSinkFailed:
		status = StatusFailed
	case watcher.EventPromptDryRun:
		status = StatusDryRun
	default:
		return false, nil
	}
	_, err := s.Record(Injection{
		WatcherID: ev.WatcherID,
		Target:    ev.Target,
		Program:   ev.Program,
		Rule:      ev.Rule,
		Signature: ev.Signature,
		Response:  ev.Response,
		Region:    ev.Region,
		Status:    status,
		Error:     ev.Error,
		CreatedAt: ev.At,
	})
	return err == nil, err
}

func (s *Store) sessionStarted(ev watcher.Event) error {
	if s == nil || s.db == nil {
		return errors.New("history store is not initialized")
	}
	at := ev.At
	if at.IsZero() {
		at = s.now()
	}
	row := dbmodel.WatcherSession{
		WatcherID: ev.WatcherID,
		Target:    ev.Target,
		Program:   ev.Program,
		StartedAt: at.UTC().UnixMilli(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "watcher_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"started_at": row.StartedAt,
			"stopped_at": 0,
		}),
	}).Create(&row).Error
}

func (s *Store) sessionStopped(ev watcher.Event) error {
	if s == nil || s.db == nil {
		return errors.New("history store is not initialized")
	}
	at := ev.At
	if at.IsZero() {
		at = s.now()
	}
	return s.db.Model(&dbmodel.WatcherSession{}).
		Where("watcher_id = ?", ev.WatcherID).
		Update("stopped_at", at.UTC().UnixMilli()).Error
}

// List returns the most recent injections first, optionally for one target.
func (s *Store) List(limit int, target string) ([]Injection, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store is not initialized")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := s.db.Model(&dbmodel.Injection{})
	if t := strings.TrimSpace(target); t != "" {
		q = q.Where("target = ?", t)
	}
	rows := make([]dbmodel.Injection, 0, limit)
	if err := q.Order("created_at DESC").Order("rowid DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Injection, 0, len(rows))
	for _, row := range rows {
		var region []string
		if row.Region != "" {
			region = strings.Split(row.Region, "\n")
		}
		out = append(out, Injection{
			ID:        row.ID,
			WatcherID: row.WatcherID,
			Target:    row.Target,
			Program:   row.Program,
			Rule:      row.Rule,
			Signature: row.Signature,
			Response:  row.Response,
			Region:    region,
			Status:    row.Status,
			Error:     row.Error,
			CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
		})
	}
	return out, nil
}

func (s *Store) Sessions(limit int) ([]Session, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store is not initialized")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows := make([]dbmodel.WatcherSession, 0, limit)
	if err := s.db.Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(rows))
	for _, row := range rows {
		session := Session{
			WatcherID: row.WatcherID,
			Target:    row.Target,
			Program:   row.Program,
			StartedAt: time.UnixMilli(row.StartedAt).UTC(),
		}
		if row.StoppedAt > 0 {
			session.StoppedAt = time.UnixMilli(row.StoppedAt).UTC()
		}
		out = append(out, session)
	}
	return out, nil
}

// Prune keeps the newest keep injections and deletes the rest.
func (s *Store) Prune(keep int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("history store is not initialized")
	}
	if keep < 0 {
		keep = 0
	}
	newest := s.db.Model(&dbmodel.Injection{}).Select("id").Order("created_at DESC").Order("rowid DESC").Limit(keep)
	res := s.db.Where("id NOT IN (?)", newest).Delete(&dbmodel.Injection{})
	return res.RowsAffected, res.Error
}
