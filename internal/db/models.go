package db

// Injection is one attempted or simulated response to a detected prompt.
type Injection struct {
	ID        string `gorm:"column:id;primaryKey"`
	WatcherID string `gorm:"column:watcher_id;not null;default:''"`
	Target    string `gorm:"column:target;not null;default:''"`
	Program   string `gorm:"column:program;not null;default:''"`
	Rule      string `gorm:"column:rule;not null;default:''"`
	Signature string `gorm:"column:signature;not null;default:''"`
	Response  string `gorm:"column:response;not null;default:''"`
	Region    string `gorm:"column:region;not null;default:''"`
	Status    string `gorm:"column:status;not null;default:'injected'"`
	Error     string `gorm:"column:error;not null;default:''"`
	CreatedAt int64  `gorm:"column:created_at;not null;default:0"`
}

func (Injection) TableName() string { return "injections" }

type WatcherSession struct {
	WatcherID string `gorm:"column:watcher_id;primaryKey"`
	Target    string `gorm:"column:target;not null;default:''"`
	Program   string `gorm:"column:program;not null;default:''"`
	StartedAt int64  `gorm:"column:started_at;not null;default:0"`
	StoppedAt int64  `gorm:"column:stopped_at;not null;default:0"`
}

func (WatcherSession) TableName() string { return "watcher_sessions" }
