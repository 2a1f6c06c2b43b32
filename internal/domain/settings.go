package domain

// UserSettings holds per-user editor preferences.
type UserSettings struct {
	UserID              string `json:"-"`
	TargetPercent       int    `json:"target_percent"`
	AutoSaveEnabled     bool   `json:"auto_save_enabled"`
	AutoSaveIntervalSec int    `json:"auto_save_interval_sec"`
}

// SettingsPatch is a partial settings update; nil fields stay unchanged.
type SettingsPatch struct {
	TargetPercent       *int  `json:"target_percent"`
	AutoSaveEnabled     *bool `json:"auto_save_enabled"`
	AutoSaveIntervalSec *int  `json:"auto_save_interval_sec"`
}

// DefaultSettings are returned for users who never changed anything.
func DefaultSettings(userID string) UserSettings {
	return UserSettings{
		UserID:              userID,
		TargetPercent:       70,
		AutoSaveEnabled:     true,
		AutoSaveIntervalSec: 30,
	}
}
