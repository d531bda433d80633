package stats

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/kwservices/xptracker/internal/xp"
)

// Profile is the resolved identity of a Steam profile.
type Profile struct {
	SteamID  uint64
	Nickname string
	Avatar   string
}

// Levels is the current level state of a profile.
type Levels struct {
	Level       int
	XP          int
	Percentage  float64
	RemainingXP int
}

// Commends holds the commendation counters of a profile.
type Commends struct {
	Friendly int `json:"friendly"`
	Teacher  int `json:"teacher"`
	Leader   int `json:"leader"`
}

// Medal is a displayed medal of a profile.
type Medal struct {
	ID   int    `json:"medalId"`
	Name string `json:"medalName"`
}

// Player is the public Steam information of a profile.
type Player struct {
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	ProfileURL  string `json:"profile_url"`
	CountryCode string `json:"country_code"`
}

// MedalData is the detailed in-game information of a profile.
type MedalData struct {
	SteamLevel      int        `json:"steam_level"`
	CSGOLevel       int        `json:"csgo_level"`
	LevelPercentage Percentage `json:"level_percentage"`
	RemainingXP     int        `json:"remaining_xp"`
	Commends        Commends   `json:"commends"`
	Medals          MedalList  `json:"medals"`
}

// Report is the full payload of a profile check.
type Report struct {
	Profile Profile
	Player  Player
	Medals  MedalData
}

// FlexibleID decodes an id that may be encoded as a JSON string or number.
type FlexibleID uint64

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if raw == "" || raw == "null" {
		*id = 0
		return nil
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", raw, err)
	}

	*id = FlexibleID(v)

	return nil
}

// Percentage decodes a percentage given as "23.56%" or as a number.
type Percentage float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Percentage) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if raw == "" || raw == "null" {
		*p = 0
		return nil
	}

	v, err := xp.ParsePercentage(raw)
	if err != nil {
		return err
	}

	*p = Percentage(v)

	return nil
}

// MedalList decodes the medal list, which is an empty object when no medals are displayed.
type MedalList []Medal

// UnmarshalJSON implements json.Unmarshaler.
func (m *MedalList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		*m = nil
		return nil
	}

	var medals []Medal
	if err := sonic.Unmarshal(data, &medals); err != nil {
		return err
	}

	*m = medals

	return nil
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   any  `json:"error"`
}

type resolveData struct {
	ID       FlexibleID `json:"id"`
	Nickname string     `json:"nickname"`
	Avatar   string     `json:"avatar"`
}

type levelsData struct {
	Data struct {
		CurrentLevel    int        `json:"current_level"`
		CurrentXP       int        `json:"current_xp"`
		LevelPercentage Percentage `json:"level_percentage"`
		RemainingXP     int        `json:"remaining_xp"`
	} `json:"data"`
}

type medalsData struct {
	PlayerData Player    `json:"playerData"`
	MedalData  MedalData `json:"medalData"`
}
