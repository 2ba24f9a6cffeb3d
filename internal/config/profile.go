package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultTimeZone = "Asia/Shanghai"

// Profile describes the shop: its title on exports, the form shortcuts and
// the time zone every date is shown in.
type Profile struct {
	Title       string   `yaml:"title" json:"title"`
	QuickTags   []string `yaml:"quick_tags" json:"quickTags"`
	QuickPrices []int    `yaml:"quick_prices" json:"quickPrices"`
	TimeZone    string   `yaml:"time_zone" json:"timeZone"`

	location *time.Location
}

func DefaultProfile() *Profile {
	return &Profile{
		Title:       "小刘裁缝铺订单汇总",
		QuickTags:   []string{"改裤脚", "换拉链", "收腰", "修补破洞", "换松紧", "钉扣子", "改袖长", "大改小"},
		QuickPrices: []int{10, 20, 50},
		TimeZone:    DefaultTimeZone,
	}
}

// LoadProfile reads a YAML profile over the defaults. An empty path yields
// the default profile.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile: %w", err)
		}

		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
		}
	}

	if p.TimeZone == "" {
		p.TimeZone = DefaultTimeZone
	}

	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", p.TimeZone, err)
	}
	p.location = loc

	return p, nil
}

// Location is the shop time zone, UTC for a profile that was not loaded.
func (p *Profile) Location() *time.Location {
	if p.location == nil {
		return time.UTC
	}

	return p.location
}
