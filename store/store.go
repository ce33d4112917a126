package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"libseat-cli/model"
)

const (
	appDir           = "libseat-cli"
	sectionCacheTTL  = 24 * time.Hour
	maxRecentSection = 5
)

type cacheEnvelope[T any] struct {
	UpdatedAt time.Time `json:"updated_at"`
	Data      T         `json:"data"`
}

type credential struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// SeatFilters are the feature filters remembered between runs.
type SeatFilters struct {
	PowerOutlet bool `json:"power_outlet"`
	NearWindow  bool `json:"near_window"`
}

type preferences struct {
	Filters        SeatFilters `json:"filters"`
	RecentSections []int       `json:"recent_sections"`
}

func LoadSectionCache() ([]model.Section, bool, error) {
	path, err := cachePath("sections.json")
	if err != nil {
		return nil, false, err
	}
	cache, err := loadCache[[]model.Section](path)
	if err != nil {
		return nil, false, err
	}
	return cache.Data, time.Since(cache.UpdatedAt) <= sectionCacheTTL, nil
}

func SaveSectionCache(sections []model.Section) error {
	path, err := cachePath("sections.json")
	if err != nil {
		return err
	}
	return saveCache(path, sections)
}

// LoadToken returns the saved bearer token, or "" when none is stored.
func LoadToken() (string, error) {
	path, err := configPath("credentials.json")
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var cred credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return "", errors.New("invalid credential format")
	}
	return cred.Token, nil
}

func SaveToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	path, err := configPath("credentials.json")
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(credential{Token: token, SavedAt: time.Now()}, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, payload, 0o600)
}

func ClearToken() error {
	path, err := configPath("credentials.json")
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func LoadSeatFilters() (SeatFilters, error) {
	prefs, err := loadPreferences()
	if err != nil {
		return SeatFilters{}, err
	}
	return prefs.Filters, nil
}

func SaveSeatFilters(filters SeatFilters) error {
	prefs, err := loadPreferences()
	if err != nil {
		return err
	}
	prefs.Filters = filters
	return savePreferences(prefs)
}

// LoadRecentSections returns section ids, most recent first.
func LoadRecentSections() ([]int, error) {
	prefs, err := loadPreferences()
	if err != nil {
		return nil, err
	}
	return prefs.RecentSections, nil
}

func RememberSection(sectionID int) error {
	if sectionID == 0 {
		return errors.New("section id is required")
	}
	prefs, err := loadPreferences()
	if err != nil {
		return err
	}
	next := []int{sectionID}
	for _, id := range prefs.RecentSections {
		if id == sectionID || id == 0 {
			continue
		}
		next = append(next, id)
		if len(next) >= maxRecentSection {
			break
		}
	}
	prefs.RecentSections = next
	return savePreferences(prefs)
}

func loadCache[T any](path string) (cacheEnvelope[T], error) {
	var cache cacheEnvelope[T]
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil
		}
		return cache, err
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return cache, err
	}
	return cache, nil
}

func saveCache[T any](path string, data T) error {
	cache := cacheEnvelope[T]{
		UpdatedAt: time.Now(),
		Data:      data,
	}
	payload, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, payload, 0o644)
}

func loadPreferences() (preferences, error) {
	path, err := configPath("preferences.json")
	if err != nil {
		return preferences{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return preferences{}, nil
		}
		return preferences{}, err
	}
	var prefs preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return preferences{}, errors.New("invalid preferences format")
	}
	return prefs, nil
}

func savePreferences(prefs preferences) error {
	path, err := configPath("preferences.json")
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, payload, 0o644)
}

func writeFile(path string, payload []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, payload, perm)
}

// ConfigDir is where credentials and preferences live.
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir), nil
}

// CacheDir is where cached API data and logs live.
func CacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir), nil
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func cachePath(name string) (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
