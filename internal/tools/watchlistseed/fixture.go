// Package watchlistseed loads YAML fixtures of users, watchlists, shares,
// forks and bookmarks and replays them against a watchlist gRPC server.
package watchlistseed

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var fixtureFS embed.FS

// Fixture is one seed scenario. Users maps short aliases to user ids; every
// other section refers to users by alias and to watchlists by owner and name.
type Fixture struct {
	Name       string             `yaml:"name"`
	Users      map[string]string  `yaml:"users"`
	Watchlists []WatchlistFixture `yaml:"watchlists"`
	Shares     []ShareFixture     `yaml:"shares"`
	Forks      []ForkFixture      `yaml:"forks"`
	Bookmarks  []BookmarkFixture  `yaml:"bookmarks"`
}

type WatchlistFixture struct {
	Owner       string        `yaml:"owner"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Visibility  string        `yaml:"visibility"`
	Default     bool          `yaml:"default"`
	Items       []ItemFixture `yaml:"items"`
}

type ItemFixture struct {
	Symbol     string `yaml:"symbol"`
	Exchange   string `yaml:"exchange"`
	Note       string `yaml:"note"`
	Position   *int64 `yaml:"position"`
	Percentage string `yaml:"percentage"`
	Quantity   string `yaml:"quantity"`
}

type ShareFixture struct {
	Owner     string `yaml:"owner"`
	Watchlist string `yaml:"watchlist"`
	User      string `yaml:"user"`
	CanEdit   bool   `yaml:"can_edit"`
}

// ForkFixture forks Owner's Source into User's account. Forks are applied in
// order, so a later entry may fork an earlier fork once it is public.
type ForkFixture struct {
	User       string `yaml:"user"`
	Owner      string `yaml:"owner"`
	Source     string `yaml:"source"`
	Name       string `yaml:"name"`
	Visibility string `yaml:"visibility"`
	Pull       bool   `yaml:"pull"`
}

type BookmarkFixture struct {
	User      string `yaml:"user"`
	Owner     string `yaml:"owner"`
	Watchlist string `yaml:"watchlist"`
}

// Parse decodes and validates a fixture. Unknown keys are rejected.
func Parse(data []byte) (Fixture, error) {
	var fixture Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fixture); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	if err := fixture.validate(); err != nil {
		return Fixture{}, err
	}
	return fixture, nil
}

// LoadFile reads a fixture from disk.
func LoadFile(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture %s: %w", path, err)
	}
	fixture, err := Parse(data)
	if err != nil {
		return Fixture{}, fmt.Errorf("%s: %w", path, err)
	}
	return fixture, nil
}

// LoadBuiltin reads an embedded fixture by name.
func LoadBuiltin(name string) (Fixture, error) {
	data, err := fixtureFS.ReadFile("fixtures/" + name + ".yaml")
	if err != nil {
		return Fixture{}, fmt.Errorf("unknown fixture %q", name)
	}
	fixture, err := Parse(data)
	if err != nil {
		return Fixture{}, fmt.Errorf("fixture %s: %w", name, err)
	}
	return fixture, nil
}

// ListBuiltin returns the names of the embedded fixtures.
func ListBuiltin() ([]string, error) {
	paths, err := fs.Glob(fixtureFS, "fixtures/*.yaml")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, path := range paths {
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(path, "fixtures/"), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

func (f Fixture) validate() error {
	known := func(alias string) error {
		if _, ok := f.Users[alias]; !ok {
			return fmt.Errorf("unknown user %q", alias)
		}
		return nil
	}
	for i, w := range f.Watchlists {
		if err := known(w.Owner); err != nil {
			return fmt.Errorf("watchlists[%d]: %w", i, err)
		}
	}
	for i, s := range f.Shares {
		if err := known(s.Owner); err != nil {
			return fmt.Errorf("shares[%d]: %w", i, err)
		}
		if err := known(s.User); err != nil {
			return fmt.Errorf("shares[%d]: %w", i, err)
		}
	}
	for i, fork := range f.Forks {
		if err := known(fork.Owner); err != nil {
			return fmt.Errorf("forks[%d]: %w", i, err)
		}
		if err := known(fork.User); err != nil {
			return fmt.Errorf("forks[%d]: %w", i, err)
		}
	}
	for i, b := range f.Bookmarks {
		if err := known(b.Owner); err != nil {
			return fmt.Errorf("bookmarks[%d]: %w", i, err)
		}
		if err := known(b.User); err != nil {
			return fmt.Errorf("bookmarks[%d]: %w", i, err)
		}
	}
	return nil
}
