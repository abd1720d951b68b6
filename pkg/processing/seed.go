package processing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// UnsetSeedValue is the wire value hosts use for "pick a random seed".
const UnsetSeedValue int64 = -1

// Seed is either a fixed value or unset. The zero value is unset.
type Seed struct {
	value uint64
	set   bool
}

// FixedSeed returns a seed pinned to v. Values above math.MaxInt64 are
// clamped so the seed stays fixed on the signed wire format.
func FixedSeed(v uint64) Seed {
	if v > math.MaxInt64 {
		v = math.MaxInt64
	}
	return Seed{value: v, set: true}
}

// UnsetSeed returns a seed that the runner resolves randomly.
func UnsetSeed() Seed { return Seed{} }

// SeedFromInt maps the host convention onto Seed: negative means unset.
func SeedFromInt(v int64) Seed {
	if v < 0 {
		return UnsetSeed()
	}
	return FixedSeed(uint64(v))
}

// IsSet reports whether the seed is fixed.
func (s Seed) IsSet() bool { return s.set }

// Value returns the fixed value and whether there is one.
func (s Seed) Value() (uint64, bool) { return s.value, s.set }

// Int64 returns the host wire value, -1 for unset.
func (s Seed) Int64() int64 {
	if !s.set {
		return UnsetSeedValue
	}
	return int64(s.value)
}

func (s Seed) String() string {
	if !s.set {
		return "unset"
	}
	return strconv.FormatUint(s.value, 10)
}

func (s Seed) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Int64())
}

func (s *Seed) UnmarshalJSON(b []byte) error {
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("invalid seed %s: %w", string(b), err)
	}
	*s = SeedFromInt(v)
	return nil
}

func (s Seed) MarshalYAML() (interface{}, error) {
	return s.Int64(), nil
}

func (s *Seed) UnmarshalYAML(node *yaml.Node) error {
	var v int64
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("invalid seed %q: %w", node.Value, err)
	}
	*s = SeedFromInt(v)
	return nil
}
