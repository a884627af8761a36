package sim

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/skinecon/marketsim/internal/domain"
	"github.com/skinecon/marketsim/internal/logging"
)

// Dist is a clipped normal distribution used to draw agent parameters.
type Dist struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"std_dev"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

type AgentsConfig struct {
	Count int `yaml:"count"`
	// Weights gives the relative share of each agent type:
	// novice, trader, investor, farmer.
	Weights map[string]float64 `yaml:"weights"`
	// Balance is drawn in dollars and converted to cents.
	Balance  Dist `yaml:"balance"`
	FarmSize Dist `yaml:"farm_size"`
}

type PoolItemConfig struct {
	Name     string  `yaml:"name"`
	Rarity   string  `yaml:"rarity"`
	Category string  `yaml:"category"`
	Exterior string  `yaml:"exterior"`
	Weight   float64 `yaml:"weight"`
}

type DropConfig struct {
	BaseChance float64          `yaml:"base_chance"`
	ResetDay   int              `yaml:"reset_day"`
	MaxPerWeek int64            `yaml:"max_per_week"`
	TradeLock  bool             `yaml:"trade_lock"`
	Pool       []PoolItemConfig `yaml:"pool"`
}

type SweepConfig struct {
	Fees       []float64 `yaml:"fees"`
	RunsPerFee int       `yaml:"runs_per_fee"`
	Workers    int       `yaml:"workers"`
	Output     string    `yaml:"output"`
}

type Config struct {
	Seed          int64          `yaml:"seed"`
	Steps         int64          `yaml:"steps"`
	MarketFee     float64        `yaml:"market_fee"`
	StepsPerDay   int64          `yaml:"steps_per_day"`
	TradeLockDays int64          `yaml:"trade_lock_days"`
	Agents        AgentsConfig   `yaml:"agents"`
	Drop          DropConfig     `yaml:"drop"`
	Sweep         SweepConfig    `yaml:"sweep"`
	Logging       logging.Config `yaml:"logging"`
}

// DefaultConfig mirrors the reference scenario: fee 15%, 1000 steps a
// day, 7-day trade lock, 1000 agents over 75k steps, single-container
// drop pool.
func DefaultConfig() Config {
	return Config{
		Seed:          1,
		Steps:         75_000,
		MarketFee:     0.15,
		StepsPerDay:   1000,
		TradeLockDays: 7,
		Agents: AgentsConfig{
			Count: 1000,
			Weights: map[string]float64{
				"novice":   0.4,
				"trader":   0.2,
				"investor": 0.3,
				"farmer":   0.1,
			},
			Balance:  Dist{Mean: 650, StdDev: 300, Min: 0, Max: 2000},
			FarmSize: Dist{Mean: 100, StdDev: 50, Min: 1, Max: 1000},
		},
		Drop: DropConfig{
			BaseChance: 0.6,
			ResetDay:   2,
			MaxPerWeek: 1,
			TradeLock:  true,
			Pool: []PoolItemConfig{
				{Name: "Case A", Rarity: "BaseGrade", Category: "Container", Weight: 1.0},
			},
		},
		Sweep: SweepConfig{
			Fees:       []float64{0.10, 0.20, 0.30, 0.40, 0.50, 0.60, 0.70, 0.80, 0.90},
			RunsPerFee: 100,
			Workers:    0, // 0 means one worker per CPU
			Output:     "results.csv",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads a yaml config over the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Steps <= 0 {
		return errors.New("steps must be positive")
	}
	if c.MarketFee < 0 || c.MarketFee >= 1 {
		return errors.New("market_fee must be in [0, 1)")
	}
	if c.StepsPerDay <= 0 {
		return errors.New("steps_per_day must be positive")
	}
	if c.Agents.Count <= 0 {
		return errors.New("agents.count must be positive")
	}
	var total float64
	for _, w := range c.Agents.Weights {
		total += w
	}
	if total <= 0 {
		return errors.New("agents.weights must sum to a positive value")
	}
	if len(c.Drop.Pool) == 0 {
		return errors.New("drop.pool must not be empty")
	}
	for _, p := range c.Drop.Pool {
		if p.Name == "" {
			return errors.New("drop.pool entries need a name")
		}
	}
	return nil
}

// Item builds the domain item a pool entry describes.
func (p PoolItemConfig) Item() domain.Item {
	rarity := domain.ItemRarity(p.Rarity)
	switch domain.ItemCategory(p.Category) {
	case domain.CategoryContainer:
		return domain.NewContainer(p.Name, rarity, nil)
	case domain.CategoryWeaponSkin:
		exterior := domain.Exterior(p.Exterior)
		if exterior == "" {
			exterior = domain.FieldTested
		}
		return domain.NewWeaponSkin(p.Name, rarity, exterior, 0, 0)
	default:
		return domain.NewItem(p.Name, rarity, domain.ItemCategory(p.Category))
	}
}
