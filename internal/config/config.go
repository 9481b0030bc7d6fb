// Package config holds the engine's balancing constants and lookup tables.
// Everything game-specific (decay rates, scorer weights, decision thresholds,
// dissolution conditions) lives here, loads from YAML over compiled-in
// defaults, and is immutable once the engine is constructed.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/concord/internal/social"
)

// Config is the full engine configuration.
type Config struct {
	Group       GroupConfig            `yaml:"group"`
	Formation   FormationConfig        `yaml:"formation"`
	Decisions   DecisionConfig         `yaml:"decisions"`
	Territory   TerritoryConfig        `yaml:"territory"`
	Reputation  ReputationConfig       `yaml:"reputation"`
	Dissolution []DissolutionCondition `yaml:"dissolution"`
}

// GroupConfig bounds group membership and decay behavior.
type GroupConfig struct {
	MinMembers int `yaml:"min_members"`
	MaxMembers int `yaml:"max_members"`

	MinReputation float64 `yaml:"min_reputation"`
	MaxReputation float64 `yaml:"max_reputation"`

	DefaultInfluence float64 `yaml:"default_influence"`

	ContributionDecayRate float64 `yaml:"contribution_decay_rate"`
	InfluenceDecayRate    float64 `yaml:"influence_decay_rate"`
	RelationshipDecayRate float64 `yaml:"relationship_decay_rate"`

	MinSubgroupMembers int     `yaml:"min_subgroup_members"`
	MaxWealth          float64 `yaml:"max_wealth"`
	InactivityDays     float64 `yaml:"inactivity_days"`
}

// ScoreWeights blends the five formation sub-scores into the full
// composite. The blend is normalized by the weight sum, so only ratios
// matter.
type ScoreWeights struct {
	Affinity      float64 `yaml:"affinity"`
	Proximity     float64 `yaml:"proximity"`
	GoalAlignment float64 `yaml:"goal_alignment"`
	Personality   float64 `yaml:"personality"`
	Interaction   float64 `yaml:"interaction"`
}

// Sum returns the total weight.
func (w ScoreWeights) Sum() float64 {
	return w.Affinity + w.Proximity + w.GoalAlignment + w.Personality + w.Interaction
}

// ResourceRequirement is a per-member resource need for a group type.
type ResourceRequirement struct {
	Type            string  `yaml:"type"`
	AmountPerMember float64 `yaml:"amount_per_member"`
}

// SizeRecommendation tunes optimal group size per group type.
type SizeRecommendation struct {
	Min     int `yaml:"min"`
	Optimal int `yaml:"optimal"`
	Max     int `yaml:"max"`

	// Coordination cost per member, as a fraction added to each
	// resource requirement.
	Overhead                float64               `yaml:"overhead"`
	ResourceRequirements    []ResourceRequirement `yaml:"resource_requirements"`
	EffectivenessMultiplier float64               `yaml:"effectiveness_multiplier"`
}

// FormationConfig tunes the compatibility scorer and formation flow.
type FormationConfig struct {
	GridSize float64 `yaml:"grid_size"`

	// Screening minimum for candidate scores (0–100 scale).
	MinScore float64 `yaml:"min_score"`

	// ShouldFormGroup gates.
	InteractionThreshold   int     `yaml:"interaction_threshold"`
	CompatibilityThreshold float64 `yaml:"compatibility_threshold"`

	Weights ScoreWeights `yaml:"weights"`

	TraitWeights        map[string]float64  `yaml:"trait_weights"`
	ComplementaryTraits map[string][]string `yaml:"complementary_traits"`

	// Personality sub-score floor (0–1); candidates below it are
	// dropped regardless of their screening score.
	MinCompatibility float64 `yaml:"min_compatibility"`

	SizeRecommendations map[string]SizeRecommendation `yaml:"size_recommendations"`
}

// DecisionConfig maps decision types to required influence thresholds.
type DecisionConfig struct {
	VotingPeriodDays float64            `yaml:"voting_period_days"`
	Thresholds       map[string]float64 `yaml:"thresholds"`
}

// Threshold returns the required influence sum for the decision type,
// falling back to the general threshold.
func (c DecisionConfig) Threshold(t social.DecisionType) float64 {
	if v, ok := c.Thresholds[t.String()]; ok {
		return v
	}
	return c.Thresholds[social.DecisionGeneral.String()]
}

// TerritoryConfig tunes control growth and contest behavior.
type TerritoryConfig struct {
	ControlGrowthPerDay float64 `yaml:"control_growth_per_day"`
	ContestRatio        float64 `yaml:"contest_ratio"`
}

// ReputationConfig tunes interaction reputation processing.
type ReputationConfig struct {
	BaseDelta         float64  `yaml:"base_delta"`
	RecencyWindowDays float64  `yaml:"recency_window_days"`
	PositiveEmotions  []string `yaml:"positive_emotions"`
	NegativeEmotions  []string `yaml:"negative_emotions"`
}

// DissolutionCondition describes one metric threshold that can dissolve a
// group. A zero WarningThreshold falls back to Threshold; a zero grace
// period dissolves immediately once the threshold holds.
type DissolutionCondition struct {
	Type             string  `yaml:"type"` // conflict, goal_completion, resource_depletion, inactivity, ineffectiveness
	Threshold        float64 `yaml:"threshold"`
	WarningThreshold float64 `yaml:"warning_threshold"`
	GracePeriodDays  float64 `yaml:"grace_period_days"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Group: GroupConfig{
			MinMembers:            3,
			MaxMembers:            10,
			MinReputation:         -100,
			MaxReputation:         100,
			DefaultInfluence:      50,
			ContributionDecayRate: 0.05,
			InfluenceDecayRate:    0.01,
			RelationshipDecayRate: 0.02,
			MinSubgroupMembers:    3,
			MaxWealth:             10000,
			InactivityDays:        14,
		},
		Formation: FormationConfig{
			GridSize:               100,
			MinScore:               60,
			InteractionThreshold:   5,
			CompatibilityThreshold: 70,
			Weights: ScoreWeights{
				Affinity:      0.3,
				Proximity:     0.15,
				GoalAlignment: 0.25,
				Personality:   0.2,
				Interaction:   0.1,
			},
			TraitWeights: map[string]float64{
				"leadership":   1.0,
				"cooperation":  0.9,
				"adaptability": 0.8,
				"reliability":  0.7,
				"creativity":   0.6,
			},
			ComplementaryTraits: map[string][]string{
				"leadership": {"cooperation", "reliability"},
				"creativity": {"reliability", "adaptability"},
				"cooperation": {"leadership", "creativity"},
			},
			MinCompatibility: 0.5,
			SizeRecommendations: map[string]SizeRecommendation{
				"combat": {
					Min: 3, Optimal: 4, Max: 10, Overhead: 0.3,
					ResourceRequirements: []ResourceRequirement{
						{Type: "weapon", AmountPerMember: 1},
						{Type: "armor", AmountPerMember: 1},
					},
					EffectivenessMultiplier: 1.5,
				},
				"social": {
					Min: 3, Optimal: 6, Max: 10, Overhead: 0.5,
					EffectivenessMultiplier: 1.2,
				},
				"economic": {
					Min: 3, Optimal: 3, Max: 5, Overhead: 0.2,
					ResourceRequirements: []ResourceRequirement{
						{Type: "capital", AmountPerMember: 1000},
					},
					EffectivenessMultiplier: 1.3,
				},
			},
		},
		Decisions: DecisionConfig{
			VotingPeriodDays: 3,
			Thresholds: map[string]float64{
				"leadership_change":  150,
				"member_expulsion":   120,
				"alliance_formation": 100,
				"goal_setting":       80,
				"general":            50,
			},
		},
		Territory: TerritoryConfig{
			ControlGrowthPerDay: 1.0,
			ContestRatio:        0.5,
		},
		Reputation: ReputationConfig{
			BaseDelta:         0.05,
			RecencyWindowDays: 30,
			PositiveEmotions:  []string{"pleased", "grateful", "happy", "satisfied"},
			NegativeEmotions:  []string{"angry", "upset", "betrayed", "disappointed"},
		},
		Dissolution: []DissolutionCondition{
			{Type: "conflict", Threshold: 0.8, WarningThreshold: 0.6, GracePeriodDays: 2},
			{Type: "inactivity", Threshold: 1.0, WarningThreshold: 0.7, GracePeriodDays: 3},
			{Type: "resource_depletion", Threshold: 0.95, WarningThreshold: 0.85, GracePeriodDays: 1},
			{Type: "ineffectiveness", Threshold: 0.9, WarningThreshold: 0.75, GracePeriodDays: 3},
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Group.MinMembers < 2 {
		return fmt.Errorf("group.min_members must be at least 2, got %d", c.Group.MinMembers)
	}
	if c.Group.MaxMembers < c.Group.MinMembers {
		return fmt.Errorf("group.max_members %d below group.min_members %d",
			c.Group.MaxMembers, c.Group.MinMembers)
	}
	if c.Formation.GridSize <= 0 {
		return fmt.Errorf("formation.grid_size must be positive, got %g", c.Formation.GridSize)
	}
	if c.Formation.Weights.Sum() <= 0 {
		return fmt.Errorf("formation.weights must have a positive sum")
	}
	for _, d := range c.Dissolution {
		switch d.Type {
		case "conflict", "goal_completion", "resource_depletion", "inactivity", "ineffectiveness":
		default:
			return fmt.Errorf("unknown dissolution condition type %q", d.Type)
		}
	}
	return nil
}
