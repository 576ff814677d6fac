package customformats

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/declarr/declarr/internal/api"
	"github.com/declarr/declarr/internal/remotemap"
	"github.com/declarr/declarr/internal/settings/codec"
	"github.com/declarr/declarr/internal/variant"
)

// Condition is one custom format matching condition of any kind. Conditions
// are nested resources reconciled inside the parent format's specifications
// list.
type Condition interface {
	Implementation() string
	common() *ConditionCommon
	remoteMap(schema api.Resource) []remotemap.Entry
}

// ConditionCommon holds the attributes shared by every condition kind.
type ConditionCommon struct {
	Type     string `yaml:"type"`
	Negate   bool   `yaml:"negate"`
	Required bool   `yaml:"required"`
}

func (c *ConditionCommon) common() *ConditionCommon { return c }

func (c *ConditionCommon) entries() []remotemap.Entry {
	return []remotemap.Entry{
		codec.Bool("negate", "negate", false, &c.Negate),
		codec.Bool("required", "required", false, &c.Required),
	}
}

var conditionRegistry = variant.NewRegistry[Condition]("custom format condition")

func init() {
	conditionRegistry.Register("EditionSpecification", []string{"edition"},
		func() Condition { return &EditionCondition{} })
	conditionRegistry.Register("IndexerFlagSpecification", []string{"indexer_flag", "indexer-flag"},
		func() Condition { return &IndexerFlagCondition{} })
	conditionRegistry.Register("LanguageSpecification", []string{"language"},
		func() Condition { return &LanguageCondition{} })
	conditionRegistry.Register("QualityModifierSpecification", []string{"quality_modifier", "quality-modifier"},
		func() Condition { return &QualityModifierCondition{} })
	conditionRegistry.Register("ReleaseGroupSpecification", []string{"release_group", "release-group"},
		func() Condition { return &ReleaseGroupCondition{} })
	conditionRegistry.Register("ReleaseTitleSpecification", []string{"release_title", "release-title", "releasetitle"},
		func() Condition { return &ReleaseTitleCondition{} })
	conditionRegistry.Register("ResolutionSpecification", []string{"resolution"},
		func() Condition { return &ResolutionCondition{} })
	conditionRegistry.Register("SizeSpecification", []string{"size"},
		func() Condition { return &SizeCondition{} })
	conditionRegistry.Register("SourceSpecification", []string{"source"},
		func() Condition { return &SourceCondition{} })
}

// Conditions maps condition names to typed condition configurations.
type Conditions map[string]Condition

func (c *Conditions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: conditions must be a mapping", node.Line)
	}
	*c = Conditions{}
	for i := 0; i < len(node.Content); i += 2 {
		name := node.Content[i].Value
		value := node.Content[i+1]

		var head struct {
			Type string `yaml:"type"`
		}
		if err := value.Decode(&head); err != nil {
			return fmt.Errorf("condition %q: %w", name, err)
		}
		def, err := conditionRegistry.ForType(head.Type)
		if err != nil {
			return fmt.Errorf("condition %q: %w", name, err)
		}
		if err := value.Decode(def); err != nil {
			return fmt.Errorf("condition %q: %w", name, err)
		}
		def.common().Type = head.Type
		(*c)[name] = def
	}
	return nil
}

// EditionCondition matches the movie edition against a regular expression.
type EditionCondition struct {
	ConditionCommon `yaml:",inline"`
	Regex           string `yaml:"regex"`
}

func (c *EditionCondition) Implementation() string { return "EditionSpecification" }

func (c *EditionCondition) remoteMap(_ api.Resource) []remotemap.Entry {
	return append(c.entries(), codec.Text("regex", "value", true, &c.Regex))
}

// ReleaseGroupCondition matches the release group against a regular
// expression.
type ReleaseGroupCondition struct {
	ConditionCommon `yaml:",inline"`
	Regex           string `yaml:"regex"`
}

func (c *ReleaseGroupCondition) Implementation() string { return "ReleaseGroupSpecification" }

func (c *ReleaseGroupCondition) remoteMap(_ api.Resource) []remotemap.Entry {
	return append(c.entries(), codec.Text("regex", "value", true, &c.Regex))
}

// ReleaseTitleCondition matches the release title against a regular
// expression.
type ReleaseTitleCondition struct {
	ConditionCommon `yaml:",inline"`
	Regex           string `yaml:"regex"`
}

func (c *ReleaseTitleCondition) Implementation() string { return "ReleaseTitleSpecification" }

func (c *ReleaseTitleCondition) remoteMap(_ api.Resource) []remotemap.Entry {
	return append(c.entries(), codec.Text("regex", "value", true, &c.Regex))
}

// LanguageCondition matches the release language. The numeric language value
// is resolved through the remote schema's option table.
type LanguageCondition struct {
	ConditionCommon `yaml:",inline"`
	Language        string `yaml:"language"`
}

func (c *LanguageCondition) Implementation() string { return "LanguageSpecification" }

func (c *LanguageCondition) remoteMap(schema api.Resource) []remotemap.Entry {
	return append(c.entries(), codec.SelectEntry("language", "value", &c.Language, schema))
}

// ResolutionCondition matches the release resolution.
type ResolutionCondition struct {
	ConditionCommon `yaml:",inline"`
	Resolution      string `yaml:"resolution"`
}

func (c *ResolutionCondition) Implementation() string { return "ResolutionSpecification" }

func (c *ResolutionCondition) remoteMap(schema api.Resource) []remotemap.Entry {
	return append(c.entries(), codec.SelectEntry("resolution", "value", &c.Resolution, schema))
}

// SourceCondition matches the release source (bluray, webdl, ...).
type SourceCondition struct {
	ConditionCommon `yaml:",inline"`
	Source          string `yaml:"source"`
}

func (c *SourceCondition) Implementation() string { return "SourceSpecification" }

func (c *SourceCondition) remoteMap(schema api.Resource) []remotemap.Entry {
	return append(c.entries(), codec.SelectEntry("source", "value", &c.Source, schema))
}

// QualityModifierCondition matches the quality modifier (remux, screener,
// ...).
type QualityModifierCondition struct {
	ConditionCommon `yaml:",inline"`
	Modifier        string `yaml:"modifier"`
}

func (c *QualityModifierCondition) Implementation() string { return "QualityModifierSpecification" }

func (c *QualityModifierCondition) remoteMap(schema api.Resource) []remotemap.Entry {
	return append(c.entries(), codec.SelectEntry("modifier", "value", &c.Modifier, schema))
}

// IndexerFlagCondition matches an indexer-specific release flag.
type IndexerFlagCondition struct {
	ConditionCommon `yaml:",inline"`
	Flag            string `yaml:"flag"`
}

func (c *IndexerFlagCondition) Implementation() string { return "IndexerFlagSpecification" }

func (c *IndexerFlagCondition) remoteMap(schema api.Resource) []remotemap.Entry {
	return append(c.entries(), codec.SelectEntry("flag", "value", &c.Flag, schema))
}

// SizeCondition matches the release size range in gigabytes.
type SizeCondition struct {
	ConditionCommon `yaml:",inline"`
	Min             float64 `yaml:"min"`
	Max             float64 `yaml:"max"`
}

func (c *SizeCondition) Implementation() string { return "SizeSpecification" }

func (c *SizeCondition) remoteMap(_ api.Resource) []remotemap.Entry {
	return append(c.entries(),
		remotemap.Entry{
			Local:  "min",
			Remote: "min",
			Field:  true,
			Get:    func() any { return c.Min },
			Set:    remotemap.SetFloat(&c.Min),
		},
		remotemap.Entry{
			Local:  "max",
			Remote: "max",
			Field:  true,
			Get:    func() any { return c.Max },
			Set:    remotemap.SetFloat(&c.Max),
		},
	)
}
