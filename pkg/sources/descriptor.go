package sources

// KeyLayout names the attributes a source table uses for the two key fields
// every table has, in some shape: who generated the event and what sub-category
// of usage it belongs to.
type KeyLayout struct {
	// OwnerField is the attribute holding the owner identifier. The value may
	// be a bare id or a composite key like "user#42".
	OwnerField string `yaml:"owner_field" json:"owner_field"`

	// DimensionField is the attribute holding the usage dimension (engine or
	// model variant). Some sources embed the event date here as part of a
	// composite key like "engine#pro#2025-10".
	DimensionField string `yaml:"dimension_field" json:"dimension_field"`
}

// Descriptor describes one product line's usage source: where its records
// live and how its key fields are laid out. Descriptors are read-only for the
// process lifetime.
type Descriptor struct {
	// ID is the stable source identifier used in queries and responses.
	ID string `yaml:"id" json:"id"`

	// DisplayName is the human-readable product line name.
	DisplayName string `yaml:"display_name" json:"display_name"`

	// PrimaryLocation is the table holding the main edition's records.
	PrimaryLocation string `yaml:"primary_location" json:"primary_location"`

	// AltLocation is the table for the secondary language edition, when the
	// product line has one. Empty otherwise.
	AltLocation string `yaml:"alt_location,omitempty" json:"alt_location,omitempty"`

	PrimaryLayout KeyLayout `yaml:"primary_layout" json:"primary_layout"`

	// AltLayout is the key layout of the alternate table. Nil means the
	// alternate table (if any) shares the primary layout.
	AltLayout *KeyLayout `yaml:"alt_layout,omitempty" json:"alt_layout,omitempty"`
}

// HasAlt reports whether the source has a secondary-edition table.
func (d Descriptor) HasAlt() bool {
	return d.AltLocation != ""
}

// LayoutFor returns the key layout for the requested edition.
func (d Descriptor) LayoutFor(alt bool) KeyLayout {
	if alt && d.AltLayout != nil {
		return *d.AltLayout
	}
	return d.PrimaryLayout
}

// Builtin returns the default source catalog. These descriptors mirror the
// production usage tables; deployments with different table names override
// them with a YAML catalog file.
func Builtin() []Descriptor {
	return []Descriptor{
		{
			ID:              "chat",
			DisplayName:     "Chat Assistant",
			PrimaryLocation: "chat-usage",
			AltLocation:     "chat-usage-ja",
			PrimaryLayout:   KeyLayout{OwnerField: "pk", DimensionField: "sk"},
			AltLayout:       &KeyLayout{OwnerField: "userKey", DimensionField: "usageKey"},
		},
		{
			ID:              "code",
			DisplayName:     "Code Assistant",
			PrimaryLocation: "code-usage",
			PrimaryLayout:   KeyLayout{OwnerField: "userId", DimensionField: "model"},
		},
		{
			ID:              "api",
			DisplayName:     "Platform API",
			PrimaryLocation: "api-usage",
			PrimaryLayout:   KeyLayout{OwnerField: "pk", DimensionField: "sk"},
		},
		{
			ID:              "search",
			DisplayName:     "Enterprise Search",
			PrimaryLocation: "search-usage",
			AltLocation:     "search-usage-ja",
			PrimaryLayout:   KeyLayout{OwnerField: "ownerId", DimensionField: "engineKey"},
		},
	}
}
