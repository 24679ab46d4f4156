package splitscan

import (
	"sort"
)

// Kind classifies a module of a split application.
type Kind int

const (
	KindBase Kind = iota
	KindAbi
	KindLanguage
	KindDensity
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindAbi:
		return "abi"
	case KindLanguage:
		return "language"
	case KindDensity:
		return "density"
	}

	return "unknown"
}

// Relocation is a set of files owned by a split
// that belong in Destination inside the base module.
type Relocation struct {
	Sources     []string
	Destination string
}

// AbiEntry holds the native libraries of one architecture.
type AbiEntry struct {
	Module     string
	ABI        string
	Relocation Relocation
}

func (AbiEntry) Kind() Kind {
	return KindAbi
}

// LanguageEntry holds one values-<qualifier> directory of a language split.
type LanguageEntry struct {
	Module     string
	Qualifier  string
	PublicXML  string
	Relocation Relocation
}

func (LanguageEntry) Kind() Kind {
	return KindLanguage
}

// DensityEntry holds every qualified drawable and values
// directory of one density split.
type DensityEntry struct {
	Module      string
	Name        string
	PublicXML   string
	Relocations []Relocation
}

func (DensityEntry) Kind() Kind {
	return KindDensity
}

// BaseFiles are the structural files of the base module.
type BaseFiles struct {
	Dir          string
	PublicXML    string
	DrawablesXML string
	StringsXML   string
	StylesXML    string
	Manifest     string
	Metadata     string
	// Resources is every XML file under the base module's res/,
	// less those excluded when scanning.
	Resources []string
}

// Inventory is everything found in a working directory
// of decoded split application modules.
type Inventory struct {
	Root      string
	Base      BaseFiles
	Splits    []string
	Abis      []AbiEntry
	Languages []LanguageEntry
	Densities []DensityEntry
}

// PublicTables returns the identifier table of every language and
// density split, each once, in lexical order.
func (i *Inventory) PublicTables() []string {
	var (
		seen   = map[string]bool{}
		tables = []string{}
	)

	add := func(table string) {
		if !seen[table] {
			seen[table] = true
			tables = append(tables, table)
		}
	}

	for _, lang := range i.Languages {
		add(lang.PublicXML)
	}

	for _, density := range i.Densities {
		add(density.PublicXML)
	}

	sort.Strings(tables)

	return tables
}

// PlannedRelocation is one Relocation along with the split it comes from.
type PlannedRelocation struct {
	Kind   Kind
	Module string
	// Name is the ABI, density or language qualifier of the split.
	Name       string
	Relocation Relocation
}

// Relocations returns every planned relocation: abis, then densities,
// then languages, so that a language split's strings land last.
func (i *Inventory) Relocations() []PlannedRelocation {
	planned := []PlannedRelocation{}

	for _, abi := range i.Abis {
		planned = append(planned, PlannedRelocation{Kind: abi.Kind(), Module: abi.Module, Name: abi.ABI, Relocation: abi.Relocation})
	}

	for _, density := range i.Densities {
		for _, rel := range density.Relocations {
			planned = append(planned, PlannedRelocation{Kind: density.Kind(), Module: density.Module, Name: density.Name, Relocation: rel})
		}
	}

	for _, lang := range i.Languages {
		planned = append(planned, PlannedRelocation{Kind: lang.Kind(), Module: lang.Module, Name: lang.Qualifier, Relocation: lang.Relocation})
	}

	return planned
}
