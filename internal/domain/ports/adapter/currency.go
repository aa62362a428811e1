package adapter

// Currency holds the display data prompts interpolate.
type Currency struct {
	Code         string `yaml:"code"`
	Symbol       string `yaml:"symbol"`
	SymbolNative string `yaml:"symbol_native"`
	Name         string `yaml:"name"`
	NamePlural   string `yaml:"name_plural"`
}

type CurrencyCatalog interface {
	// Lookup accepts any case; ok is false for codes that are not ISO 4217.
	Lookup(code string) (Currency, bool)
}
