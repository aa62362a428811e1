package currency

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"

	"telegram-p2p-trading/internal/domain/ports/adapter"
)

//go:embed currencies.yaml
var currenciesYAML []byte

var _ adapter.CurrencyCatalog = (*Catalog)(nil)

// Catalog serves display data for fiat currencies. Codes missing from the
// embedded table are still accepted when they are ISO 4217 codes; their code
// doubles as symbol and name.
type Catalog struct {
	byCode map[string]adapter.Currency
}

func NewCatalog() (*Catalog, error) {
	return parseCatalog(currenciesYAML)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var list []adapter.Currency
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse currency table: %w", err)
	}
	c := &Catalog{byCode: make(map[string]adapter.Currency, len(list))}
	for _, cur := range list {
		code := strings.ToUpper(strings.TrimSpace(cur.Code))
		if code == "" {
			continue
		}
		cur.Code = code
		c.byCode[code] = cur
	}
	return c, nil
}

func (c *Catalog) Lookup(code string) (adapter.Currency, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if cur, ok := c.byCode[code]; ok {
		return cur, true
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return adapter.Currency{}, false
	}
	iso := unit.String()
	return adapter.Currency{Code: iso, Symbol: iso, SymbolNative: iso, Name: iso, NamePlural: iso}, true
}

func (c *Catalog) Len() int { return len(c.byCode) }
