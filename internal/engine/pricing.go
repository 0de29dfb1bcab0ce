package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/Egg3901/corpgame-sub003/internal/sectors"
)

var (
	// ErrUnknownCommodity is returned for a commodity absent from both the
	// configuration and the built-in default table. It is not fatal: callers
	// price it at 0 and flag their result as incomplete.
	ErrUnknownCommodity = errors.New("unknown commodity")

	// ErrMissingLiveFeed is returned by a PriceFeed that has no quote for a
	// commodity. PriceBook resolves it by falling back to configured values.
	ErrMissingLiveFeed = errors.New("missing live price feed")
)

// PriceSource records which tier of the lookup chain produced a price.
type PriceSource string

const (
	SourceLive    PriceSource = "live"
	SourceConfig  PriceSource = "config"
	SourceDefault PriceSource = "default"
	SourceNone    PriceSource = "none"
)

// CommodityPrice is the derived price of a resource or product.
type CommodityPrice struct {
	Name           string                `json:"name"`
	Kind           sectors.CommodityKind `json:"kind"`
	CurrentPrice   float64               `json:"current_price"`
	BasePrice      float64               `json:"base_price,omitempty"`      // resources
	ReferenceValue float64               `json:"reference_value,omitempty"` // products
	MinPrice       float64               `json:"min_price,omitempty"`       // products
	ScarcityFactor float64               `json:"scarcity_factor"`
	Source         PriceSource           `json:"source"`
}

// Quote is one live feed entry. Absent fields are nil.
type Quote struct {
	CurrentPrice   *float64 `yaml:"current_price,omitempty" json:"current_price,omitempty"`
	ScarcityFactor *float64 `yaml:"scarcity_factor,omitempty" json:"scarcity_factor,omitempty"`
	BasePrice      *float64 `yaml:"base_price,omitempty" json:"base_price,omitempty"`
	ReferenceValue *float64 `yaml:"reference_value,omitempty" json:"reference_value,omitempty"`
}

// PriceFeed supplies live quotes computed elsewhere (supply/demand, scarcity).
type PriceFeed interface {
	Quote(name string) (Quote, error)
}

// MapFeed is an in-memory PriceFeed.
type MapFeed map[string]Quote

func (m MapFeed) Quote(name string) (Quote, error) {
	q, ok := m[name]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrMissingLiveFeed, name)
	}
	return q, nil
}

// Pricer prices a commodity of a known kind. PriceBook is the production
// implementation; tests substitute fixed tables.
type Pricer interface {
	Price(name string, kind sectors.CommodityKind) (CommodityPrice, error)
}

// PriceBook resolves prices through the chain live feed -> configuration ->
// built-in default table. It holds no mutable state.
type PriceBook struct {
	catalog  *sectors.Catalog
	feed     PriceFeed
	defaults DefaultTable
}

// NewPriceBook builds a price book over a catalog and an optional feed.
// A nil catalog or feed simply skips that tier.
func NewPriceBook(catalog *sectors.Catalog, feed PriceFeed) *PriceBook {
	return &PriceBook{catalog: catalog, feed: feed, defaults: DefaultCommodities}
}

// WithDefaults returns a copy of the book using table as its last tier.
func (b *PriceBook) WithDefaults(table DefaultTable) *PriceBook {
	cp := *b
	cp.defaults = table
	return &cp
}

// Lookup prices a commodity whose kind is inferred from configuration,
// then from the default table. Resources win when a name is both.
func (b *PriceBook) Lookup(name string) (CommodityPrice, error) {
	if kind, ok := b.kindOf(name); ok {
		return b.Price(name, kind)
	}
	return CommodityPrice{Name: name, Source: SourceNone}, fmt.Errorf("%w: %q", ErrUnknownCommodity, name)
}

func (b *PriceBook) kindOf(name string) (sectors.CommodityKind, bool) {
	if b.catalog != nil {
		if _, ok := b.catalog.Resource(name); ok {
			return sectors.KindResource, true
		}
		if _, ok := b.catalog.Product(name); ok {
			return sectors.KindProduct, true
		}
	}
	if _, ok := b.defaults.Resources[name]; ok {
		return sectors.KindResource, true
	}
	if _, ok := b.defaults.Products[name]; ok {
		return sectors.KindProduct, true
	}
	return "", false
}

// Price implements Pricer.
func (b *PriceBook) Price(name string, kind sectors.CommodityKind) (CommodityPrice, error) {
	q, live := b.quote(name)
	switch kind {
	case sectors.KindResource:
		return b.resourcePrice(name, q, live)
	case sectors.KindProduct:
		return b.productPrice(name, q, live)
	}
	return CommodityPrice{Name: name, Kind: kind, Source: SourceNone},
		fmt.Errorf("%w: %q has kind %q", ErrUnknownCommodity, name, string(kind))
}

func (b *PriceBook) quote(name string) (Quote, bool) {
	if b.feed == nil {
		return Quote{}, false
	}
	q, err := b.feed.Quote(name)
	if err != nil {
		// ErrMissingLiveFeed and transport errors alike degrade to config.
		return Quote{}, false
	}
	return q, true
}

func (b *PriceBook) resourcePrice(name string, q Quote, live bool) (CommodityPrice, error) {
	p := CommodityPrice{Name: name, Kind: sectors.KindResource, ScarcityFactor: 1}

	switch {
	case b.catalog != nil && hasResource(b.catalog, name):
		r, _ := b.catalog.Resource(name)
		p.BasePrice, p.Source = r.BasePrice, SourceConfig
	case hasKey(b.defaults.Resources, name):
		p.BasePrice, p.Source = b.defaults.Resources[name], SourceDefault
	default:
		p.Source = SourceNone
		return p, fmt.Errorf("%w: resource %q", ErrUnknownCommodity, name)
	}

	if live && q.BasePrice != nil && validPrice(*q.BasePrice) {
		p.BasePrice, p.Source = *q.BasePrice, SourceLive
	}
	if live && q.ScarcityFactor != nil && *q.ScarcityFactor > 0 && !math.IsInf(*q.ScarcityFactor, 0) {
		p.ScarcityFactor, p.Source = *q.ScarcityFactor, SourceLive
	}
	p.CurrentPrice = p.BasePrice * p.ScarcityFactor
	if live && q.CurrentPrice != nil && validPrice(*q.CurrentPrice) {
		p.CurrentPrice, p.Source = *q.CurrentPrice, SourceLive
	}
	return p, nil
}

func (b *PriceBook) productPrice(name string, q Quote, live bool) (CommodityPrice, error) {
	p := CommodityPrice{Name: name, Kind: sectors.KindProduct, ScarcityFactor: 1}

	var cfg sectors.ProductConfig
	switch {
	case b.catalog != nil && hasProduct(b.catalog, name):
		cfg, _ = b.catalog.Product(name)
		p.Source = SourceConfig
	case hasKey(b.defaults.Products, name):
		cfg = b.defaults.Products[name]
		p.Source = SourceDefault
	default:
		p.Source = SourceNone
		return p, fmt.Errorf("%w: product %q", ErrUnknownCommodity, name)
	}
	p.ReferenceValue, p.MinPrice = cfg.ReferenceValue, cfg.MinPrice

	if live && q.ReferenceValue != nil && validPrice(*q.ReferenceValue) {
		p.ReferenceValue = *q.ReferenceValue
	}
	market := p.ReferenceValue
	if live && q.CurrentPrice != nil && validPrice(*q.CurrentPrice) {
		market, p.Source = *q.CurrentPrice, SourceLive
	}
	p.CurrentPrice = math.Max(p.MinPrice, market)
	return p, nil
}

func hasResource(c *sectors.Catalog, name string) bool {
	_, ok := c.Resource(name)
	return ok
}

func hasProduct(c *sectors.Catalog, name string) bool {
	_, ok := c.Product(name)
	return ok
}

func hasKey[V any](m map[string]V, key string) bool {
	_, ok := m[key]
	return ok
}

// validPrice rejects negative and non-finite feed values, which are treated
// as if the feed had no quote.
func validPrice(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
