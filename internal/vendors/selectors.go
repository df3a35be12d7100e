package vendors

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultSelectors []byte

// SelectorSpec is the YAML description of one HTML vendor's search page.
type SelectorSpec struct {
	QueryParam string            `yaml:"query_param"`
	Params     map[string]string `yaml:"params"`
	Item       []string          `yaml:"item"`
	Title      []string          `yaml:"title"`
	Price      []string          `yaml:"price"`
	Link       []string          `yaml:"link"`
	Category   []string          `yaml:"category"`
	SoldOut    []string          `yaml:"sold_out"`
}

// LoadSelectors decodes the embedded cascades and overlays the vendors found
// in the optional file at path.
func LoadSelectors(path string) (map[string]SelectorSpec, error) {
	specs := make(map[string]SelectorSpec)
	if err := yaml.Unmarshal(defaultSelectors, &specs); err != nil {
		return nil, fmt.Errorf("decode embedded selectors: %w", err)
	}
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read selectors: %w", err)
		}
		overrides := make(map[string]SelectorSpec)
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			return nil, fmt.Errorf("decode selectors %s: %w", path, err)
		}
		for name, spec := range overrides {
			specs[strings.ToLower(name)] = spec
		}
	}
	for name, spec := range specs {
		if err := spec.validate(); err != nil {
			return nil, fmt.Errorf("selectors for %s: %w", name, err)
		}
	}
	return specs, nil
}

func (s SelectorSpec) validate() error {
	switch {
	case strings.TrimSpace(s.QueryParam) == "":
		return errors.New("query_param is required")
	case len(s.Item) == 0:
		return errors.New("item cascade is empty")
	case len(s.Title) == 0:
		return errors.New("title cascade is empty")
	case len(s.Price) == 0:
		return errors.New("price cascade is empty")
	case len(s.Link) == 0:
		return errors.New("link cascade is empty")
	}
	return nil
}

// extractor reads one value from a result container.
type extractor func(*goquery.Selection) string

// cascade is an ordered list of extractors; the first non-empty value wins.
type cascade []extractor

func (c cascade) first(sel *goquery.Selection) string {
	for _, extract := range c {
		if value := strings.TrimSpace(extract(sel)); value != "" {
			return value
		}
	}
	return ""
}

func compileCascade(selectors []string) cascade {
	out := make(cascade, 0, len(selectors))
	for _, raw := range selectors {
		out = append(out, compileExtractor(raw))
	}
	return out
}

func compileExtractor(raw string) extractor {
	selector, attr, hasAttr := cutAttr(strings.TrimSpace(raw))
	switch {
	case hasAttr && selector == "":
		return func(sel *goquery.Selection) string {
			value, _ := sel.Attr(attr)
			return value
		}
	case hasAttr:
		return func(sel *goquery.Selection) string {
			value, _ := sel.Find(selector).First().Attr(attr)
			return value
		}
	default:
		return func(sel *goquery.Selection) string {
			return collapseSpace(sel.Find(selector).First().Text())
		}
	}
}

// cutAttr splits "a.link@href" into its selector and attribute.
func cutAttr(raw string) (string, string, bool) {
	idx := strings.LastIndex(raw, "@")
	if idx < 0 {
		return raw, "", false
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+1:]), true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// pageSelectors is a compiled SelectorSpec.
type pageSelectors struct {
	items    []string
	title    cascade
	price    cascade
	link     cascade
	category cascade
	soldOut  []string
}

func compileSelectors(spec SelectorSpec) pageSelectors {
	return pageSelectors{
		items:    spec.Item,
		title:    compileCascade(spec.Title),
		price:    compileCascade(spec.Price),
		link:     compileCascade(spec.Link),
		category: compileCascade(spec.Category),
		soldOut:  spec.SoldOut,
	}
}

// firstItem returns the first result container, trying item selectors in order.
func (p pageSelectors) firstItem(doc *goquery.Document) *goquery.Selection {
	for _, selector := range p.items {
		if found := doc.Find(selector); found.Length() > 0 {
			return found.First()
		}
	}
	return nil
}

func (p pageSelectors) isSoldOut(item *goquery.Selection) bool {
	for _, selector := range p.soldOut {
		if item.Find(selector).Length() > 0 {
			return true
		}
	}
	return soldOut(item.Text())
}
