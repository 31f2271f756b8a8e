package processors

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/username/fintrack/backend/src/logger"
)

// CategoryRule maps a category name to the keywords that suggest it.
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type categoryRulesFile struct {
	Categories []CategoryRule `yaml:"categories"`
}

// DefaultCategoryRules is the built-in rule list. Order is precedence: when
// two categories match the same number of keywords the earlier one wins.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Name: "Food & Drink", Keywords: []string{"makan", "resto", "restoran", "warung", "cafe", "kopi", "bakery", "gofood", "grabfood", "shopeefood", "mcd", "kfc", "starbucks", "pizza"}},
		{Name: "Transportation", Keywords: []string{"gojek", "goride", "grab", "ojek", "taxi", "bluebird", "bensin", "pertamina", "shell", "parkir", "e-toll", "jasa marga", "krl", "mrt", "transjakarta", "kereta"}},
		{Name: "Shopping", Keywords: []string{"tokopedia", "shopee", "lazada", "bukalapak", "blibli", "indomaret", "alfamart", "supermarket", "hypermart", "amazon"}},
		{Name: "Bills & Utilities", Keywords: []string{"pln", "listrik", "pdam", "telkom", "indihome", "pulsa", "paket data", "internet", "bpjs", "tagihan"}},
		{Name: "Entertainment", Keywords: []string{"netflix", "spotify", "youtube", "bioskop", "cinema", "xxi", "cgv", "steam", "disney"}},
		{Name: "Health", Keywords: []string{"apotek", "apotik", "rumah sakit", "klinik", "dokter", "pharmacy", "hospital", "kimia farma"}},
		{Name: "Education", Keywords: []string{"sekolah", "kursus", "spp", "kuliah", "udemy", "coursera", "buku"}},
		{Name: "Salary", Keywords: []string{"gaji", "salary", "payroll", "tunjangan", "bonus"}},
		{Name: "Investment", Keywords: []string{"reksadana", "saham", "bibit", "ajaib", "deposito", "obligasi"}},
	}
}

// CategoryClassifier suggests a category for a free-text description by
// counting keyword substrings per rule.
type CategoryClassifier struct {
	rules []CategoryRule
}

func NewCategoryClassifier(rules []CategoryRule) *CategoryClassifier {
	normalized := make([]CategoryRule, 0, len(rules))
	for _, r := range rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		normalized = append(normalized, CategoryRule{Name: name, Keywords: kws})
	}
	return &CategoryClassifier{rules: normalized}
}

// Suggest returns the best matching category, or false when no keyword of
// any rule occurs in the description.
func (c *CategoryClassifier) Suggest(description string) (string, bool) {
	desc := strings.ToLower(description)
	best, bestScore := "", 0
	for _, r := range c.rules {
		score := 0
		for _, k := range r.Keywords {
			if strings.Contains(desc, k) {
				score++
			}
		}
		// strictly greater keeps the earlier rule on ties
		if score > bestScore {
			best, bestScore = r.Name, score
		}
	}
	return best, bestScore > 0
}

func (c *CategoryClassifier) Rules() []CategoryRule {
	out := make([]CategoryRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// LoadCategoryRules reads an ordered rule list from a YAML file:
//
//	categories:
//	  - name: Food & Drink
//	    keywords: [makan, kopi]
func LoadCategoryRules(path string) ([]CategoryRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read category rules file: %w", err)
	}
	var f categoryRulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("could not parse category rules file: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("category rules file %s defines no categories", path)
	}
	return f.Categories, nil
}

// NewCategoryClassifierFromConfig uses the rules at path when set, falling
// back to the defaults if the file cannot be used.
func NewCategoryClassifierFromConfig(path string) *CategoryClassifier {
	if path == "" {
		return NewCategoryClassifier(DefaultCategoryRules())
	}
	rules, err := LoadCategoryRules(path)
	if err != nil {
		logger.L.Warn("Falling back to default category rules", "path", path, "error", err)
		return NewCategoryClassifier(DefaultCategoryRules())
	}
	logger.L.Info("Loaded category rules", "path", path, "categories", len(rules))
	return NewCategoryClassifier(rules)
}
