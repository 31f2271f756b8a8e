package processors

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCategoryClassifierSuggest(t *testing.T) {
	c := NewCategoryClassifier(DefaultCategoryRules())

	tests := []struct {
		name        string
		description string
		want        string
		wantOK      bool
	}{
		{"single keyword", "PEMBAYARAN PLN PRABAYAR", "Bills & Utilities", true},
		{"case insensitive", "Netflix.com Subscription", "Entertainment", true},
		{"highest score wins", "GRAB*GRABFOOD MAKAN SIANG", "Food & Drink", true},
		{"tie goes to earlier rule", "grabfood", "Food & Drink", true},
		{"transport only", "GOJEK GORIDE 1234", "Transportation", true},
		{"salary", "TRSF GAJI BULAN MARET", "Salary", true},
		{"no match", "TARIK TUNAI ATM", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Suggest(tt.description)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Suggest(%q) = %q, %v; want %q, %v", tt.description, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCategoryClassifierDeclaredOrderIsPrecedence(t *testing.T) {
	rules := []CategoryRule{
		{Name: "Coffee", Keywords: []string{"kopi"}},
		{Name: "Snacks", Keywords: []string{"kopi"}},
	}
	if got, _ := NewCategoryClassifier(rules).Suggest("kopi susu"); got != "Coffee" {
		t.Errorf("got %q, want Coffee", got)
	}

	rules[0], rules[1] = rules[1], rules[0]
	if got, _ := NewCategoryClassifier(rules).Suggest("kopi susu"); got != "Snacks" {
		t.Errorf("after reorder got %q, want Snacks", got)
	}
}

func TestCategoryClassifierNormalizesRules(t *testing.T) {
	c := NewCategoryClassifier([]CategoryRule{
		{Name: "  ", Keywords: []string{"x"}},
		{Name: "Pets", Keywords: []string{"  PETSHOP ", ""}},
	})
	rules := c.Rules()
	if len(rules) != 1 || rules[0].Keywords[0] != "petshop" || len(rules[0].Keywords) != 1 {
		t.Fatalf("unexpected rules %+v", rules)
	}
	if got, ok := c.Suggest("Royal PetShop"); !ok || got != "Pets" {
		t.Errorf("Suggest = %q, %v", got, ok)
	}
}

func TestLoadCategoryRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	content := `categories:
  - name: Groceries
    keywords: [sayur, pasar]
  - name: Pets
    keywords:
      - petshop
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadCategoryRules(path)
	if err != nil {
		t.Fatalf("LoadCategoryRules: %v", err)
	}
	if len(rules) != 2 || rules[0].Name != "Groceries" || rules[1].Keywords[0] != "petshop" {
		t.Fatalf("unexpected rules %+v", rules)
	}

	c := NewCategoryClassifierFromConfig(path)
	if got, _ := c.Suggest("Belanja PASAR minggu"); got != "Groceries" {
		t.Errorf("got %q, want Groceries", got)
	}
}

func TestLoadCategoryRulesErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("categories: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCategoryRules(empty); err == nil {
		t.Error("expected error for empty rule list")
	}
	if _, err := LoadCategoryRules(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	c := NewCategoryClassifierFromConfig(filepath.Join(dir, "missing.yaml"))
	if len(c.Rules()) != len(DefaultCategoryRules()) {
		t.Error("expected fallback to default rules")
	}
}
