package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" Support ")
	require.True(t, ok)
	assert.Equal(t, CategorySupport, c)

	_, ok = ParseCategory("cancel")
	assert.False(t, ok)
}

func TestDefaultCatalogNameRules(t *testing.T) {
	catalog := DefaultCatalog()

	name, ok := catalog[CategorySupport].Name(map[string]string{
		"Issue Description": "Login fails",
		"Priority Level":    "High",
	})
	require.True(t, ok)
	assert.Equal(t, "Login fails-High", name)

	name, ok = catalog[CategoryBuy].Name(map[string]string{
		"Product":        "Netflix",
		"Quantity":       "2",
		"Payment Method": "PayPal",
	})
	require.True(t, ok)
	assert.Equal(t, "Netflix-2-PayPal", name)

	_, ok = catalog[CategoryBuy].Name(map[string]string{"Product": "Netflix"})
	assert.False(t, ok, "partial answers must not produce a name")
}

func TestCatalogWithQuestions(t *testing.T) {
	catalog := DefaultCatalog().WithQuestions(map[Category][]Question{
		CategoryExchange: {{Title: "Old"}, {Title: "New"}},
	})

	assert.True(t, catalog.HasQuestion(CategoryExchange, "Old"))
	assert.False(t, catalog.HasQuestion(CategoryExchange, "Exchange Item"))
	assert.True(t, catalog.HasQuestion(CategorySupport, "Priority Level"))

	name, ok := catalog[CategoryExchange].Name(map[string]string{"Old": "a", "New": "b"})
	require.True(t, ok)
	assert.Equal(t, "a-b", name)
}

func TestTicketCloneIsDeep(t *testing.T) {
	orig := &Ticket{ID: "1", Answers: map[string]string{"Product": "x"}}
	cp := orig.Clone()
	cp.Answers["Product"] = "y"
	assert.Equal(t, "x", orig.Answers["Product"])
}

func TestActorHasRole(t *testing.T) {
	a := Actor{RoleIDs: []string{"10", "20"}}
	assert.True(t, a.HasRole("20"))
	assert.False(t, a.HasRole(""))
	assert.False(t, a.HasRole("30"))
}
